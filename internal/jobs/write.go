// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/jimyag/profilesync/internal/log"
)

// writeReadme writes the README with full durability guarantees using
// renameio: fsync before rename so a crash never leaves a torn file.
func writeReadme(ctx context.Context, path, content string) error {
	logger := log.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending readme file: %w", err)
	}
	defer func() {
		// Cleanup on error - renameio removes temp file if not committed
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending readme file")
		}
	}()

	if _, err := io.Copy(pendingFile, strings.NewReader(content)); err != nil {
		return fmt.Errorf("write readme data: %w", err)
	}

	// CloseAtomicallyReplace: fsync + rename (durable + atomic)
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace readme file: %w", err)
	}

	return nil
}
