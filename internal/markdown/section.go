// SPDX-License-Identifier: MIT

package markdown

import (
	"errors"
	"fmt"
	"regexp"
)

// Section names understood by the profile README.
const (
	SectionActivity = "ACTIVITY"
	SectionUpdated  = "UPDATED"
)

// ErrSectionNotFound is returned when a marker pair is missing from the document.
var ErrSectionNotFound = errors.New("markdown: section markers not found")

// ReplaceSection rewrites the text between `<!-- NAME_START -->` and
// `<!-- NAME_END -->`, keeping the markers and normalizing to one line of
// padding on each side. The rest of the document is untouched.
func ReplaceSection(content, section, replacement string) (string, error) {
	start := fmt.Sprintf("<!-- %s_START -->", section)
	end := fmt.Sprintf("<!-- %s_END -->", section)

	pattern, err := regexp.Compile(`(?s)` + regexp.QuoteMeta(start) + `.*?` + regexp.QuoteMeta(end))
	if err != nil {
		return "", fmt.Errorf("markdown: compile section pattern for %q: %w", section, err)
	}

	if !pattern.MatchString(content) {
		return "", fmt.Errorf("%w: %s", ErrSectionNotFound, section)
	}

	block := start + "\n" + replacement + "\n" + end
	return pattern.ReplaceAllLiteralString(content, block), nil
}
