package errors

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits on user-supplied strings.
const (
	MaxNodeIDLength = 128
	MaxTitleLength  = 200
	MaxLabelLength  = 2000
	maxPathLength   = 500
)

// ValidateNodeID rejects empty, oversized or control-character IDs. Node IDs
// end up in URLs, cache keys and DOT output, so the rules are strict.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidNode, "node ID cannot be empty")
	}
	if len(id) > MaxNodeIDLength {
		return New(ErrCodeInvalidNode, "node ID too long (max %d characters)", MaxNodeIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidNode, "node ID %q contains whitespace or control characters", id)
		}
	}
	return nil
}

// ValidateLabel bounds label length and rejects control characters other
// than newlines, which are allowed for manual line breaks.
func ValidateLabel(label string) error {
	if !utf8.ValidString(label) {
		return New(ErrCodeInvalidNode, "label is not valid UTF-8")
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return New(ErrCodeInvalidNode, "label too long (max %d characters)", MaxLabelLength)
	}
	for _, r := range label {
		if r != '\n' && unicode.IsControl(r) {
			return New(ErrCodeInvalidNode, "label contains control characters")
		}
	}
	return nil
}

// ValidateTitle checks a project title. Empty titles are allowed; callers
// substitute the default.
func ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return New(ErrCodeInvalidInput, "title too long (max %d characters)", MaxTitleLength)
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "title contains control characters")
		}
	}
	return nil
}

// projectIDRegex matches the IDs the store hands out (UUIDs) and the
// slug-style IDs of hand-written documents.
var projectIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateProjectID checks a project ID before it is used as a file name or
// a database key.
func ValidateProjectID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "project ID cannot be empty")
	}
	if !projectIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid project ID: %q", id)
	}
	return nil
}

// ValidatePath validates a relative file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths
//   - No path traversal sequences (..)
//   - No backslashes
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}
	return nil
}

// ValidateURL ensures rawURL uses http or https.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
