package auth

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	maxMetadataEntries  = 20
	maxMetadataKeyLen   = 64
	maxMetadataValueLen = 512
)

// SanitizeName cleans a single-line display field such as a name or phone
// number: control characters and line breaks are removed and runs of
// whitespace collapse to one space. Output is escaped where it is rendered.
func SanitizeName(name string) string {
	return strings.Join(strings.Fields(removeControlChars(name)), " ")
}

// SanitizeMetadata cleans free-form candidate attributes before they are
// stored or rendered into an approval message. Oversized entries are dropped.
func SanitizeMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}

	out := make(map[string]string, len(in))
	for k, v := range in {
		if len(out) == maxMetadataEntries {
			break
		}
		k = SanitizeName(k)
		v = SanitizeName(v)
		if k == "" || len(k) > maxMetadataKeyLen || len(v) > maxMetadataValueLen {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidateStringLength validates that a string is within the specified length constraints.
func ValidateStringLength(field, value string, min, max int) error {
	length := len(value)

	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters long", field, min)
	}

	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters long", field, max)
	}

	return nil
}

// removeControlChars replaces control characters, including newlines and
// tabs, with spaces.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}
