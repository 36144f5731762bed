package google

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultRange covers the first sheet's usual transaction columns.
const DefaultRange = "Sheet1!A:Z"

var (
	ErrInvalidSpreadsheetID = errors.New("invalid spreadsheet id")

	spreadsheetURL = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	spreadsheetID  = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// ParseSpreadsheetID accepts a bare ID or a docs.google.com URL.
func ParseSpreadsheetID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if m := spreadsheetURL.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if spreadsheetID.MatchString(s) {
		return s, nil
	}
	return "", ErrInvalidSpreadsheetID
}

// ReadRange turns a sheet name into "Name!A:Z" and leaves A1 ranges alone.
func ReadRange(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return DefaultRange
	case strings.Contains(s, "!"):
		return s
	case strings.ContainsAny(s, " '"):
		return "'" + strings.ReplaceAll(s, "'", "''") + "'!A:Z"
	}
	return s + "!A:Z"
}
