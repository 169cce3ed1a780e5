package domain

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ParsedFiling is filing metadata inferred from a filename.
type ParsedFiling struct {
	Ticker     string
	DocType    string
	FiscalYear int
}

// filenamePattern matches TICKER_DOCTYPE_YEAR.pdf, case-insensitive.
// Ticker and doc type are alphanumeric-plus-hyphen tokens; the year is
// exactly four digits.
var filenamePattern = regexp.MustCompile(`(?i)^([A-Za-z0-9]+)_([A-Za-z0-9-]+)_(\d{4})\.pdf$`)

// docTypeAliases maps short doc-type tokens to their normalised forms.
// Unrecognised tokens pass through unchanged.
var docTypeAliases = map[string]string{
	"20f":  "20-F",
	"20-f": "20-F",
	"10k":  "10-K",
	"10-k": "10-K",
	"10q":  "10-Q",
	"10-q": "10-Q",
	"ar":   "AR",
}

// DefaultDocType is assumed when neither the caller nor the filename
// supplies a filing type.
const DefaultDocType = "20-F"

// NormalizeDocType maps a raw doc-type token to its canonical form.
// Unknown tokens are returned unchanged, preserving casing.
func NormalizeDocType(raw string) string {
	if canonical, ok := docTypeAliases[strings.ToLower(raw)]; ok {
		return canonical
	}
	return raw
}

// ParseFilename extracts filing metadata from a filename like
// "INFY_20F_2022.pdf". Returns nil on any non-match: wrong extension,
// missing segments, or a malformed year. A non-match is not an error;
// callers fall back to explicit metadata.
func ParseFilename(filename string) *ParsedFiling {
	basename := filepath.Base(filename)
	m := filenamePattern.FindStringSubmatch(basename)
	if m == nil {
		return nil
	}

	year, err := strconv.Atoi(m[3])
	if err != nil {
		return nil
	}

	return &ParsedFiling{
		Ticker:     strings.ToUpper(m[1]),
		DocType:    NormalizeDocType(m[2]),
		FiscalYear: year,
	}
}
