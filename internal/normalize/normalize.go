package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonDigits   = regexp.MustCompile(`\D`)
	releaseDate = regexp.MustCompile(`^(\d{4})(?:[-/.](\d{1,2}))?$`)
)

// ParsePrice extracts the digits from a freeform price text ("¥12,800" ->
// 12800) and parses them as an unsigned integer. Returns false when the text
// is empty or contains no digits. No currency semantics beyond digit
// extraction.
func ParsePrice(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseReleaseDate parses a freeform release date in one of the forms YYYY,
// YYYY-MM, YYYY/MM or YYYY.MM. A missing month defaults to January and the
// day is always the 1st. Returns false on non-matching input or an invalid
// month.
func ParseReleaseDate(text string) (time.Time, bool) {
	m := releaseDate.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month := 1
	if m[2] != "" {
		month, _ = strconv.Atoi(m[2])
	}
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}
