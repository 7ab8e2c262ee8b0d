package posts

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// pivotYear is the first two-digit year mapped to the 1900s.
const pivotYear = 30

var (
	postNameRe  = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2}) (.+)\.(?i:html?)$`)
	slugStripRe = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRe = regexp.MustCompile(`\s+`)
)

// ParsedName holds the fields encoded in a post file name.
type ParsedName struct {
	ID    string
	Title string
	Date  time.Time
}

// ParseFilename parses a name of the form "YYMMDD Title.html".
// It reports false when the name has another shape or when the date part is
// not a real calendar date.
func ParseFilename(name string) (ParsedName, bool) {
	m := postNameRe.FindStringSubmatch(name)
	if m == nil {
		return ParsedName{}, false
	}

	date, ok := parseDateToken(m[1], m[2], m[3])
	if !ok {
		return ParsedName{}, false
	}

	return ParsedName{
		ID:    date.Format("20060102"),
		Title: m[4],
		Date:  date,
	}, true
}

// ParseDateToken parses a six digit YYMMDD token.
func ParseDateToken(token string) (time.Time, bool) {
	if len(token) != 6 {
		return time.Time{}, false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}
	return parseDateToken(token[0:2], token[2:4], token[4:6])
}

func parseDateToken(yy, mm, dd string) (time.Time, bool) {
	y, _ := strconv.Atoi(yy)
	m, _ := strconv.Atoi(mm)
	d, _ := strconv.Atoi(dd)

	year := ExpandYear(y)
	date := time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC)

	// time.Date normalizes out-of-range values, so 2023-02-30 silently
	// becomes 2023-03-02. Reject anything that did not round-trip.
	if date.Year() != year || int(date.Month()) != m || date.Day() != d {
		return time.Time{}, false
	}
	return date, true
}

// ExpandYear maps a two-digit year to a four-digit one: 00-29 are 20YY,
// everything else 19YY.
func ExpandYear(yy int) int {
	if yy < pivotYear {
		return 2000 + yy
	}
	return 1900 + yy
}

// Slugify derives the URL slug of a title.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStripRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return slugSpaceRe.ReplaceAllString(s, "-")
}
