package posts

import "time"

// FormatDate renders t as "Jan 02, 2006".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Invalid Date"
	}
	return t.Format("Jan 02, 2006")
}

// FormatDateLong renders t as "January 02, 2006".
func FormatDateLong(t time.Time) string {
	if t.IsZero() {
		return "Invalid Date"
	}
	return t.Format("January 02, 2006")
}

// FormatDateISO renders t as "2006-01-02", or "" for the zero time.
func FormatDateISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
