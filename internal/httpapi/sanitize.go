package httpapi

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field length limits, counted in runes after sanitization.
var inputLimits = map[string]struct{ min, max int }{
	"name":         {2, 100},
	"email":        {5, 100},
	"password":     {6, 100},
	"lessonName":   {2, 200},
	"studentName":  {1, 100},
	"locationName": {1, 200},
}

var (
	dangerousChars = regexp.MustCompile("[<>\"';&|`$()]")
	nameChars      = regexp.MustCompile(`[^a-zA-Z0-9\s\-_.,şŞçÇğĞüÜöÖıİ]`)
	emailChars     = regexp.MustCompile(`[^a-zA-Z0-9@._-]`)
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// sanitize strips characters with markup or shell meaning and trims spaces.
func sanitize(s string) string {
	return strings.TrimSpace(dangerousChars.ReplaceAllString(s, ""))
}

// sanitizeName additionally restricts to name-safe characters.
func sanitizeName(s string) string {
	return nameChars.ReplaceAllString(sanitize(s), "")
}

// sanitizeEmail additionally restricts to email-safe characters.
func sanitizeEmail(s string) string {
	return emailChars.ReplaceAllString(sanitize(s), "")
}

func validLength(s, field string) bool {
	lim, ok := inputLimits[field]
	if !ok {
		return true
	}
	n := utf8.RuneCountInString(s)
	return n >= lim.min && n <= lim.max
}

func validEmail(s string) bool {
	return emailPattern.MatchString(s)
}
