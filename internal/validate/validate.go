// Package validate holds the signup/profile field rules: pure functions so
// the kiosk handlers and the tests share one implementation.
package validate

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^(\+\d{1,3})?(\d{10,15})$`)
	digitRe = regexp.MustCompile(`\d`)
	lowerRe = regexp.MustCompile(`[a-z]`)
	upperRe = regexp.MustCompile(`[A-Z]`)
)

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidPassword enforces at least 8 characters with an upper-case letter, a
// lower-case letter, and a digit.
func ValidPassword(password string) bool {
	return len(password) >= 8 &&
		digitRe.MatchString(password) &&
		lowerRe.MatchString(password) &&
		upperRe.MatchString(password)
}

// ValidPhone reports whether the number, stripped of formatting, is a valid
// contact number: optional +country code, then 10-15 digits.
func ValidPhone(phone string) bool {
	cleaned := stripNonDialing(phone)
	digits := strings.TrimPrefix(cleaned, "+")
	if len(digits) < 10 {
		return false
	}
	return phoneRe.MatchString(cleaned)
}

// ValidName requires a non-blank display name.
func ValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}

// ITU zones where country codes run three digits; codes under 1 and 7 are one
// digit, everything else is two.
var threeDigitZones = map[string]bool{
	"21": true, "22": true, "23": true, "24": true, "25": true, "29": true,
	"35": true, "37": true, "38": true, "42": true, "50": true, "59": true,
	"67": true, "68": true, "69": true, "80": true, "85": true, "87": true,
	"88": true, "96": true, "97": true, "99": true,
}

// FormatPhone reformats input as the user types, grouping digits for
// readability: "+CC NNNN NNNN ..." with the country code split out, or
// "NNNN NNNN ..." without one. prev is the field's previous value; input that
// carries a second "+" or a non-leading "+" is rejected by returning prev.
func FormatPhone(prev, input string) string {
	var cleaned strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' || r == '+' || r == ' ' || r == '-' {
			cleaned.WriteRune(r)
		}
	}
	s := cleaned.String()

	if strings.Count(s, "+") > 1 {
		return prev
	}
	if i := strings.IndexByte(s, '+'); i > 0 {
		return prev
	}

	digits := strings.NewReplacer(" ", "", "-", "").Replace(s)
	if digits == "" {
		return ""
	}

	if !strings.HasPrefix(digits, "+") {
		return groupBy4(digits)
	}

	rest := digits[1:]
	if rest == "" {
		return "+"
	}
	ccLen := countryCodeLen(rest)
	if len(rest) <= ccLen {
		return "+" + rest
	}
	return "+" + rest[:ccLen] + " " + groupBy4(rest[ccLen:])
}

func countryCodeLen(digits string) int {
	if digits[0] == '1' || digits[0] == '7' {
		return 1
	}
	if len(digits) >= 2 && threeDigitZones[digits[:2]] {
		return 3
	}
	return 2
}

func groupBy4(digits string) string {
	var b strings.Builder
	for i := 0; i < len(digits); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(digits) {
			end = len(digits)
		}
		b.WriteString(digits[i:end])
	}
	return b.String()
}

func stripNonDialing(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
