package piivault

import "strings"

// Normalizer canonicalizes raw input before it is hashed or compared.
// Every Normalizer is pure and total: invalid-looking input still normalizes
// to something, and validating the result is the caller's job.
//
// The same normalizer must run on both write and search. Mixing normalizers
// breaks lookups.
type Normalizer func(string) string

// NormalizePhone keeps ASCII digits only and drops everything else.
//
// Example: "+65 9123-4567" -> "6591234567"
var NormalizePhone Normalizer = func(s string) string {
	var digits strings.Builder
	digits.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// NormalizeEmail trims whitespace and lowercases ASCII letters. Full Unicode
// case-folding of the local part is deliberately not attempted: email
// comparison here is ASCII-case-insensitive by convention.
//
// Example: " Alice@Example.COM " -> "alice@example.com"
var NormalizeEmail Normalizer = func(s string) string {
	return asciiLower(strings.TrimSpace(s))
}

// NormalizeName takes the substring up to the first whitespace run and
// uppercases its ASCII letters.
//
// First-name collision is a deliberately loose duplicate signal, not an
// identity check: "John Smith" and "John Doe" normalize identically, while
// reordered names do not. Tightening or loosening this rule is a product
// decision, not an implementation detail.
//
// Example: " john doe " -> "JOHN"
var NormalizeName Normalizer = func(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return asciiUpper(fields[0])
}

// ValidPhoneDigits reports whether an already-normalized phone value falls
// inside the accepted digit-count policy range.
func ValidPhoneDigits(digits string) bool {
	return len(digits) >= MinPhoneDigits && len(digits) <= MaxPhoneDigits
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func asciiUpper(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, s)
}
