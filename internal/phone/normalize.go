package phone

import (
	"regexp"
	"strconv"
	"strings"
)

const countryCode = "61"

var scientific = regexp.MustCompile(`^\+?(\d+)(?:\.(\d+))?[eE]\+?(\d+)$`)

// Number is a canonical phone number and its display form.
type Number struct {
	Canonical string
	Display   string
}

// Normalize returns the canonical form of raw, or false when raw is not a
// recognisable Australian number. Normalize is idempotent on its own output.
func Normalize(raw string) (Number, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Number{}, false
	}
	compact := strings.Join(strings.Fields(trimmed), "")
	if m := scientific.FindStringSubmatch(compact); m != nil {
		if expanded, ok := expandScientific(m[1], m[2], m[3]); ok {
			if canonical, ok := canonicalDigits(expanded); ok {
				return Number{Canonical: canonical, Display: Display(canonical)}, true
			}
		}
		// Spreadsheet exports truncate trailing digits; the mantissa alone
		// often still carries the subscriber number.
		if canonical, ok := canonicalDigits(m[1] + m[2]); ok {
			return Number{Canonical: canonical, Display: Display(canonical)}, true
		}
		return Number{}, false
	}
	canonical, ok := canonicalDigits(Digits(trimmed))
	if !ok {
		return Number{}, false
	}
	return Number{Canonical: canonical, Display: Display(canonical)}, true
}

// Canonical returns the canonical form of raw or "" when invalid.
func Canonical(raw string) string {
	n, ok := Normalize(raw)
	if !ok {
		return ""
	}
	return n.Canonical
}

// Display formats a canonical Australian number as `+61 X XXXX XXXX`. Other
// values are returned unchanged.
func Display(canonical string) string {
	if len(canonical) != 11 || !strings.HasPrefix(canonical, countryCode) || !allDigits(canonical) {
		return canonical
	}
	return "+61 " + canonical[2:3] + " " + canonical[3:7] + " " + canonical[7:]
}

// Digits strips everything except ASCII digits.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tail9 returns the last nine digits of raw for called-list membership tests.
// It must never be used as a row identity.
func Tail9(raw string) string {
	d := Digits(raw)
	if len(d) <= 9 {
		return d
	}
	return d[len(d)-9:]
}

func canonicalDigits(d string) (string, bool) {
	switch {
	case len(d) == 10 && d[0] == '0':
		return countryCode + d[1:], true
	case len(d) == 9 && d[0] == '4':
		return countryCode + d, true
	case len(d) == 11 && strings.HasPrefix(d, countryCode):
		return d, true
	default:
		return "", false
	}
}

// expandScientific performs the integer cast of mantissa*10^exp without
// floating point rounding.
func expandScientific(intPart, fracPart, exponent string) (string, bool) {
	exp, err := strconv.Atoi(exponent)
	if err != nil || exp > 20 {
		return "", false
	}
	digits := intPart + fracPart
	shift := exp - len(fracPart)
	if shift >= 0 {
		digits += strings.Repeat("0", shift)
	} else {
		digits = digits[:len(digits)+shift]
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "", false
	}
	return digits, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
