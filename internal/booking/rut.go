package booking

import (
	"strings"
)

// NormalizeRUT strips dots, spaces and the dash from a Chilean RUT and
// lower-cases the check digit: "12.345.678-5" -> "123456785".
func NormalizeRUT(raw string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= '0' && r <= '9', r == 'k':
			sb.WriteRune(r)
		case r == '.', r == '-', r == ' ':
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// FormatRUT renders a RUT in its canonical "body-dv" form.
func FormatRUT(raw string) string {
	n := NormalizeRUT(raw)
	if len(n) < 2 {
		return n
	}
	return n[:len(n)-1] + "-" + n[len(n)-1:]
}

// ValidRUT checks the weighted modulo-11 check digit of a RUT.
func ValidRUT(raw string) bool {
	n := NormalizeRUT(raw)
	if len(n) < 2 || len(n) > 9 {
		return false
	}
	body, dv := n[:len(n)-1], n[len(n)-1]
	for _, r := range body {
		if r < '0' || r > '9' {
			return false
		}
	}
	return rutCheckDigit(body) == dv
}

func rutCheckDigit(body string) byte {
	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch rem := 11 - sum%11; rem {
	case 11:
		return '0'
	case 10:
		return 'k'
	default:
		return byte('0' + rem)
	}
}
