package validation

import "strings"

// FormatPhone keeps only digits and, for up to 11 digits, renders them progressively
// as "(##) #####-####". Longer inputs are returned as bare digits.
func FormatPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || len(digits) > 11 {
		return digits
	}

	var out strings.Builder
	out.WriteString("(")
	out.WriteString(digits[:min(2, len(digits))])
	if len(digits) > 2 {
		out.WriteString(") ")
		out.WriteString(digits[2:min(7, len(digits))])
	}
	if len(digits) > 7 {
		out.WriteString("-")
		out.WriteString(digits[7:])
	}
	return out.String()
}
