package intake

import "strings"

// MaskIDNumber redacts all but the last four digits of an identity number and
// regroups the result into blocks of four for readability. Inputs of four or
// fewer digits are returned unmasked. Non-digit characters are dropped first,
// so the function is idempotent over its own visible tail.
func MaskIDNumber(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) <= 4 {
		return d
	}

	masked := strings.Repeat("*", len(d)-4) + d[len(d)-4:]
	groups := make([]string, 0, (len(masked)+3)/4)
	for i := 0; i < len(masked); i += 4 {
		end := i + 4
		if end > len(masked) {
			end = len(masked)
		}
		groups = append(groups, masked[i:end])
	}
	return strings.Join(groups, " ")
}
