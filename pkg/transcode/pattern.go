package transcode

import (
	"fmt"
	"strings"
	"unicode"
)

// Layout translates a custom date pattern in the notation Keyfactor is
// configured with (for example "M/d/yyyy h:mm:ss tt") into a Go time layout.
//
// Supported specifiers: y, yy, yyyy; M, MM, MMM, MMMM; d, dd, ddd, dddd;
// h, hh, H, HH; m, mm; s, ss; f and F runs after '.' or ','; tt; z, zz, zzz; K.
// Text may be quoted with ' or " or escaped with a backslash. Digits are not
// accepted as literals because Go reads them as layout elements.
func Layout(pattern string) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", fmt.Errorf("empty date pattern")
	}

	runes := []rune(pattern)
	var b strings.Builder
	for i := 0; i < len(runes); {
		r := runes[i]

		switch {
		case r == '\'' || r == '"':
			end := i + 1
			for end < len(runes) && runes[end] != r {
				end++
			}
			if end == len(runes) {
				return "", fmt.Errorf("unterminated quote in date pattern %q", pattern)
			}
			if err := literal(&b, runes[i+1:end], pattern); err != nil {
				return "", err
			}
			i = end + 1
			continue

		case r == '\\':
			if i+1 == len(runes) {
				return "", fmt.Errorf("dangling escape in date pattern %q", pattern)
			}
			if err := literal(&b, runes[i+1:i+2], pattern); err != nil {
				return "", err
			}
			i += 2
			continue

		case unicode.IsLetter(r):
			n := 1
			for i+n < len(runes) && runes[i+n] == r {
				n++
			}
			elem, err := specifier(r, n, precededBySeparator(runes, i))
			if err != nil {
				return "", fmt.Errorf("date pattern %q: %w", pattern, err)
			}
			b.WriteString(elem)
			i += n
			continue
		}

		if err := literal(&b, runes[i:i+1], pattern); err != nil {
			return "", err
		}
		i++
	}
	return b.String(), nil
}

func precededBySeparator(runes []rune, i int) bool {
	return i > 0 && (runes[i-1] == '.' || runes[i-1] == ',')
}

func literal(b *strings.Builder, text []rune, pattern string) error {
	for _, r := range text {
		if unicode.IsDigit(r) {
			return fmt.Errorf("date pattern %q: digit literal %q is not supported", pattern, r)
		}
		b.WriteRune(r)
	}
	return nil
}

func specifier(r rune, n int, afterSeparator bool) (string, error) {
	switch r {
	case 'y':
		switch {
		case n <= 2:
			return "06", nil
		default:
			return "2006", nil
		}
	case 'M':
		return pick(n, "1", "01", "Jan", "January"), nil
	case 'd':
		return pick(n, "2", "02", "Mon", "Monday"), nil
	case 'h':
		return pick(n, "3", "03"), nil
	case 'H':
		return "15", nil
	case 'm':
		return pick(n, "4", "04"), nil
	case 's':
		return pick(n, "5", "05"), nil
	case 't':
		if n == 2 {
			return "PM", nil
		}
	case 'f', 'F':
		if !afterSeparator || n > 9 {
			return "", fmt.Errorf("fractional seconds %q must follow '.' or ',' and have at most 9 digits", strings.Repeat(string(r), n))
		}
		digit := "0"
		if r == 'F' {
			digit = "9"
		}
		return strings.Repeat(digit, n), nil
	case 'z':
		return pick(n, "-07", "-07", "-07:00"), nil
	case 'K':
		if n == 1 {
			return "Z07:00", nil
		}
	}
	return "", fmt.Errorf("unsupported specifier %q", strings.Repeat(string(r), n))
}

// pick returns forms[n-1], saturating at the longest form.
func pick(n int, forms ...string) string {
	if n > len(forms) {
		n = len(forms)
	}
	return forms[n-1]
}
