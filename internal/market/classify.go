package market

import (
	"strings"
	"unicode"
)

// Classify maps a free-form security code to its market and normalized symbol.
// Accepted shapes: 600519, sh600519, sz000001, hk700, 00700, usAAPL, AAPL.
// It never fails; anything it cannot place is returned as Unknown.
func Classify(raw string) (Market, string) {
	code := strings.ToUpper(strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(code, "HK"):
		return HongKong, padHK(code[2:])
	case strings.HasPrefix(code, "US"):
		return US, code[2:]
	case strings.HasPrefix(code, "SH"):
		return Shanghai, code[2:]
	case strings.HasPrefix(code, "SZ"):
		return Shenzhen, code[2:]
	}

	if isDigits(code) {
		switch len(code) {
		case 5:
			return HongKong, code
		case 6:
			if code[0] == '6' {
				return Shanghai, code
			}
			return Shenzhen, code
		}
	}

	if code != "" && unicode.IsLetter(rune(code[0])) {
		return US, code
	}
	return Unknown, code
}

func padHK(symbol string) string {
	if len(symbol) >= 5 {
		return symbol
	}
	return strings.Repeat("0", 5-len(symbol)) + symbol
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsETFCode reports whether an A-share code sits in an exchange-traded fund range.
func IsETFCode(code string) bool {
	for _, p := range []string{"51", "56", "15"} {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
