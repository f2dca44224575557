package engine

import "strings"

// GuessMarket qualifies a holding's code with a market prefix. Six-digit codes
// starting with 00 outside Shenzhen's 000/002/003 ranges are padded Hong Kong listings.
// The name is accepted for callers that have it but does not change the guess.
func GuessMarket(code, name string) string {
	switch len(code) {
	case 5:
		return "hk" + code
	case 6:
		if strings.HasPrefix(code, "00") &&
			!strings.HasPrefix(code, "000") &&
			!strings.HasPrefix(code, "002") &&
			!strings.HasPrefix(code, "003") {
			return "hk" + code
		}
		if strings.HasPrefix(code, "6") {
			return "sh" + code
		}
		return "sz" + code
	}
	return code
}

// ETFListCode qualifies a feeder's ETF code: 51/56 trade in Shanghai, the rest in Shenzhen.
func ETFListCode(code string) string {
	if strings.HasPrefix(code, "51") || strings.HasPrefix(code, "56") {
		return "sh" + code
	}
	return "sz" + code
}
