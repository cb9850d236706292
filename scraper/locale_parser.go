package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LocaleParser turns scraped price strings from different regions into
// plain decimals: thousands separators and currency symbols are stripped
// before parsing.
type LocaleParser struct {
	patterns map[string]*regexp.Regexp
}

// NewLocaleParser creates a locale-aware price parser.
func NewLocaleParser() *LocaleParser {
	return &LocaleParser{
		patterns: map[string]*regexp.Regexp{
			// US/UK: $1,234.56 or £1,234.56
			"us_uk": regexp.MustCompile(`(?i)(\$|£|€)?\s*([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?)`),

			// European: €1.234,56 or €1 234,56
			"european": regexp.MustCompile(`(?i)(\$|£|€)?\s*([0-9]{1,3}(?:[.\s][0-9]{3})+(?:,[0-9]{1,2})?)`),

			// Price with currency symbol, no thousands separators
			"currency_only": regexp.MustCompile(`(?i)(\$|£|€)\s*([0-9]+(?:[.,][0-9]{1,2})?)`),

			// Bare decimal: 1234.56 or 1234,56
			"simple": regexp.MustCompile(`()([0-9]+(?:[.,][0-9]{1,2})?)`),
		},
	}
}

// ParsePrice parses a price string, trying locale patterns in order of
// specificity. It returns the value and any currency symbol found.
func (lp *LocaleParser) ParsePrice(text string) (float64, string, error) {
	text = strings.TrimSpace(text)

	for _, name := range []string{"us_uk", "european", "currency_only", "simple"} {
		matches := lp.patterns[name].FindStringSubmatch(text)
		if matches == nil {
			continue
		}

		symbol := matches[1]
		clean := lp.cleanNumberString(matches[2], name)
		if value, err := strconv.ParseFloat(clean, 64); err == nil {
			return value, symbol, nil
		}
	}

	return 0, "", fmt.Errorf("no valid price in %q", text)
}

// cleanNumberString converts a locale-specific number to standard decimal
// notation.
func (lp *LocaleParser) cleanNumberString(number, locale string) string {
	switch locale {
	case "us_uk":
		// 1,234.56 -> 1234.56
		return strings.ReplaceAll(number, ",", "")

	case "european":
		// 1.234,56 / 1 234,56 -> 1234.56
		number = strings.ReplaceAll(number, ".", "")
		number = strings.ReplaceAll(number, " ", "")
		return strings.ReplaceAll(number, ",", ".")

	default:
		// A lone comma is a decimal separator: 1234,56 -> 1234.56
		if strings.Contains(number, ",") && !strings.Contains(number, ".") {
			return strings.ReplaceAll(number, ",", ".")
		}
		return number
	}
}

var currencySymbols = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
	"¥": "JPY",
	"₹": "INR",
}

// NormalizeCurrency maps a currency symbol or code to an ISO 4217 code.
// Unrecognized input yields the empty string.
func NormalizeCurrency(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if code, ok := currencySymbols[raw]; ok {
		return code
	}
	if len(raw) == 3 {
		upper := strings.ToUpper(raw)
		for _, r := range upper {
			if r < 'A' || r > 'Z' {
				return ""
			}
		}
		return upper
	}
	return ""
}
