package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricetrack/models"
)

// ExtractField applies one extraction rule to an HTML document and returns
// the trimmed field value. A regex rule wins over a selector rule; the
// first capture group is used when present, otherwise the whole match.
func ExtractField(html string, rule models.StrategyRule) (string, error) {
	if rule.IsZero() {
		return "", fmt.Errorf("empty extraction rule")
	}

	if rule.Regex != "" {
		re, err := regexp.Compile(rule.Regex)
		if err != nil {
			return "", fmt.Errorf("invalid regex %q: %w", rule.Regex, err)
		}
		matches := re.FindStringSubmatch(html)
		if matches == nil {
			return "", fmt.Errorf("regex %q matched nothing", rule.Regex)
		}
		if len(matches) > 1 && matches[1] != "" {
			return strings.TrimSpace(matches[1]), nil
		}
		return strings.TrimSpace(matches[0]), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	sel := doc.Find(rule.Selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("selector %q matched nothing", rule.Selector)
	}

	if rule.Attribute != "" {
		value, ok := sel.Attr(rule.Attribute)
		if !ok {
			return "", fmt.Errorf("attribute %q not present on %q", rule.Attribute, rule.Selector)
		}
		return strings.TrimSpace(value), nil
	}

	return strings.TrimSpace(sel.Text()), nil
}

// ExtractPrice applies a price rule to an HTML document and parses the
// result into a value and ISO currency code (empty when the text carried
// no recognizable symbol).
func ExtractPrice(html string, rule models.StrategyRule, parser *LocaleParser) (float64, string, error) {
	text, err := ExtractField(html, rule)
	if err != nil {
		return 0, "", err
	}

	value, symbol, err := parser.ParsePrice(text)
	if err != nil {
		return 0, "", err
	}

	return value, NormalizeCurrency(symbol), nil
}
