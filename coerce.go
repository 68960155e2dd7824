package groundextract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// currencyRE matches a leading currency symbol on an otherwise numeric
// string, e.g. "$19.99", "€3,200.50".
var currencyRE = regexp.MustCompile(`^[\$€£¥]\s?[\d,]+(\.\d+)?$`)

// percentRE matches a trailing percent sign on an otherwise numeric
// string, e.g. "42%", "3.5 %".
var percentRE = regexp.MustCompile(`^[\d,]+(\.\d+)?\s?%$`)

var dateFieldHints = []string{"date", "_at", "time", "deadline", "dob"}

var trueKeywords = map[string]bool{"true": true, "yes": true, "y": true}
var falseKeywords = map[string]bool{"false": true, "no": true, "n": true}

// coerceValue type-coerces a raw extracted string into the most specific
// Go type it parses as, in the fixed order the original implementation
// follows: currency, percentage, date, email, phone, URL, integer,
// float, boolean. Order matters because a looser rule (float) would
// otherwise swallow values a stricter one (currency, percentage) should
// claim first. attrs is accepted but not consulted.
func coerceValue(class, text string, attrs map[string]any) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}

	if v, ok := coerceCurrency(trimmed); ok {
		return v
	}
	if v, ok := coercePercentage(trimmed); ok {
		return v
	}
	if isDateLikeField(class) {
		if v, ok := coerceDate(trimmed); ok {
			return v
		}
	}
	if isEmail(trimmed) {
		return trimmed
	}
	if isPhone(trimmed) {
		return trimmed
	}
	if isURL(trimmed) {
		return trimmed
	}
	if v, ok := coerceInteger(trimmed); ok {
		return v
	}
	if v, ok := coerceFloat(trimmed); ok {
		return v
	}
	if v, ok := coerceBoolean(trimmed); ok {
		return v
	}
	return text
}

func coerceCurrency(s string) (decimal.Decimal, bool) {
	if !currencyRE.MatchString(s) {
		return decimal.Decimal{}, false
	}
	digits := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', ' ', ',':
			return -1
		default:
			return r
		}
	}, s)
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// coercePercentage returns the fraction the percentage represents, not
// its bare magnitude: "95%" coerces to 0.95, the same value a field
// written as "0.95" coerces to.
func coercePercentage(s string) (decimal.Decimal, bool) {
	if !percentRE.MatchString(s) {
		return decimal.Decimal{}, false
	}
	digits := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	digits = strings.ReplaceAll(digits, ",", "")
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d.Div(decimal.NewFromInt(100)), true
}

// isDateLikeField gates date coercion by field name — the spec requires
// this because a date-shaped string ("2026-08-03") can just as well be a
// product code, and only the field's own name disambiguates which the
// model meant. A bare digit string ("20260803") matches none of
// dateLayouts and coerces to an integer even in a date-named field.
func isDateLikeField(class string) bool {
	lower := strings.ToLower(class)
	for _, hint := range dateFieldHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

func coerceDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func isEmail(s string) bool { return emailRE.MatchString(s) }

var phoneRE = regexp.MustCompile(`^\+?[\d\s().-]{7,}$`)

func isPhone(s string) bool {
	if !phoneRE.MatchString(s) {
		return false
	}
	// A bare number is left for the integer/float rules below.
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "www.")
}

func coerceInteger(s string) (int64, bool) {
	cleaned := strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func coerceFloat(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// coerceBoolean accepts only keyword forms (true/false/yes/no/y/n),
// never the numeric "1"/"0" — those already matched coerceInteger above
// and must not be reinterpreted as booleans.
func coerceBoolean(s string) (bool, bool) {
	lower := strings.ToLower(s)
	if trueKeywords[lower] {
		return true, true
	}
	if falseKeywords[lower] {
		return false, true
	}
	return false, false
}
