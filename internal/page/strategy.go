package page

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// extractor is one candidate location for a field. It returns "" when the
// location is absent or empty.
type extractor func(root *goquery.Selection) string

// firstOf runs extractors in order and returns the first non-empty result.
func firstOf(root *goquery.Selection, extractors ...extractor) string {
	for _, ex := range extractors {
		if v := ex(root); v != "" {
			return v
		}
	}
	return ""
}

// text reads the text of the first element matching selector.
func text(selector string) extractor {
	return func(root *goquery.Selection) string {
		return clean(root.Find(selector).First().Text())
	}
}

// attr reads an attribute of the first element matching selector.
func attr(selector, name string) extractor {
	return func(root *goquery.Selection) string {
		v, _ := root.Find(selector).First().Attr(name)
		return clean(v)
	}
}

// mapped applies fn to the result of ex.
func mapped(ex extractor, fn func(string) string) extractor {
	return func(root *goquery.Selection) string {
		if v := ex(root); v != "" {
			return fn(v)
		}
		return ""
	}
}

// clean normalizes to NFC and collapses runs of whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// stripSiteSuffix drops the " - YouTube" suffix of document titles.
func stripSiteSuffix(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(s, " - YouTube"))
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// clockDuration turns ISO-8601 durations (PT4M13S) into clock form (4:13).
// Anything else is returned unchanged.
func clockDuration(s string) string {
	m := isoDuration.FindStringSubmatch(strings.ToUpper(s))
	if m == nil || s == "P" || s == "PT" {
		return s
	}

	n := func(v string) int {
		i, _ := strconv.Atoi(v)
		return i
	}
	hours := n(m[1])*24 + n(m[2])
	minutes, seconds := n(m[3]), n(m[4])

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

var firstNumber = regexp.MustCompile(`\d[\d,.\s]*`)

// countFrom reads the first integer in strings like "1,234 videos".
func countFrom(s string) int {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
