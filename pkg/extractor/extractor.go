// Package extractor holds the fallback-chain combinators used to probe HTML
// fragments for a field value.
package extractor

import (
	"bufio"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way of extracting a value from a selection. ok is false
// when the strategy found nothing usable.
type Strategy[T any] func(sel *goquery.Selection) (value T, ok bool)

// FirstOf returns a strategy that yields the first successful result of
// strategies, in order.
func FirstOf[T any](strategies ...Strategy[T]) Strategy[T] {
	return func(sel *goquery.Selection) (T, bool) {
		for _, s := range strategies {
			if v, ok := s(sel); ok {
				return v, true
			}
		}
		var zero T
		return zero, false
	}
}

// Extract runs s against sel and falls back to def when nothing matched.
func Extract[T any](sel *goquery.Selection, s Strategy[T], def T) T {
	if v, ok := s(sel); ok {
		return v
	}
	return def
}

// Map converts the result of s with fn. A false from fn counts as a miss.
func Map[T, U any](s Strategy[T], fn func(T) (U, bool)) Strategy[U] {
	return func(sel *goquery.Selection) (U, bool) {
		v, ok := s(sel)
		if !ok {
			var zero U
			return zero, false
		}
		return fn(v)
	}
}

// Text tries each selector in turn and yields the first non-empty normalized text.
func Text(selectors ...string) Strategy[string] {
	return func(sel *goquery.Selection) (string, bool) {
		for _, q := range selectors {
			if text := NormalizeText(sel.Find(q).First().Text()); text != "" {
				return text, true
			}
		}
		return "", false
	}
}

// Attr tries each selector in turn and yields the first non-empty value of attr.
func Attr(attr string, selectors ...string) Strategy[string] {
	return func(sel *goquery.Selection) (string, bool) {
		for _, q := range selectors {
			if v, ok := sel.Find(q).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}
}

// OwnAttr reads attr from the selection itself.
func OwnAttr(attr string) Strategy[string] {
	return func(sel *goquery.Selection) (string, bool) {
		v, ok := sel.Attr(attr)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
}

// Meta reads the content attribute of a <meta> element matched by selector.
func Meta(selector string) Strategy[string] {
	return Attr("content", selector)
}

// TruncatedText yields the selection's own text cut to at most max runes.
func TruncatedText(max int) Strategy[string] {
	return func(sel *goquery.Selection) (string, bool) {
		text := NormalizeText(sel.Text())
		if text == "" {
			return "", false
		}
		return Truncate(text, max), true
	}
}

// Literal always succeeds with v.
func Literal[T any](v T) Strategy[T] {
	return func(*goquery.Selection) (T, bool) { return v, true }
}

// Int parses the first run of digits in a string, ignoring thousands separators.
func Int(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 && r != ',' {
			break
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

// NormalizeText cleans up a string by trimming space and collapsing newlines.
func NormalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
