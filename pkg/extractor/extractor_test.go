package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func card(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("NewDocumentFromReader() failed: %v", err)
	}
	return doc.Find(".card").First()
}

func TestFirstOf_TitleChain(t *testing.T) {
	title := FirstOf(
		Text(".course-title", "h3", ".title"),
		OwnAttr("title"),
		TruncatedText(10),
		Literal("Unknown"),
	)

	tests := []struct {
		name string
		html string
		want string
	}{
		{"named class wins", `<div class="card"><h3>Heading</h3><span class="course-title">Named</span></div>`, "Named"},
		{"heading fallback", `<div class="card"><h3>  Go   Basics </h3></div>`, "Go Basics"},
		{"title attribute", `<div class="card" title="From Attr"><img src="x.png"></div>`, "From Attr"},
		{"raw truncated text", `<div class="card"><span>abcdefghijklmnop</span></div>`, "abcdefghij"},
		{"literal unknown", `<div class="card"><img src="x.png"></div>`, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := title(card(t, tt.html))
			if !ok {
				t.Fatal("FirstOf() ok = false, want true")
			}
			if got != tt.want {
				t.Errorf("FirstOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstOf_NoStrategyMatches(t *testing.T) {
	s := FirstOf(Text(".missing"), Attr("src", "img"))
	if v, ok := s(card(t, `<div class="card"><p>text</p></div>`)); ok {
		t.Errorf("FirstOf() = %q, true; want miss", v)
	}
	if got := Extract(card(t, `<div class="card"></div>`), s, "default"); got != "default" {
		t.Errorf("Extract() = %q, want default", got)
	}
}

func TestMap_ParsesNumbers(t *testing.T) {
	learners := Map(Text(".learners"), Int)
	got, ok := learners(card(t, `<div class="card"><span class="learners">12,345 learners</span></div>`))
	if !ok || got != 12345 {
		t.Errorf("learners = %d, %v; want 12345, true", got, ok)
	}
	if _, ok := learners(card(t, `<div class="card"><span class="learners">many</span></div>`)); ok {
		t.Error("learners ok = true for non-numeric text")
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"page=7", 7, true},
		{"1,024 students", 1024, true},
		{"12 weeks, 3 hours", 12, true},
		{"none", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := Int(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Int(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTruncate_CountsRunes(t *testing.T) {
	if got := Truncate("机器学习入门课程", 4); got != "机器学习" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("short", 50); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("\n   Intro  to\tGo \n\n  Programming  \n")
	if got != "Intro to Go Programming" {
		t.Errorf("NormalizeText() = %q", got)
	}
}
