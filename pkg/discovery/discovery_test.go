package discovery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/course-crawler/models"
)

type fakeFetcher struct {
	html  string
	err   error
	calls int
}

func (f *fakeFetcher) GetHtml(ctx context.Context, url string) (*goquery.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

func TestDiscoverPageCount(t *testing.T) {
	selectors := models.DefaultSiteConfig().PaginationSelectors

	tests := []struct {
		name string
		html string
		err  error
		want int
	}{
		{
			name: "largest href page",
			html: `<div class="pagination"><a href="?page=2">2</a><a href="?page=12">Last</a><a href="?page=3">3</a></div>`,
			want: 12,
		},
		{
			name: "text only links",
			html: `<div class="pager"><a>1</a><a>2</a><a>7</a><a>Next</a></div>`,
			want: 7,
		},
		{
			name: "first yielding selector wins",
			html: `<div class="pagination"><a href="?page=4">4</a></div><a href="/all?page=40">all</a>`,
			want: 4,
		},
		{
			name: "matched selector without numbers falls through",
			html: `<div class="pagination"><a>Prev</a><a>Next</a></div><a href="/list?page=9">9</a>`,
			want: 9,
		},
		{
			name: "no pagination",
			html: `<div class="course-card">x</div>`,
			want: DefaultPageCount,
		},
		{
			name: "fetch failure",
			err:  errors.New("connection refused"),
			want: DefaultPageCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{html: tt.html, err: tt.err}
			d := New(f, selectors, "page", DefaultPageCount, nil)
			if got := d.DiscoverPageCount(context.Background(), "https://example.com/courses"); got != tt.want {
				t.Errorf("DiscoverPageCount() = %d, want %d", got, tt.want)
			}
			if f.calls != 1 {
				t.Errorf("fetch calls = %d, want 1", f.calls)
			}
		})
	}
}

func TestDiscoverPageCount_ConfiguredDefault(t *testing.T) {
	d := New(&fakeFetcher{err: errors.New("boom")}, nil, "page", 3, nil)
	if got := d.DiscoverPageCount(context.Background(), "https://example.com"); got != 3 {
		t.Errorf("DiscoverPageCount() = %d, want 3", got)
	}
}
