package console

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePanel(t *testing.T, s Snapshot) *goquery.Document {
	t.Helper()
	html, err := PanelHTML(s)
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestView(t *testing.T) {
	testCases := []struct {
		name         string
		snap         Snapshot
		wantLog      []string
		wantError    string
		wantDocument bool
	}{
		{
			name:    "busy without progress shows placeholder",
			snap:    Snapshot{Busy: true},
			wantLog: []string{PlaceholderLine},
		},
		{
			name:    "busy with progress shows the log",
			snap:    Snapshot{Busy: true, Log: []string{"a", "b"}},
			wantLog: []string{"a", "b"},
		},
		{
			name:      "error wins over document",
			snap:      Snapshot{Error: "invalid zip", Readme: "# Old"},
			wantError: "invalid zip",
		},
		{
			name:      "error shown even while busy",
			snap:      Snapshot{Busy: true, Error: "boom"},
			wantLog:   []string{PlaceholderLine},
			wantError: "boom",
		},
		{
			name:         "document",
			snap:         Snapshot{Readme: "# Hello"},
			wantDocument: true,
		},
		{
			name: "idle and empty",
			snap: Snapshot{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := View(tc.snap)
			assert.Equal(t, tc.wantLog != nil, p.ShowLog)
			if tc.wantLog != nil {
				assert.Equal(t, tc.wantLog, p.Lines)
			}
			assert.Equal(t, tc.wantError, p.Error)
			assert.Equal(t, tc.wantDocument, p.ShowDocument)
		})
	}
}

func TestPanelHTML(t *testing.T) {
	t.Run("document renders heading and download link", func(t *testing.T) {
		doc := parsePanel(t, Snapshot{Readme: "# Hello"})
		assert.Equal(t, "Hello", doc.Find(".markdown-body h1").Text())
		link := doc.Find("a.download")
		assert.Equal(t, 1, link.Length())
		href, _ := link.Attr("href")
		assert.Equal(t, "/api/console/download", href)
	})

	t.Run("log lines are escaped", func(t *testing.T) {
		doc := parsePanel(t, Snapshot{Busy: true, Log: []string{"<b>bold</b>", "second"}})
		lines := doc.Find("#progress-log .log-line")
		require.Equal(t, 2, lines.Length())
		assert.Equal(t, "<b>bold</b>", lines.First().Text())
		assert.Equal(t, 0, doc.Find("#progress-log b").Length())
	})

	t.Run("error", func(t *testing.T) {
		doc := parsePanel(t, Snapshot{Error: "invalid zip"})
		assert.Contains(t, doc.Find(".error").Text(), "invalid zip")
		assert.Equal(t, 0, doc.Find("a.download").Length())
	})

	t.Run("empty state renders nothing", func(t *testing.T) {
		html, err := PanelHTML(Snapshot{})
		require.NoError(t, err)
		assert.Empty(t, strings.TrimSpace(html))
	})
}

func TestUpdate(t *testing.T) {
	u := Update(Snapshot{ConsoleID: "c1", Cycle: 3, Busy: true, Log: []string{"one", "two"}})
	assert.Equal(t, "c1", u.ConsoleID)
	assert.Equal(t, uint64(3), u.Cycle)
	assert.True(t, u.Busy)
	assert.Equal(t, 2, u.LogLines)
	assert.False(t, u.HasReadme)
	assert.Contains(t, u.Panel, "two")

	u = Update(Snapshot{ConsoleID: "c1", Readme: "# Done"})
	assert.True(t, u.HasReadme)
	assert.Contains(t, u.Panel, "markdown-body")
}
