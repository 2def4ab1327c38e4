package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultWithPages(texts ...string) *ProcessingResult {
	r := &ProcessingResult{Filename: "doc.pdf", Metadata: map[string]any{"extraction_method": MethodStandard}}
	for i, text := range texts {
		r.Pages = append(r.Pages, PageResult{PageNumber: i + 1, Text: text, TextLength: len([]rune(text)), Tables: []Table{}})
		r.TotalTextLength += len([]rune(text))
	}
	r.TotalPages = len(r.Pages)
	return r
}

func TestSearchTextOverlapping(t *testing.T) {
	sr := SearchText(resultWithPages("aaaa"), "aa")

	require.Len(t, sr.Matches, 1)
	require.Equal(t, 3, sr.TotalMatches)
	positions := []int{}
	for _, m := range sr.Matches[0].Matches {
		positions = append(positions, m.Position)
		assert.Equal(t, "aa", m.MatchText)
	}
	assert.Equal(t, []int{0, 1, 2}, positions)
}

func TestSearchTextCaseInsensitive(t *testing.T) {
	sr := SearchText(resultWithPages("no hit here", "Patient DOE and doe"), "Doe")

	assert.Equal(t, "Doe", sr.Query)
	assert.Equal(t, 1, sr.PagesWithMatches)
	require.Len(t, sr.Matches, 1)
	assert.Equal(t, 2, sr.Matches[0].PageNumber)
	assert.Equal(t, 2, sr.Matches[0].MatchCount)
	assert.Equal(t, "DOE", sr.Matches[0].Matches[0].MatchText)
	assert.Equal(t, "doe", sr.Matches[0].Matches[1].MatchText)
}

func TestSearchTextContextWindow(t *testing.T) {
	text := strings.Repeat("x", 150) + "needle" + strings.Repeat("y", 150)
	sr := SearchText(resultWithPages(text), "needle")

	require.Equal(t, 1, sr.TotalMatches)
	m := sr.Matches[0].Matches[0]
	assert.Equal(t, 150, m.Position)
	assert.Equal(t, strings.Repeat("x", 100)+"needle"+strings.Repeat("y", 100), m.Context)

	short := SearchText(resultWithPages("a needle b"), "needle").Matches[0].Matches[0]
	assert.Equal(t, "a needle b", short.Context)
}

func TestSearchTextEmpty(t *testing.T) {
	assert.Zero(t, SearchText(resultWithPages("abc"), "").TotalMatches)
	assert.Empty(t, SearchText(&ProcessingResult{}, "abc").Matches)
	assert.Empty(t, SearchText(nil, "abc").Matches)
}

func TestSearchTextRegexCharacters(t *testing.T) {
	sr := SearchText(resultWithPages("cost (USD) 1.5 or 105"), "1.5")
	assert.Equal(t, 1, sr.TotalMatches)
}

func TestSummarize(t *testing.T) {
	r := resultWithPages("abcd", "", "ab")
	r.Pages[0].Tables = []Table{{{"a", "b"}}, {{"c", "d"}}}
	r.FileSize = 2048

	s, err := Summarize(r)
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", s.Filename)
	assert.Equal(t, 3, s.TotalPages)
	assert.Equal(t, 6, s.TotalTextLength)
	assert.InDelta(t, 2.0, s.AveragePageLength, 1e-9)
	assert.Equal(t, 4, s.LongestPage)
	assert.Equal(t, 0, s.ShortestPage)
	assert.Equal(t, 1, s.PagesWithTables)
	assert.Equal(t, 2, s.TotalTables)
	assert.Equal(t, int64(2048), s.FileSize)
	assert.Equal(t, MethodStandard, s.Metadata["extraction_method"])
}

func TestSummarizeNoPages(t *testing.T) {
	_, err := Summarize(&ProcessingResult{})
	assert.ErrorIs(t, err, ErrNoPages)

	_, err = Summarize(nil)
	assert.ErrorIs(t, err, ErrNoPages)
}
