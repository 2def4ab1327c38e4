package pdf

import (
	"regexp"
	"unicode/utf8"
)

const contextRunes = 100

// SearchText finds every case-insensitive occurrence of query in the result's
// pages. The scan resumes one character after each match start, so
// overlapping occurrences are all reported.
func SearchText(result *ProcessingResult, query string) SearchResult {
	sr := SearchResult{Query: query, Matches: []PageMatches{}}
	if query == "" || result == nil || len(result.Pages) == 0 {
		return sr
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	for _, page := range result.Pages {
		text := page.Text
		var matches []TextMatch
		for start := 0; start < len(text); {
			loc := re.FindStringIndex(text[start:])
			if loc == nil {
				break
			}
			pos, end := start+loc[0], start+loc[1]
			matches = append(matches, TextMatch{
				Position:  pos,
				Context:   text[backRunes(text, pos, contextRunes):forwardRunes(text, end, contextRunes)],
				MatchText: text[pos:end],
			})
			_, size := utf8.DecodeRuneInString(text[pos:])
			start = pos + size
		}
		if len(matches) == 0 {
			continue
		}
		sr.Matches = append(sr.Matches, PageMatches{
			PageNumber: page.PageNumber,
			Matches:    matches,
			MatchCount: len(matches),
		})
		sr.TotalMatches += len(matches)
	}
	sr.PagesWithMatches = len(sr.Matches)
	return sr
}

// Summarize computes page statistics of an already-produced result.
func Summarize(result *ProcessingResult) (*Summary, error) {
	if result == nil || len(result.Pages) == 0 {
		return nil, ErrNoPages
	}

	s := &Summary{
		Filename:        result.Filename,
		TotalPages:      result.TotalPages,
		TotalTextLength: result.TotalTextLength,
		FileSize:        result.FileSize,
		ProcessedAt:     result.ProcessedAt,
		Metadata:        result.Metadata,
		ShortestPage:    result.Pages[0].TextLength,
	}
	if s.Filename == "" {
		s.Filename = "Unknown"
	}
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}

	sum := 0
	for _, page := range result.Pages {
		n := page.TextLength
		sum += n
		if n > s.LongestPage {
			s.LongestPage = n
		}
		if n < s.ShortestPage {
			s.ShortestPage = n
		}
		if len(page.Tables) > 0 {
			s.PagesWithTables++
		}
		s.TotalTables += len(page.Tables)
	}
	s.AveragePageLength = float64(sum) / float64(len(result.Pages))
	return s, nil
}

func backRunes(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

func forwardRunes(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
