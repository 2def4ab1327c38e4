package pdf

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"
)

const (
	// Horizontal gap, in points, that separates two table cells on the same row.
	columnGap = 15.0
	// Width estimate per rune when the content stream does not carry glyph widths.
	avgGlyphWidth = 5.0
	// Gap above which two runs inside one cell are joined with a space.
	wordGap = 1.0
)

// textRun is a positioned piece of text on one baseline.
type textRun struct {
	X float64
	W float64
	S string
}

func (r textRun) end() float64 {
	if r.W > 0 {
		return r.X + r.W
	}
	return r.X + float64(utf8.RuneCountInString(r.S))*avgGlyphWidth
}

// layoutRow is one visual line of a page, runs ordered left to right.
type layoutRow []textRun

// rowsFromPDF converts ledongthuc rows (top to bottom) into layout rows.
func rowsFromPDF(rows lpdf.Rows) []layoutRow {
	out := make([]layoutRow, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		lr := make(layoutRow, 0, len(row.Content))
		for _, t := range row.Content {
			if t.S == "" {
				continue
			}
			lr = append(lr, textRun{X: t.X, W: t.W, S: t.S})
		}
		if len(lr) == 0 {
			continue
		}
		sort.SliceStable(lr, func(i, j int) bool { return lr[i].X < lr[j].X })
		out = append(out, lr)
	}
	return out
}

// cells splits a row into cells at gaps wider than columnGap.
func (row layoutRow) cells() []string {
	var (
		cells   []string
		cur     strings.Builder
		lastEnd float64
	)
	for i, run := range row {
		if i > 0 {
			gap := run.X - lastEnd
			if gap >= columnGap {
				cells = append(cells, strings.TrimSpace(cur.String()))
				cur.Reset()
			} else if gap > wordGap && !endsWithSpace(cur.String()) && !startsWithSpace(run.S) {
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(run.S)
		lastEnd = run.end()
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}

// renderText joins the rows into page text, one line per row.
func renderText(rows []layoutRow) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		line := strings.Join(nonEmpty(row.cells()), " ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// detectTables groups runs of at least two consecutive multi-cell rows into tables.
// Short rows are padded with empty cells to the widest row of their table.
func detectTables(rows []layoutRow) []Table {
	tables := []Table{}
	var cur Table
	flush := func() {
		if len(cur) >= 2 {
			tables = append(tables, padTable(cur))
		}
		cur = nil
	}
	for _, row := range rows {
		cells := row.cells()
		if len(cells) < 2 {
			flush()
			continue
		}
		cur = append(cur, cells)
	}
	flush()
	return tables
}

func padTable(t Table) Table {
	width := 0
	for _, r := range t {
		if len(r) > width {
			width = len(r)
		}
	}
	for i, r := range t {
		for len(r) < width {
			r = append(r, "")
		}
		t[i] = r
	}
	return t
}

func nonEmpty(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return s == "" || unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}
