// Package pdftest builds small uncompressed PDFs for tests.
package pdftest

import (
	"strconv"
	"strings"
)

// Run is one Tj placed at an absolute position on the page.
type Run struct {
	X, Y float64
	S    string
}

// Lines places one run per text line, top to bottom, 20pt apart.
func Lines(ss ...string) []Run {
	out := make([]Run, len(ss))
	for i, s := range ss {
		out[i] = Run{X: 72, Y: 720 - float64(i)*20, S: s}
	}
	return out
}

// Build returns a PDF with one US Letter page per element of pages.
// A nil page has an empty content stream, like a scanned image page.
func Build(pages ...[]Run) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	n := len(pages)
	fontObj := 3 + 2*n
	offsets := make([]int, fontObj+1)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, n)
	for i := range pages {
		kids[i] = strconv.Itoa(3+2*i) + " 0 R"
	}
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [" + strings.Join(kids, " ") + "] /Count " + strconv.Itoa(n) + " >>\nendobj\n")

	for i, runs := range pages {
		pageObj, contentObj := 3+2*i, 4+2*i

		var stream strings.Builder
		if len(runs) > 0 {
			stream.WriteString("BT\n/F1 12 Tf\n")
			for _, r := range runs {
				stream.WriteString("1 0 0 1 " + ftoa(r.X) + " " + ftoa(r.Y) + " Tm\n(" + escape(r.S) + ") Tj\n")
			}
			stream.WriteString("ET")
		}

		offsets[pageObj] = b.Len()
		b.WriteString(strconv.Itoa(pageObj) + " 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents " +
			strconv.Itoa(contentObj) + " 0 R /Resources << /Font << /F1 " + strconv.Itoa(fontObj) + " 0 R >> >> >>\nendobj\n")

		offsets[contentObj] = b.Len()
		b.WriteString(strconv.Itoa(contentObj) + " 0 obj\n<< /Length " + strconv.Itoa(stream.Len()) + " >>\nstream\n")
		b.WriteString(stream.String())
		b.WriteString("\nendstream\nendobj\n")
	}

	offsets[fontObj] = b.Len()
	b.WriteString(strconv.Itoa(fontObj) + " 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 " + strconv.Itoa(fontObj+1) + "\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= fontObj; i++ {
		b.WriteString(padOffset(offsets[i]) + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size " + strconv.Itoa(fontObj+1) + " /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xref))
	b.WriteString("\n%%EOF\n")
	return []byte(b.String())
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	return strings.ReplaceAll(s, ")", `\)`)
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func padOffset(n int) string {
	s := strconv.Itoa(n)
	return strings.Repeat("0", 10-len(s)) + s
}
