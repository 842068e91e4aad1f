// Package docgentest builds small .docx packages for tests outside docgen.
package docgentest

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

// Para is a single-run paragraph holding text
func Para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

// Table wraps rows of cell texts in a w:tbl
func Table(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr>`)
	for _, cells := range rows {
		b.WriteString(`<w:tr>`)
		for _, c := range cells {
			b.WriteString(`<w:tc><w:tcPr><w:tcW w:w="2000" w:type="dxa"/></w:tcPr>` + Para(c) + `</w:tc>`)
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
	return b.String()
}

// Docx returns a package whose document body is body
func Docx(t testing.TB, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, content string }{
		{"[Content_Types].xml", contentTypes},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("create %s: %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// Text extracts the concatenated w:t text of a package's document part
func Text(t testing.TB, docx []byte) string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		t.Fatalf("open package: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open document part: %v", err)
		}
		defer rc.Close()
		var xml bytes.Buffer
		if _, err := xml.ReadFrom(rc); err != nil {
			t.Fatalf("read document part: %v", err)
		}
		return visibleText(xml.String())
	}
	t.Fatalf("package has no document part")
	return ""
}

func visibleText(xml string) string {
	var b strings.Builder
	for {
		start := strings.Index(xml, "<w:t")
		if start < 0 {
			return b.String()
		}
		xml = xml[start+4:]
		// skip <w:tbl>, <w:tc> and friends
		if len(xml) == 0 || (xml[0] != '>' && xml[0] != ' ') {
			continue
		}
		open := strings.IndexByte(xml, '>')
		end := strings.Index(xml, "</w:t>")
		if open < 0 || end < open {
			return b.String()
		}
		b.WriteString(xml[open+1 : end])
		xml = xml[end+6:]
	}
}
