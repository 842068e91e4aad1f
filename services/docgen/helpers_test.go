package docgen

import (
	"archive/zip"
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

func documentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`
}

func headerXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:hdr ` + wordNS + `>` + body + `</w:hdr>`
}

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func cell(text string) string {
	return `<w:tc><w:tcPr><w:tcW w:w="2000" w:type="dxa"/></w:tcPr>` + para(text) + `</w:tc>`
}

func row(cells ...string) string {
	out := `<w:tr>`
	for _, c := range cells {
		out += c
	}
	return out + `</w:tr>`
}

func table(rows ...string) string {
	out := `<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/></w:tblPr>`
	for _, r := range rows {
		out += r
	}
	return out + `</w:tbl>`
}

// buildDocx assembles a minimal package from part name to content
func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := []string{"[Content_Types].xml"}
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names[1:])

	for _, name := range names {
		content, ok := parts[name]
		if !ok {
			content = contentTypes
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func bodyDocx(t *testing.T, body string) []byte {
	t.Helper()
	return buildDocx(t, map[string]string{PartDocument: documentXML(body)})
}

func readPart(t *testing.T, docx []byte, name string) string {
	t.Helper()
	pkg, err := OpenPackage(docx)
	require.NoError(t, err)
	xml, err := pkg.Part(name)
	require.NoError(t, err)
	return xml
}

func renderedPart(t *testing.T, result *RenderResult, name string) string {
	t.Helper()
	xml, err := result.Package.Part(name)
	require.NoError(t, err)
	return xml
}
