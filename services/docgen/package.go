package docgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// Well-known part names inside a word-processing package
const (
	PartDocument = "word/document.xml"
	partHeaders  = "word/header"
	partFooters  = "word/footer"
)

type packageEntry struct {
	file    *zip.File
	content []byte // set once the part is rewritten
}

// Package is a working copy of an OOXML package. One Package belongs to one render.
type Package struct {
	entries []*packageEntry
	index   map[string]*packageEntry
}

// OpenPackage reads a package from template bytes. The bytes are read, never modified.
func OpenPackage(b []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}

	pkg := &Package{index: make(map[string]*packageEntry, len(zr.File))}
	for _, f := range zr.File {
		entry := &packageEntry{file: f}
		pkg.entries = append(pkg.entries, entry)
		pkg.index[f.Name] = entry
	}

	if _, ok := pkg.index[PartDocument]; !ok {
		return nil, fmt.Errorf("package has no %s part", PartDocument)
	}
	return pkg, nil
}

// Part returns the text of a part
func (p *Package) Part(name string) (string, error) {
	entry, ok := p.index[name]
	if !ok {
		return "", fmt.Errorf("part %s not found", name)
	}
	if entry.content != nil {
		return string(entry.content), nil
	}

	rc, err := entry.file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open part %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read part %s: %w", name, err)
	}
	return string(data), nil
}

// SetPart replaces the content of an existing part
func (p *Package) SetPart(name, content string) error {
	entry, ok := p.index[name]
	if !ok {
		return fmt.Errorf("part %s not found", name)
	}
	entry.content = []byte(content)
	return nil
}

// XMLParts lists the body part followed by every header and footer part
func (p *Package) XMLParts() []string {
	parts := []string{PartDocument}
	var extra []string
	for _, entry := range p.entries {
		name := entry.file.Name
		if path.Ext(name) != ".xml" {
			continue
		}
		if strings.HasPrefix(name, partHeaders) || strings.HasPrefix(name, partFooters) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(parts, extra...)
}

// Bytes serializes the package. Untouched entries are copied without recompression.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, entry := range p.entries {
		if entry.content == nil {
			if err := zw.Copy(entry.file); err != nil {
				return nil, fmt.Errorf("failed to copy %s: %w", entry.file.Name, err)
			}
			continue
		}

		header := &zip.FileHeader{
			Name:     entry.file.Name,
			Method:   zip.Deflate,
			Modified: entry.file.Modified,
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", entry.file.Name, err)
		}
		if _, err := w.Write(entry.content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", entry.file.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize package: %w", err)
	}
	return buf.Bytes(), nil
}
