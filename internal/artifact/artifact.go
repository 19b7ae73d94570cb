// Package artifact describes tool outputs and how they are named.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Kind tells a single document from an archive of documents.
type Kind string

const (
	KindDocument Kind = "document"
	KindArchive  Kind = "archive"
)

// PDFContentType is the content type of document artifacts.
const PDFContentType = "application/pdf"

// Artifact is a finished output ready for download.
type Artifact struct {
	Name        string
	ContentType string
	Kind        Kind
	Data        []byte
}

// Document wraps saved document bytes.
func Document(name string, data []byte) Artifact {
	return Artifact{Name: name, ContentType: PDFContentType, Kind: KindDocument, Data: data}
}

// Size returns the payload length in bytes.
func (a Artifact) Size() int { return len(a.Data) }

// Prefixed returns "<op>-<name>", e.g. numbered-report.pdf.
func Prefixed(op, name string) string {
	return op + "-" + baseName(name)
}

// Merged names a merge output after the moment it was produced.
func Merged(at time.Time) string {
	return fmt.Sprintf("merged-%d.pdf", at.UnixMilli())
}

// ExplodedArchive names the archive of single-page documents.
func ExplodedArchive(name, ext string) string {
	return "all-pages-" + Stem(name) + ext
}

// ExplodedPage names the n-th entry of an exploded archive.
func ExplodedPage(n int, name string) string {
	return fmt.Sprintf("page_%d_%s", n, baseName(name))
}

// Stem strips any directory and a trailing .pdf (any case).
func Stem(name string) string {
	base := baseName(name)
	if strings.EqualFold(filepath.Ext(base), ".pdf") {
		return base[:len(base)-len(".pdf")]
	}
	return base
}

// baseName drops directories a client may have sent along with the name.
func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return "document.pdf"
	}
	return base
}
