// Package pdfdoc defines the document collaborators the tools are written
// against and provides the pdfcpu backed production model.
package pdfdoc

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Size is a page size in points.
type Size struct {
	Width  float64
	Height float64
}

// Document is a loaded or newly created paged document. A Document is
// owned by the operation that created it and is not safe for concurrent
// use.
type Document interface {
	PageCount() int
	PageSize(page int) (Size, error)
}

// Raster is an encoded page image ready to become a full-bleed page.
type Raster struct {
	Data   []byte // JPEG
	Width  int
	Height int
}

// RGB is a fill colour with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// ParseHex reads #rrggbb (the leading # is optional). Anything else yields
// black and false.
func ParseHex(s string) (RGB, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// TextStyle describes how overlay text is drawn.
type TextStyle struct {
	Font  string
	Size  int
	Color RGB
}

// DefaultFont is one of the standard 14 fonts, always available.
const DefaultFont = "Helvetica"

// Model is the document-model collaborator.
type Model interface {
	// Load parses a serialized document.
	Load(data []byte) (Document, error)
	// Create returns an empty output document.
	Create() Document
	// CopyPages appends the given 1-based pages of src to dst in the order
	// listed.
	CopyPages(dst, src Document, pages []int) error
	// AddRasterPage appends a page whose size equals the raster's and whose
	// only content is the raster drawn edge to edge.
	AddRasterPage(dst Document, r Raster) error
	// DrawText draws text with its baseline origin at (x, y) on a page.
	DrawText(doc Document, page int, text string, x, y float64, style TextStyle) error
	// TextWidth measures text in points.
	TextWidth(text string, style TextStyle) float64
	// Save serializes doc.
	Save(doc Document) ([]byte, error)
}

// Rasterizer is the page rendering collaborator.
type Rasterizer interface {
	Open(data []byte) (RasterDoc, error)
}

// RasterDoc renders pages of one opened document.
type RasterDoc interface {
	NumPage() int
	// Render draws the 1-based page at scale (1.0 = 72 dpi).
	Render(page int, scale float64) (image.Image, error)
	Close() error
}
