package imagerender

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/pdfdoc"
)

// BaseDPI is the resolution of a page rendered at scale 1.0.
const BaseDPI = 72.0

// Fitz renders pages with MuPDF through go-fitz.
type Fitz struct{}

// NewFitz returns the production rasterizer.
func NewFitz() *Fitz { return &Fitz{} }

// Open loads a PDF from memory for rendering
func (Fitz) Open(data []byte) (pdfdoc.RasterDoc, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzDoc{doc: doc}, nil
}

type fitzDoc struct {
	doc *fitz.Document
}

func (d *fitzDoc) NumPage() int { return d.doc.NumPage() }

// Render draws a 1-based page (go-fitz uses 0-based indexing)
func (d *fitzDoc) Render(page int, scale float64) (image.Image, error) {
	dpi := BaseDPI * scale
	img, err := d.doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	b := img.Bounds()
	log.Debug().
		Int("page", page).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Float64("dpi", dpi).
		Msg("rendered page")
	return img, nil
}

func (d *fitzDoc) Close() error { return d.doc.Close() }

// JPEGQuality maps a quality factor in (0,1] to the encoder's 1..100 scale.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	return min(max(v, 1), 100)
}

// EncodeJPEG encodes img at quality factor q in (0,1]
// Returns JPEG bytes, width, height, error
func EncodeJPEG(img image.Image, q float64) ([]byte, int, int, error) {
	var buf bytes.Buffer
	quality := JPEGQuality(q)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	b := img.Bounds()
	log.Debug().
		Int("jpeg_size", buf.Len()).
		Int("quality", quality).
		Msg("encoded page as JPEG")
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}

// EncodeToBase64 converts binary data to base64 string
func EncodeToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
