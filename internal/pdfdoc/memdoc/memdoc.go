// Package memdoc is an in-memory document model and rasterizer. Documents
// serialize to JSON so tests can inspect exactly which source pages, text
// and rasters ended up in an output.
package memdoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand"

	"github.com/local/pdftools/internal/pdfdoc"
)

// magic starts like a real PDF so content sniffing accepts memdoc files.
const magic = "%PDF-1.7 memdoc\n"

// Text is a drawn overlay string.
type Text struct {
	Value string  `json:"value"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  int     `json:"size"`
	Color string  `json:"color"`
}

// Page is one page of an in-memory document. Label identifies where the
// page came from, e.g. "a.pdf#2".
type Page struct {
	Label       string  `json:"label"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Texts       []Text  `json:"texts,omitempty"`
	RasterBytes int     `json:"raster_bytes,omitempty"`
}

// Doc implements pdfdoc.Document.
type Doc struct {
	Pages []Page `json:"pages"`
}

func (d *Doc) PageCount() int { return len(d.Pages) }

func (d *Doc) PageSize(page int) (pdfdoc.Size, error) {
	if page < 1 || page > len(d.Pages) {
		return pdfdoc.Size{}, fmt.Errorf("page %d out of range 1-%d", page, len(d.Pages))
	}
	p := d.Pages[page-1]
	return pdfdoc.Size{Width: p.Width, Height: p.Height}, nil
}

// Labels returns the page labels in order.
func (d *Doc) Labels() []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.Label
	}
	return out
}

// Build serializes an n-page document whose pages are labelled name#1..n.
func Build(name string, n int, width, height float64) []byte {
	d := &Doc{}
	for i := 1; i <= n; i++ {
		d.Pages = append(d.Pages, Page{Label: fmt.Sprintf("%s#%d", name, i), Width: width, Height: height})
	}
	b, err := encode(d)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode parses serialized bytes back into a Doc.
func Decode(data []byte) (*Doc, error) {
	if !bytes.HasPrefix(data, []byte(magic)) {
		return nil, errors.New("memdoc: not a memdoc document")
	}
	var d Doc
	if err := json.Unmarshal(data[len(magic):], &d); err != nil {
		return nil, fmt.Errorf("memdoc: %w", err)
	}
	return &d, nil
}

func encode(d *Doc) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return append([]byte(magic), b...), nil
}

// Model implements pdfdoc.Model. Glyphs are CharWidth of the font size wide.
type Model struct {
	CharWidth float64
}

// New returns a model with half-em glyphs.
func New() *Model { return &Model{CharWidth: 0.5} }

func asDoc(doc pdfdoc.Document) (*Doc, error) {
	d, ok := doc.(*Doc)
	if !ok {
		return nil, fmt.Errorf("memdoc: foreign document %T", doc)
	}
	return d, nil
}

func (m *Model) Load(data []byte) (pdfdoc.Document, error) { return Decode(data) }

func (m *Model) Create() pdfdoc.Document { return &Doc{} }

func (m *Model) CopyPages(dst, src pdfdoc.Document, pages []int) error {
	out, err := asDoc(dst)
	if err != nil {
		return err
	}
	in, err := asDoc(src)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if p < 1 || p > len(in.Pages) {
			return fmt.Errorf("memdoc: page %d out of range", p)
		}
		page := in.Pages[p-1]
		page.Texts = append([]Text(nil), page.Texts...)
		out.Pages = append(out.Pages, page)
	}
	return nil
}

func (m *Model) AddRasterPage(dst pdfdoc.Document, r pdfdoc.Raster) error {
	out, err := asDoc(dst)
	if err != nil {
		return err
	}
	out.Pages = append(out.Pages, Page{
		Label:       fmt.Sprintf("raster#%d", len(out.Pages)+1),
		Width:       float64(r.Width),
		Height:      float64(r.Height),
		RasterBytes: len(r.Data),
	})
	return nil
}

func (m *Model) DrawText(doc pdfdoc.Document, page int, text string, x, y float64, style pdfdoc.TextStyle) error {
	d, err := asDoc(doc)
	if err != nil {
		return err
	}
	if page < 1 || page > len(d.Pages) {
		return fmt.Errorf("memdoc: page %d out of range", page)
	}
	d.Pages[page-1].Texts = append(d.Pages[page-1].Texts, Text{
		Value: text, X: x, Y: y, Size: style.Size, Color: style.Color.Hex(),
	})
	return nil
}

func (m *Model) TextWidth(text string, style pdfdoc.TextStyle) float64 {
	return float64(len([]rune(text))) * float64(style.Size) * m.CharWidth
}

func (m *Model) Save(doc pdfdoc.Document) ([]byte, error) {
	d, err := asDoc(doc)
	if err != nil {
		return nil, err
	}
	if len(d.Pages) == 0 {
		return nil, errors.New("memdoc: document has no pages")
	}
	return encode(d)
}

// Rasterizer renders memdoc pages as seeded noise, so encoded size grows
// with JPEG quality. FailPage, when set, makes that page fail to render.
type Rasterizer struct {
	FailPage int
}

func (r *Rasterizer) Open(data []byte) (pdfdoc.RasterDoc, error) {
	d, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &rasterDoc{doc: d, failPage: r.FailPage}, nil
}

type rasterDoc struct {
	doc      *Doc
	failPage int
}

func (r *rasterDoc) NumPage() int { return len(r.doc.Pages) }

func (r *rasterDoc) Render(page int, scale float64) (image.Image, error) {
	if page < 1 || page > len(r.doc.Pages) {
		return nil, fmt.Errorf("memdoc: page %d out of range", page)
	}
	if page == r.failPage {
		return nil, fmt.Errorf("memdoc: render page %d failed", page)
	}
	p := r.doc.Pages[page-1]
	w, h := int(p.Width*scale), int(p.Height*scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(int64(page)))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.Set(x, y, color.RGBA{R: v, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	return img, nil
}

func (r *rasterDoc) Close() error { return nil }
