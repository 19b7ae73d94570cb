package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var disableConfigDir sync.Once

// PDFCPU is the production Model.
type PDFCPU struct {
	conf *model.Configuration
}

// NewPDFCPU returns a model using relaxed validation, which accepts the
// slightly broken files real users upload.
func NewPDFCPU() *PDFCPU {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPU{conf: conf}
}

// segment is a run of pages in a created document: either pages copied
// from a loaded source or a single raster page.
type segment struct {
	src   *pdfDoc
	pages []int
	jpeg  []byte
}

type pdfDoc struct {
	// loaded documents
	raw  []byte
	ctx  *model.Context
	dims []types.Dim
	// stamps[page] holds overlay text in draw order
	stamps map[int][]*model.Watermark

	// created documents
	segments []segment
	sizes    []Size
}

func (d *pdfDoc) loaded() bool { return d.ctx != nil }

func (d *pdfDoc) PageCount() int {
	if d.loaded() {
		return d.ctx.PageCount
	}
	return len(d.sizes)
}

func (d *pdfDoc) PageSize(page int) (Size, error) {
	if page < 1 || page > d.PageCount() {
		return Size{}, fmt.Errorf("page %d out of range 1-%d", page, d.PageCount())
	}
	if d.loaded() {
		dim := d.dims[page-1]
		return Size{Width: dim.Width, Height: dim.Height}, nil
	}
	return d.sizes[page-1], nil
}

func (m *PDFCPU) asDoc(doc Document) (*pdfDoc, error) {
	d, ok := doc.(*pdfDoc)
	if !ok {
		return nil, fmt.Errorf("pdfcpu: foreign document %T", doc)
	}
	return d, nil
}

func (m *PDFCPU) Load(data []byte) (Document, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), m.conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("page dims: %w", err)
	}
	return &pdfDoc{raw: data, ctx: ctx, dims: dims}, nil
}

func (m *PDFCPU) Create() Document { return &pdfDoc{} }

func (m *PDFCPU) CopyPages(dst, src Document, pages []int) error {
	out, err := m.asDoc(dst)
	if err != nil {
		return err
	}
	in, err := m.asDoc(src)
	if err != nil {
		return err
	}
	if out.loaded() || !in.loaded() {
		return errors.New("pdfcpu: copy needs a loaded source and a created destination")
	}
	for _, p := range pages {
		size, err := in.PageSize(p)
		if err != nil {
			return err
		}
		out.sizes = append(out.sizes, size)
	}
	out.segments = append(out.segments, segment{src: in, pages: append([]int(nil), pages...)})
	return nil
}

func (m *PDFCPU) AddRasterPage(dst Document, r Raster) error {
	out, err := m.asDoc(dst)
	if err != nil {
		return err
	}
	if out.loaded() {
		return errors.New("pdfcpu: raster pages go into created documents")
	}
	out.segments = append(out.segments, segment{jpeg: r.Data})
	out.sizes = append(out.sizes, Size{Width: float64(r.Width), Height: float64(r.Height)})
	return nil
}

// DrawText records a text stamp; stamps are applied when the document is
// saved. Only loaded documents can be stamped.
func (m *PDFCPU) DrawText(doc Document, page int, text string, x, y float64, style TextStyle) error {
	d, err := m.asDoc(doc)
	if err != nil {
		return err
	}
	if !d.loaded() {
		return errors.New("pdfcpu: text can only be drawn on loaded documents")
	}
	if _, err := d.PageSize(page); err != nil {
		return err
	}
	wm, err := api.TextWatermark(text, stampDescription(x, y, style), true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("text stamp: %w", err)
	}
	if d.stamps == nil {
		d.stamps = make(map[int][]*model.Watermark)
	}
	d.stamps[page] = append(d.stamps[page], wm)
	return nil
}

// stampDescription anchors the stamp's bounding box at bottom left. The box
// starts one rounded-up descent below the baseline, so the offset is lowered by the
// font's descent to put the baseline at y.
func stampDescription(x, y float64, style TextStyle) string {
	fontName := style.Font
	if fontName == "" {
		fontName = DefaultFont
	}
	by := y - math.Ceil(font.Descent(fontName, style.Size))
	return fmt.Sprintf("fontname:%s, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, fillcolor:%s, opacity:1",
		fontName, style.Size, x, by, style.Color.Hex())
}

func (m *PDFCPU) TextWidth(text string, style TextStyle) float64 {
	fontName := style.Font
	if fontName == "" {
		fontName = DefaultFont
	}
	return font.TextWidth(text, fontName, style.Size)
}

func (m *PDFCPU) Save(doc Document) ([]byte, error) {
	d, err := m.asDoc(doc)
	if err != nil {
		return nil, err
	}
	if d.loaded() {
		return m.saveLoaded(d)
	}
	return m.saveCreated(d)
}

// saveLoaded applies stamps in rounds so a page can carry several.
func (m *PDFCPU) saveLoaded(d *pdfDoc) ([]byte, error) {
	cur := d.raw
	for round := 0; ; round++ {
		batch := make(map[int]*model.Watermark)
		for page, wms := range d.stamps {
			if round < len(wms) {
				batch[page] = wms[round]
			}
		}
		if len(batch) == 0 {
			break
		}
		var buf bytes.Buffer
		if err := api.AddWatermarksMap(bytes.NewReader(cur), &buf, batch, m.conf); err != nil {
			return nil, fmt.Errorf("apply text stamps: %w", err)
		}
		cur = buf.Bytes()
	}
	if len(d.stamps) > 0 {
		return cur, nil
	}
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *PDFCPU) saveCreated(d *pdfDoc) ([]byte, error) {
	if len(d.segments) == 0 {
		return nil, errors.New("pdfcpu: document has no pages")
	}
	parts := make([][]byte, 0, len(d.segments))
	for _, seg := range d.segments {
		b, err := m.renderSegment(seg)
		if err != nil {
			return nil, err
		}
		parts = append(parts, b)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, m.conf); err != nil {
		return nil, fmt.Errorf("merge segments: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *PDFCPU) renderSegment(seg segment) ([]byte, error) {
	var buf bytes.Buffer
	if seg.src == nil {
		imp := pdfcpu.DefaultImportConfig()
		imp.Pos = types.Full
		if err := api.ImportImages(nil, &buf, []io.Reader{bytes.NewReader(seg.jpeg)}, imp, m.conf); err != nil {
			return nil, fmt.Errorf("import raster: %w", err)
		}
		return buf.Bytes(), nil
	}
	ctx, err := pdfcpu.ExtractPages(seg.src.ctx, seg.pages, false)
	if err != nil {
		return nil, fmt.Errorf("extract pages %v: %w", seg.pages, err)
	}
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("write pages %v: %w", seg.pages, err)
	}
	return buf.Bytes(), nil
}
