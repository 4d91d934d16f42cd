// Package pdfengine adapts github.com/gen2brain/go-fitz (a cgo binding
// to MuPDF) to the narrow surface the Renderer needs: page count, page
// bounds in point space, rasterization at a target pixel size, and
// substring search with approximate highlight geometry.
package pdfengine

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	xdraw "golang.org/x/image/draw"
)

// ErrPageMissing is returned for an out-of-range page index.
var ErrPageMissing = fmt.Errorf("pdfengine: page index out of range")

// HighlightRect marks one occurrence of a search term, in the page's
// own point space (72 points per inch, origin top-left) - the same
// space Bounds reports in. Callers scale it into pixmap coordinates
// using the ratio they rasterized with.
type HighlightRect struct {
	ULx, ULy float64
	LRx, LRy float64
}

// Document wraps an opened PDF. It is not safe for concurrent use from
// more than one goroutine; callers (the Renderer) must serialize access,
// which in practice means never sharing it off its owning goroutine.
type Document struct {
	f *fitz.Document
}

// Open loads the document at path.
func Open(path string) (*Document, error) {
	f, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &Document{f: f}, nil
}

// Close releases the underlying MuPDF context.
func (d *Document) Close() error {
	return d.f.Close()
}

// NumPages reports the page count.
func (d *Document) NumPages() int {
	return d.f.NumPage()
}

// PageSize returns a page's width and height in points.
func (d *Document) PageSize(page int) (w, h float64, err error) {
	r, err := d.f.Bound(page)
	if err != nil {
		return 0, 0, err
	}
	return float64(r.Dx()), float64(r.Dy()), nil
}

// Render rasterizes a page to approximately targetW x targetH pixels.
// go-fitz only exposes a DPI knob, not an exact pixel target, so this
// picks the DPI that would produce targetW given the page's point
// width, rasterizes at that DPI, and then resizes the result to the
// exact target with CatmullRom.
func (d *Document) Render(page, targetW, targetH int) (image.Image, error) {
	if page < 0 || page >= d.NumPages() {
		return nil, ErrPageMissing
	}
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("pdfengine: invalid target size %dx%d", targetW, targetH)
	}

	ptW, _, err := d.PageSize(page)
	if err != nil {
		return nil, err
	}
	if ptW <= 0 {
		return nil, fmt.Errorf("pdfengine: page %d has zero width", page)
	}

	dpi := float64(targetW) / ptW * 72.0
	if dpi < 36 {
		dpi = 36
	}

	img, err := d.f.ImageDPI(page, dpi)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() == targetW && b.Dy() == targetH {
		return img, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst, nil
}

// Search returns approximate highlight rectangles, in page-point space,
// for every case-insensitive occurrence of term on the page. An empty
// term returns no rectangles.
func (d *Document) Search(page int, term string) ([]HighlightRect, error) {
	if term == "" {
		return nil, nil
	}
	if page < 0 || page >= d.NumPages() {
		return nil, ErrPageMissing
	}
	html, err := d.f.HTML(page, false)
	if err != nil {
		return nil, err
	}
	return searchHTML(html, term), nil
}
