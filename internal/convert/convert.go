// Package convert implements the Converter: it decodes a Renderer's
// encoded pixmaps, paints search highlights onto them, and wraps the
// result as either a fully in-band protocol image (Sixel/iTerm2) or a
// deferred Kitty transmission record.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"runtime"
	"sync"

	"github.com/termviewer/pdftui/internal/kitty"
	"github.com/termviewer/pdftui/internal/pageorder"
	"github.com/termviewer/pdftui/internal/render"
	"github.com/termviewer/pdftui/internal/termproto"
)

// Msg is a ConverterMsg: a command sent to the Converter.
type Msg interface{ msg() }

type NumPagesMsg struct{ N int }

func (NumPagesMsg) msg() {}

type GoToPageMsg struct{ Page int }

func (GoToPageMsg) msg() {}

type AddImgMsg struct{ Info render.PageInfo }

func (AddImgMsg) msg() {}

// ImageKind distinguishes the two ways a converted image can be drawn.
type ImageKind int

const (
	KindGeneric ImageKind = iota
	KindKitty
)

// Image is a ConvertedImage: either a fully in-band protocol payload
// (Sixel/iTerm2) ready to embed verbatim in the text frame, or a
// pending Kitty transmission - an owned pixmap or a shared-memory
// reference the Kitty Display Driver will transmit in a later frame.
type Image struct {
	Kind ImageKind

	// Generic holds the ready-to-embed escape sequence when Kind ==
	// KindGeneric.
	Generic []byte

	// KittyOwned and KittyShm hold the not-yet-transmitted pixel source
	// when Kind == KindKitty; exactly one is set.
	KittyOwned image.Image
	KittyShm   *kitty.ShmImage

	CellW, CellH int

	// PxW/PxH are the full decoded page's pixel dimensions, used by the
	// UI Controller to compute a Kitty pan/zoom source crop rect.
	PxW, PxH int
}

// Result is emitted by the Converter for one finished page, or an
// error that prevented conversion.
type Result interface{ result() }

type PageResult struct {
	Image      Image
	PageNum    int
	NumResults int
}

func (PageResult) result() {}

type ErrorResult struct {
	Page int
	Err  error
}

func (ErrorResult) result() {}

// EncodeDecodeError mirrors render.EncodeDecodeError for failures that
// happen on the Converter's side of the pipeline (decoding the portable
// container, or re-encoding for Sixel/iTerm2).
type EncodeDecodeError struct{ Err error }

func (e *EncodeDecodeError) Error() string { return fmt.Sprintf("convert: %v", e.Err) }
func (e *EncodeDecodeError) Unwrap() error { return e.Err }

// Converter holds the pending-PageInfo vector and burst-conversion
// state described in spec.md §4.2. It is not safe for concurrent use;
// Run is its only entry point once constructed.
type Converter struct {
	cap       termproto.Capability
	shmOK     bool
	prerender int

	pending []*render.PageInfo
	anchor  int
	n       int
}

// New returns a Converter targeting the given terminal capability.
// shmOK should be the result of a one-time kitty.ProbeShm() at startup;
// prerender is the user's configured prerender window (0 = unlimited,
// bounded by page count).
func New(cap termproto.Capability, shmOK bool, prerender int) *Converter {
	return &Converter{cap: cap, shmOK: shmOK, prerender: prerender}
}

// Apply updates the Converter's state for one Msg without attempting
// any conversion.
func (c *Converter) Apply(msg Msg) {
	switch m := msg.(type) {
	case NumPagesMsg:
		c.n = m.N
		c.pending = make([]*render.PageInfo, m.N)
		if c.anchor >= m.N {
			c.anchor = m.N - 1
		}
		if c.anchor < 0 {
			c.anchor = 0
		}
	case GoToPageMsg:
		c.anchor = m.Page
	case AddImgMsg:
		info := m.Info
		if info.PageNum >= 0 && info.PageNum < len(c.pending) {
			c.pending[info.PageNum] = &info
		}
	}
}

// Run drives the Converter's event loop: drain pending messages
// non-blockingly, attempt a conversion burst, and block on the next
// message only when no progress can be made. It returns once in
// closes.
func (c *Converter) Run(in <-chan Msg, out chan<- Result) {
	for {
		for {
			select {
			case m, ok := <-in:
				if !ok {
					return
				}
				c.Apply(m)
				continue
			default:
			}
			break
		}

		if c.burst(out) {
			continue
		}

		m, ok := <-in
		if !ok {
			return
		}
		c.Apply(m)
	}
}

// burst converts at most one pending page per call, chosen by the
// prerender order anchored on the current page, within a budget of
// `prerender` (or the whole document when unset). It reports whether it
// made progress.
func (c *Converter) burst(out chan<- Result) bool {
	if c.n == 0 {
		return false
	}
	anchor := clamp(c.anchor, 0, c.n-1)
	budget := c.prerender
	if budget <= 0 || budget > c.n {
		budget = c.n
	}

	order := pageorder.NewAround(anchor, 0, c.n)
	for i := 0; i < budget; i++ {
		p, _ := order.Next()
		info := c.pending[p]
		if info == nil {
			continue
		}
		c.pending[p] = nil

		img, numResults, err := c.convert(*info)
		if err != nil {
			out <- ErrorResult{Page: info.PageNum, Err: err}
		} else {
			out <- PageResult{Image: img, PageNum: info.PageNum, NumResults: numResults}
		}
		return true
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c *Converter) convert(info render.PageInfo) (Image, int, error) {
	decoded, err := png.Decode(bytes.NewReader(info.Pixels))
	if err != nil {
		return Image{}, 0, &EncodeDecodeError{Err: err}
	}
	rgba := toRGBA(decoded)
	paintHighlights(rgba, info.ResultRects)
	numResults := len(info.ResultRects)
	pxW, pxH := rgba.Bounds().Dx(), rgba.Bounds().Dy()

	switch c.cap {
	case termproto.CapKitty:
		return c.wrapKitty(rgba, info.PageNum, info.CellW, info.CellH), numResults, nil
	case termproto.CapSixel:
		var buf bytes.Buffer
		if err := termproto.WriteSixel(&buf, rgba); err != nil {
			return Image{}, 0, &EncodeDecodeError{Err: err}
		}
		return Image{Kind: KindGeneric, Generic: buf.Bytes(), CellW: info.CellW, CellH: info.CellH, PxW: pxW, PxH: pxH}, numResults, nil
	case termproto.CapITerm:
		var buf bytes.Buffer
		if err := termproto.WriteIterm(&buf, rgba); err != nil {
			return Image{}, 0, &EncodeDecodeError{Err: err}
		}
		return Image{Kind: KindGeneric, Generic: buf.Bytes(), CellW: info.CellW, CellH: info.CellH, PxW: pxW, PxH: pxH}, numResults, nil
	default:
		return Image{}, 0, fmt.Errorf("convert: no terminal graphics capability available")
	}
}

// wrapKitty builds the deferred Kitty record: shared memory when the
// startup probe says it works, falling back to an owned in-process
// pixmap on any write failure.
func (c *Converter) wrapKitty(img *image.RGBA, page, cellW, cellH int) Image {
	pxW, pxH := img.Bounds().Dx(), img.Bounds().Dy()
	if c.shmOK {
		shm, err := kitty.NewShmImage(page, pxW, pxH)
		if err == nil {
			if werr := shm.Write(img); werr == nil {
				return Image{Kind: KindKitty, KittyShm: shm, CellW: cellW, CellH: cellH, PxW: pxW, PxH: pxH}
			}
			shm.Close()
		}
	}
	return Image{Kind: KindKitty, KittyOwned: img, CellW: cellW, CellH: cellH, PxW: pxW, PxH: pxH}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

// paintHighlights desaturates the blue channel by MaxUint8/2 within
// each rect, split across a bounded worker pool over row bands - the
// parallel pixel iterator spec.md §4.2 describes.
func paintHighlights(img *image.RGBA, rects []render.Rect) {
	if len(rects) == 0 {
		return
	}
	b := img.Bounds()
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := (b.Dy() + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		y0 := b.Min.Y + w*rowsPerWorker
		y1 := y0 + rowsPerWorker
		if y1 > b.Max.Y {
			y1 = b.Max.Y
		}
		if y0 >= y1 {
			continue
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					if !insideAny(rects, x, y) {
						continue
					}
					c := img.RGBAAt(x, y)
					if c.B > math.MaxUint8/2 {
						c.B -= math.MaxUint8 / 2
					} else {
						c.B = 0
					}
					img.SetRGBA(x, y, c)
				}
			}
		}(y0, y1)
	}
	wg.Wait()
}

func insideAny(rects []render.Rect, x, y int) bool {
	fx, fy := float64(x), float64(y)
	for _, r := range rects {
		if fx >= r.ULx && fx < r.LRx && fy >= r.ULy && fy < r.LRy {
			return true
		}
	}
	return false
}
