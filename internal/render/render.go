// Package render implements the Renderer: the component that owns the
// opened document and turns a (page, area, search term, invert, rotate,
// fit-or-fill) state into rasterized, highlighted pixmaps. It runs as
// the body of a goroutine pinned to its OS thread for the lifetime of
// the program, since the underlying PDF engine handle is not safe to
// touch from more than one goroutine and must never be held across a
// suspension point.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"runtime"
	"time"

	"github.com/termviewer/pdftui/internal/pageorder"
	"github.com/termviewer/pdftui/internal/pdfengine"
)

// hardPixelCap is the largest pixel extent the Kitty protocol accepts
// on either axis.
const hardPixelCap = 10000

// defaultSearchBatch is the "small batch" spec.md §4.1 names for
// letting search progress proceed alongside prerender, and the size of
// one search-sweep pass over unscanned pages.
const defaultSearchBatch = 20

// defaultOpenRetryDelay is how long the renderer waits before retrying
// an open that produced zero pages.
const defaultOpenRetryDelay = time.Second

// PageSource is the narrow surface the Renderer needs from an opened
// document - satisfied by *pdfengine.Document.
type PageSource interface {
	NumPages() int
	PageSize(page int) (w, h float64, err error)
	Render(page, targetW, targetH int) (image.Image, error)
	Search(page int, term string) ([]pdfengine.HighlightRect, error)
	Close() error
}

// Opener opens a document at path, producing a PageSource. Tests supply
// a fake; production wires pdfengine.Open.
type Opener func(path string) (PageSource, error)

// OpenPDF adapts pdfengine.Open to the Opener signature.
func OpenPDF(path string) (PageSource, error) {
	return pdfengine.Open(path)
}

// FitOrFill selects how a page is scaled into its area.
type FitOrFill int

const (
	Fit FitOrFill = iota
	Fill
)

// Rect is a highlight rectangle in the rendered pixmap's coordinate
// space (not the page's point space - see PageInfo.ResultRects).
type Rect struct {
	ULx, ULy float64
	LRx, LRy float64
}

// PageInfo is one rasterized page, handed to the Converter.
type PageInfo struct {
	PageNum     int
	Pixels      []byte // PNG-encoded
	CellW       int
	CellH       int
	ResultRects []Rect
}

// Notif is a RenderNotif: a command sent to the Renderer.
type Notif interface{ notif() }

type AreaNotif struct{ W, H int }

func (AreaNotif) notif() {}

type JumpToPageNotif struct{ Page int }

func (JumpToPageNotif) notif() {}

type PageNeedsReRenderNotif struct{ Page int }

func (PageNeedsReRenderNotif) notif() {}

type SearchNotif struct{ Term string }

func (SearchNotif) notif() {}

type SwitchFitOrFillNotif struct{ Mode FitOrFill }

func (SwitchFitOrFillNotif) notif() {}

type ReloadNotif struct{}

func (ReloadNotif) notif() {}

type InvertNotif struct{}

func (InvertNotif) notif() {}

type RotateNotif struct{}

func (RotateNotif) notif() {}

// Result is a RenderInfo: an event emitted by the Renderer.
type Result interface{ result() }

type NumPagesResult struct{ N int }

func (NumPagesResult) result() {}

type PageResult struct{ Info PageInfo }

func (PageResult) result() {}

type SearchResultsResult struct {
	Page  int
	Count int
}

func (SearchResultsResult) result() {}

type ReloadedResult struct{}

func (ReloadedResult) result() {}

// ErrorResult carries any of the DocOpen/DocPage/EncodeDecode errors
// below back to the UI for display on the bottom status line.
type ErrorResult struct{ Err error }

func (ErrorResult) result() {}

// DocOpenError means the document couldn't be opened at all.
type DocOpenError struct{ Err error }

func (e *DocOpenError) Error() string { return fmt.Sprintf("open document: %v", e.Err) }
func (e *DocOpenError) Unwrap() error { return e.Err }

// DocPageError means one specific page failed to load or rasterize.
type DocPageError struct {
	Page int
	Err  error
}

func (e *DocPageError) Error() string { return fmt.Sprintf("page %d: %v", e.Page, e.Err) }
func (e *DocPageError) Unwrap() error { return e.Err }

// EncodeDecodeError means the portable image container failed to
// encode or decode a rasterized pixmap.
type EncodeDecodeError struct{ Err error }

func (e *EncodeDecodeError) Error() string { return fmt.Sprintf("encode page image: %v", e.Err) }
func (e *EncodeDecodeError) Unwrap() error { return e.Err }

// Options configures one Run invocation.
type Options struct {
	// Prerender is the user's configured prerender window; 0 means
	// unlimited (bounded only by page count).
	Prerender int
	// CellPxW/CellPxH are the terminal's approximate cell pixel
	// dimensions, used to size PageInfo.CellW/CellH.
	CellPxW, CellPxH int
	// White/Black are the tint remap endpoints, packed as 0xRRGGBB.
	// Callers must always supply resolved values (config.DefaultWhite/
	// config.DefaultBlack when the user didn't override them); the zero
	// value is not treated as "use the default".
	White, Black uint32
	// SearchBatch overrides defaultSearchBatch; zero uses the default.
	SearchBatch int
}

func (o Options) searchBatch() int {
	if o.SearchBatch > 0 {
		return o.SearchBatch
	}
	return defaultSearchBatch
}

type renderState struct {
	area      Area
	haveArea  bool
	term      string
	invert    bool
	rotate    int
	fitOrFill FitOrFill
	start     int

	successful []bool
	numFound   []*int
	requeue    []int
}

// Area is the pixel extent available to draw pages into.
type Area struct{ W, H int }

func newRenderState(n int) *renderState {
	return &renderState{
		successful: make([]bool, n),
		numFound:   make([]*int, n),
	}
}

// Run is the Renderer's entire lifetime: it should be launched as
//
//	go func() { render.Run(path, render.OpenPDF, in, out, opts) }()
//
// It pins its goroutine to an OS thread for the duration, since the
// underlying document handle must never move threads. Run returns once
// the in channel is closed (the UI has gone away).
func Run(path string, open Opener, in <-chan Notif, out chan<- Result, opts Options) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var doc PageSource
	defer func() {
		if doc != nil {
			doc.Close()
		}
	}()

	for {
		newDoc, err := open(path)
		if err != nil {
			out <- ErrorResult{Err: &DocOpenError{Err: err}}
			if doc == nil {
				if !waitForReload(in) {
					return
				}
				continue
			}
			// Keep serving the cached document; fall through below.
		} else {
			if doc != nil {
				out <- ReloadedResult{}
				doc.Close()
			}
			doc = newDoc
		}

		n := doc.NumPages()
		if n == 0 {
			time.Sleep(defaultOpenRetryDelay)
			continue
		}
		out <- NumPagesResult{N: n}

		action := runRenderLoop(doc, n, in, out, opts)
		switch action {
		case actionClosed:
			return
		case actionReload:
			continue
		}
	}
}

func waitForReload(in <-chan Notif) bool {
	for n := range in {
		if _, ok := n.(ReloadNotif); ok {
			return true
		}
	}
	return false
}

type loopAction int

const (
	actionReload loopAction = iota
	actionClosed
)

// runRenderLoop is the Render loop of spec.md §4.1, for one opened
// document. It returns actionReload when a Reload notif was applied
// (the caller should reopen the document) or actionClosed when the
// inbound channel closed (the UI is gone).
func runRenderLoop(doc PageSource, n int, in <-chan Notif, out chan<- Result, opts Options) loopAction {
	st := newRenderState(n)

restart:
	for !st.haveArea {
		notif, ok := <-in
		if !ok {
			return actionClosed
		}
		if applyNotif(st, notif, n) {
			return actionReload
		}
	}

	start := clamp(st.start, 0, n-1)

	queue := st.requeue
	st.requeue = nil
	for _, p := range queue {
		if st.successful[p] && st.numFound[p] != nil {
			continue
		}
		switch stepPage(doc, st, p, n, in, out, opts) {
		case stepReload:
			return actionReload
		case stepClosed:
			return actionClosed
		case stepRestart:
			goto restart
		}
	}

	searchActive := st.term != ""
	unscanned := searchActive && anyUnscanned(st, n)
	limit := n
	if opts.Prerender > 0 {
		limit = opts.Prerender
	}
	if unscanned && limit > opts.searchBatch() {
		limit = opts.searchBatch()
	}

	order := pageorder.NewAround(start, 0, n)
	for i := 0; i < limit; i++ {
		p, _ := order.Next()
		if st.successful[p] && st.numFound[p] != nil {
			continue
		}
		switch stepPage(doc, st, p, n, in, out, opts) {
		case stepReload:
			return actionReload
		case stepClosed:
			return actionClosed
		case stepRestart:
			goto restart
		}
	}

	if searchActive && anyUnscanned(st, n) {
		switch sweepSearch(doc, st, start, n, in, out, opts) {
		case stepReload:
			return actionReload
		case stepClosed:
			return actionClosed
		case stepRestart:
			goto restart
		}
	}

	notif, ok := <-in
	if !ok {
		return actionClosed
	}
	if applyNotif(st, notif, n) {
		return actionReload
	}
	goto restart
}

type stepOutcome int

const (
	stepContinue stepOutcome = iota
	stepRestart
	stepReload
	stepClosed
)

// stepPage renders one page, emits its result, then non-blockingly
// polls the inbound channel for cooperative cancellation.
func stepPage(doc PageSource, st *renderState, page, n int, in <-chan Notif, out chan<- Result, opts Options) stepOutcome {
	info, err := renderPage(doc, st, page, opts)
	if err != nil {
		out <- ErrorResult{Err: &DocPageError{Page: page, Err: err}}
	} else {
		st.successful[page] = true
		out <- PageResult{Info: info}
	}

	select {
	case notif, ok := <-in:
		if !ok {
			return stepClosed
		}
		if applyNotif(st, notif, n) {
			return stepReload
		}
		return stepRestart
	default:
		return stepContinue
	}
}

// sweepSearch counts (without rasterizing) up to one search batch of
// unscanned pages past start, wrapping at n and stopping back at start.
func sweepSearch(doc PageSource, st *renderState, start, n int, in <-chan Notif, out chan<- Result, opts Options) stepOutcome {
	p := start
	for i := 0; i < opts.searchBatch(); i++ {
		p = (p + 1) % n
		if p == start {
			break
		}
		if st.numFound[p] == nil {
			rects, err := doc.Search(p, st.term)
			if err != nil {
				out <- ErrorResult{Err: &DocPageError{Page: p, Err: err}}
			} else {
				count := len(rects)
				st.numFound[p] = &count
				out <- SearchResultsResult{Page: p, Count: count}
			}
		}

		select {
		case notif, ok := <-in:
			if !ok {
				return stepClosed
			}
			if applyNotif(st, notif, n) {
				return stepReload
			}
			return stepRestart
		default:
		}
	}
	return stepContinue
}

// applyNotif applies one RenderNotif to the render state per the
// transition table in spec.md §4.1. It returns true when the renderer
// should abandon the current document and return to the reload outer
// loop (a Reload notif).
func applyNotif(st *renderState, notif Notif, n int) bool {
	switch v := notif.(type) {
	case AreaNotif:
		st.area = Area{W: v.W, H: v.H}
		st.haveArea = true
		clearSuccessful(st)
	case ReloadNotif:
		return true
	case InvertNotif:
		st.invert = !st.invert
		clearSuccessful(st)
	case RotateNotif:
		st.rotate = (st.rotate + 1) % 4
		clearSuccessful(st)
	case SwitchFitOrFillNotif:
		if st.fitOrFill != v.Mode {
			st.fitOrFill = v.Mode
			clearSuccessful(st)
		}
	case JumpToPageNotif:
		st.start = v.Page
	case PageNeedsReRenderNotif:
		if v.Page >= 0 && v.Page < n {
			st.successful[v.Page] = false
			st.requeue = append(st.requeue, v.Page)
		}
	case SearchNotif:
		if v.Term == "" {
			for p := 0; p < n; p++ {
				if st.numFound[p] != nil && *st.numFound[p] > 0 {
					st.successful[p] = false
					st.numFound[p] = nil
				}
			}
			st.term = ""
		} else {
			st.term = v.Term
			for p := 0; p < n; p++ {
				st.numFound[p] = nil
			}
		}
	}
	return false
}

func clearSuccessful(st *renderState) {
	for i := range st.successful {
		st.successful[i] = false
	}
}

func anyUnscanned(st *renderState, n int) bool {
	for p := 0; p < n; p++ {
		if st.numFound[p] == nil {
			return true
		}
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

// renderPage rasterizes one page at the current state's area/fit-or-
// fill/rotate/invert settings, locates search hits, and encodes the
// result as PageInfo.
func renderPage(doc PageSource, st *renderState, page int, opts Options) (PageInfo, error) {
	ptW, ptH, err := doc.PageSize(page)
	if err != nil {
		return PageInfo{}, err
	}
	if ptW <= 0 || ptH <= 0 {
		return PageInfo{}, fmt.Errorf("page %d has zero extent", page)
	}

	effW, effH := ptW, ptH
	if st.rotate%2 == 1 {
		effW, effH = ptH, ptW
	}
	targetW, targetH := scaleToArea(effW, effH, st.area.W, st.area.H, st.fitOrFill)

	renderW, renderH := targetW, targetH
	if st.rotate%2 == 1 {
		renderW, renderH = targetH, targetW
	}

	img, err := doc.Render(page, renderW, renderH)
	if err != nil {
		return PageInfo{}, err
	}

	var rects []Rect
	if st.term != "" {
		hr, err := doc.Search(page, st.term)
		if err != nil {
			return PageInfo{}, err
		}
		count := len(hr)
		st.numFound[page] = &count
		sx := float64(renderW) / ptW
		sy := float64(renderH) / ptH
		for _, r := range hr {
			ulx, uly := rotatePoint(r.ULx*sx, r.ULy*sy, renderW, renderH, st.rotate)
			lrx, lry := rotatePoint(r.LRx*sx, r.LRy*sy, renderW, renderH, st.rotate)
			rects = append(rects, Rect{
				ULx: math.Min(ulx, lrx), ULy: math.Min(uly, lry),
				LRx: math.Max(ulx, lrx), LRy: math.Max(uly, lry),
			})
		}
	} else {
		zero := 0
		st.numFound[page] = &zero
	}

	if st.rotate != 0 {
		img = rotateImage(img, st.rotate)
	}
	if st.invert || opts.White != 0xFFFFFF || opts.Black != 0x000000 {
		img = applyTint(img, st.invert, opts.White, opts.Black)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return PageInfo{}, &EncodeDecodeError{Err: err}
	}

	cellW, cellH := cellsForPixels(targetW, targetH, opts.CellPxW, opts.CellPxH)

	return PageInfo{
		PageNum:     page,
		Pixels:      buf.Bytes(),
		CellW:       cellW,
		CellH:       cellH,
		ResultRects: rects,
	}, nil
}

// scaleToArea picks target pixel dimensions for a ptW x ptH page inside
// a pixW x pixH area, honoring fit (entirely visible) or fill (covers
// the area), then descales to the hard Kitty pixel cap if needed.
func scaleToArea(ptW, ptH float64, pixW, pixH int, mode FitOrFill) (int, int) {
	if ptW <= 0 || ptH <= 0 || pixW <= 0 || pixH <= 0 {
		return 1, 1
	}
	pageAspect := ptW / ptH
	areaAspect := float64(pixW) / float64(pixH)

	var w, h float64
	wider := areaAspect > pageAspect
	fill := mode == Fill
	if wider != fill {
		h = float64(pixH)
		w = h * pageAspect
	} else {
		w = float64(pixW)
		h = w / pageAspect
	}

	if w > hardPixelCap || h > hardPixelCap {
		scale := hardPixelCap / math.Max(w, h)
		w *= scale
		h *= scale
	}

	tw, th := int(w+0.5), int(h+0.5)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

func cellsForPixels(pxW, pxH, cellPxW, cellPxH int) (cols, rows int) {
	if cellPxW <= 0 {
		cellPxW = 10
	}
	if cellPxH <= 0 {
		cellPxH = 20
	}
	cols = (pxW + cellPxW - 1) / cellPxW
	rows = (pxH + cellPxH - 1) / cellPxH
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// rotatePoint maps a point in a w x h source pixmap through quarterTurns
// 90-degree clockwise rotations, matching rotateImage's pixel mapping.
func rotatePoint(x, y float64, w, h, quarterTurns int) (float64, float64) {
	switch ((quarterTurns % 4) + 4) % 4 {
	case 1:
		return float64(h) - y, x
	case 2:
		return float64(w) - x, float64(h) - y
	case 3:
		return y, float64(w) - x
	default:
		return x, y
	}
}

// rotateImage rotates img clockwise by quarterTurns 90-degree steps.
func rotateImage(img image.Image, quarterTurns int) image.Image {
	quarterTurns = ((quarterTurns % 4) + 4) % 4
	if quarterTurns == 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch quarterTurns {
	case 1:
		out := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
		return out
	case 3:
		out := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(y, w-1-x, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
		return out
	default: // 2
		out := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
		return out
	}
}

// applyTint remaps img's colors between the black/white endpoints by
// luminance, optionally inverting first. Decided Open Question (see
// DESIGN.md): invert is applied before the black/white remap, so a
// custom tint always describes the final displayed extremes regardless
// of whether invert is also active.
func applyTint(img image.Image, invert bool, white, black uint32) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	wr, wg, wb := float64(uint8(white>>16)), float64(uint8(white>>8)), float64(uint8(white))
	br, bg, bb := float64(uint8(black>>16)), float64(uint8(black>>8)), float64(uint8(black))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			r8, g8, b8 := float64(r>>8), float64(g>>8), float64(bl>>8)
			if invert {
				r8, g8, b8 = 255-r8, 255-g8, 255-b8
			}
			lum := (r8 + g8 + b8) / (3 * 255)
			nr := uint8(br + lum*(wr-br))
			ng := uint8(bg + lum*(wg-bg))
			nb := uint8(bb + lum*(wb-bb))
			out.Set(x, y, color.RGBA{R: nr, G: ng, B: nb, A: uint8(a >> 8)})
		}
	}
	return out
}
