// Package ui implements the UI Controller: a bubbletea program that
// multiplexes terminal input, watcher events, and the Renderer's and
// Converter's outputs, decides what to draw each tick, and embeds the
// Kitty Display Driver's composed frame string in the text frame.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/termviewer/pdftui/internal/convert"
	"github.com/termviewer/pdftui/internal/history"
	"github.com/termviewer/pdftui/internal/kitty"
	"github.com/termviewer/pdftui/internal/render"
	"github.com/termviewer/pdftui/internal/termproto"
)

// Options configures one Model.
type Options struct {
	Path        string
	RightToLeft bool
	MaxWide     int
	Fullscreen  bool
	Prerender   int
	CellPxW     int
	CellPxH     int

	TermCap termproto.Capability

	RenderIn  chan<- render.Notif
	RenderOut <-chan render.Result
	ConvIn    chan<- convert.Msg
	ConvOut   <-chan convert.Result

	WatchEvents <-chan WatchEvent
	SuspendCh   <-chan struct{}

	History *history.History
}

// WatchEvent is the minimal shape Model needs from internal/watch,
// kept local so this package doesn't import it just for one field; cmd
// adapts watch.Event{Kind} into this at construction time.
type WatchEvent struct {
	Deleted bool
}

// Model is the bubbletea model for the whole viewer.
type Model struct {
	opts Options

	width, height int
	area          render.Area

	pageCount  int
	current    int
	pagesShown int
	slots      []pageSlot
	images     map[int]convert.Image

	rightToLeft bool
	maxWide     int
	fullscreen  bool
	invert      bool
	rotateSteps int
	fitOrFill   render.FitOrFill

	// zoomLevel/panX/panY are the Kitty-only pan/zoom state (spec.md
	// §4.3): zoomLevel == minZoom shows the full page; panX/panY are the
	// top-left corner of the visible source crop, as a fraction of the
	// page's pixel dimensions.
	zoomLevel  float64
	panX, panY float64

	status *StatusBar
	keys   KeyMap
	theme  Theme
	styles *Styles

	kittyDriver     *kitty.Driver
	kittyPlacements map[int]*kitty.Placement
	frames          *frameCache

	imageFrameDirty bool
	imageFrameCache string

	quitting bool
}

// New constructs the initial Model. Call tea.NewProgram(m, ...) on the
// result.
func New(opts Options) *Model {
	renderer := lipgloss.DefaultRenderer()
	theme := DefaultTheme()
	return &Model{
		opts:            opts,
		rightToLeft:     opts.RightToLeft,
		maxWide:         opts.MaxWide,
		fullscreen:      opts.Fullscreen,
		fitOrFill:       render.Fit,
		zoomLevel:       minZoom,
		status:          NewStatusBar(),
		keys:            DefaultKeyMap(),
		theme:           theme,
		styles:          NewStyles(renderer, theme),
		kittyDriver:     kitty.NewDriver(),
		kittyPlacements: make(map[int]*kitty.Placement),
		frames:          newFrameCache(),
		images:          make(map[int]convert.Image),
		imageFrameDirty: true,
	}
}

// Init starts the background listeners that translate the Renderer's,
// Converter's, watcher's, and signal's channels into tea.Msg values.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitRenderResult(m.opts.RenderOut),
		waitConvertResult(m.opts.ConvOut),
	}
	if m.opts.WatchEvents != nil {
		cmds = append(cmds, waitWatchEvent(m.opts.WatchEvents))
	}
	if m.opts.SuspendCh != nil {
		cmds = append(cmds, waitSuspend(m.opts.SuspendCh))
	}
	if m.opts.History != nil {
		if p, ok := m.opts.History.Get(m.opts.Path); ok && p > 0 {
			cmds = append(cmds, sendNotif(m.opts.RenderIn, render.JumpToPageNotif{Page: p}))
			cmds = append(cmds, sendConvMsg(m.opts.ConvIn, convert.GoToPageMsg{Page: p}))
			m.current = p
		}
	}
	return tea.Batch(cmds...)
}

type renderResultMsg struct{ r render.Result }
type convertResultMsg struct{ r convert.Result }
type watchEventMsg struct{ e WatchEvent }
type suspendMsg struct{}

// KittyResponseMsg wraps a parsed Kitty APC response frame, delivered
// by the filtering stdin reader installed in cmd via tea.WithInput and
// Program.Send - kept out of bubbletea's own input parser entirely.
type KittyResponseMsg struct{ Response kitty.Response }

func waitRenderResult(ch <-chan render.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return renderResultMsg{r}
	}
}

func waitConvertResult(ch <-chan convert.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return convertResultMsg{r}
	}
}

func waitWatchEvent(ch <-chan WatchEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return watchEventMsg{e}
	}
}

func waitSuspend(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-ch
		if !ok {
			return nil
		}
		return suspendMsg{}
	}
}

func sendNotif(ch chan<- render.Notif, n render.Notif) tea.Cmd {
	return func() tea.Msg {
		ch <- n
		return nil
	}
}

func sendConvMsg(ch chan<- convert.Msg, msg convert.Msg) tea.Cmd {
	return func() tea.Msg {
		ch <- msg
		return nil
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(v)
	case tea.KeyMsg:
		return m.handleKey(v)
	case renderResultMsg:
		return m.handleRenderResult(v.r)
	case convertResultMsg:
		return m.handleConvertResult(v.r)
	case watchEventMsg:
		return m.handleWatchEvent(v.e)
	case KittyResponseMsg:
		return m.handleKittyResponse(v.Response)
	case suspendMsg:
		return m.handleResume()
	case QuitRequestedMsg:
		return m.quit()
	}
	return m, nil
}

// QuitRequestedMsg asks the Model to shut down the same way the Quit key
// binding does — persisting history before returning tea.Quit. cmd sends
// this from its SIGINT/SIGTERM handler instead of calling Program.Quit
// directly, since the latter bypasses Update and would skip the save.
type QuitRequestedMsg struct{}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.opts.History != nil {
		m.opts.History.Set(m.opts.Path, m.current)
		m.opts.History.Save()
	}
	return m, tea.Quit
}

func (m *Model) handleResize(v tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = v.Width, v.Height

	chrome := 0
	if !m.fullscreen {
		chrome = 2 // title line + status line
	}
	availRows := m.height - chrome
	if availRows < 1 {
		availRows = 1
	}

	newArea := render.Area{
		W: m.width * max1(m.opts.CellPxW),
		H: availRows * max1(m.opts.CellPxH),
	}
	if newArea == m.area {
		return m, nil
	}
	m.area = newArea
	m.pagesShown = 1
	m.imageFrameDirty = true
	return m, sendNotif(m.opts.RenderIn, render.AreaNotif{W: newArea.W, H: newArea.H})
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func (m *Model) handleKey(v tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.status.InInput() {
		return m.handleModalKey(v)
	}

	switch {
	case key.Matches(v, m.keys.Quit):
		return m.quit()
	case key.Matches(v, m.keys.Suspend):
		return m, tea.Suspend
	case key.Matches(v, m.keys.Escape):
		// No modal active: Escape does nothing (only Esc-while-modal pops).
		return m, nil
	case key.Matches(v, m.keys.PageLeft):
		return m.jumpBy(m.navSign(-1))
	case key.Matches(v, m.keys.PageRight):
		return m.jumpBy(m.navSign(1))
	case key.Matches(v, m.keys.ScreenUp):
		return m.jumpBy(m.navSign(-max1(m.pagesShown)))
	case key.Matches(v, m.keys.ScreenDn):
		return m.jumpBy(m.navSign(max1(m.pagesShown)))
	case key.Matches(v, m.keys.Search):
		m.status.BeginSearch()
		return m, nil
	case key.Matches(v, m.keys.JumpStart):
		m.status.BeginGoToPage()
		return m, nil
	case key.Matches(v, m.keys.NextHit):
		return m.jumpToHit(1)
	case key.Matches(v, m.keys.PrevHit):
		return m.jumpToHit(-1)
	case key.Matches(v, m.keys.Invert):
		m.invert = !m.invert
		m.imageFrameDirty = true
		return m, sendNotif(m.opts.RenderIn, render.InvertNotif{})
	case key.Matches(v, m.keys.Rotate):
		m.rotateSteps = (m.rotateSteps + 1) % 4
		m.imageFrameDirty = true
		return m, sendNotif(m.opts.RenderIn, render.RotateNotif{})
	case key.Matches(v, m.keys.Fullscreen):
		m.fullscreen = !m.fullscreen
		m.imageFrameDirty = true
		return m, nil
	case m.opts.TermCap == termproto.CapKitty && key.Matches(v, m.keys.ZoomToggle):
		if m.fitOrFill == render.Fit {
			m.fitOrFill = render.Fill
		} else {
			m.fitOrFill = render.Fit
		}
		m.imageFrameDirty = true
		return m, sendNotif(m.opts.RenderIn, render.SwitchFitOrFillNotif{Mode: m.fitOrFill})
	case m.opts.TermCap == termproto.CapKitty && key.Matches(v, m.keys.ZoomIn):
		return m.adjustZoom(zoomStep)
	case m.opts.TermCap == termproto.CapKitty && key.Matches(v, m.keys.ZoomOut):
		return m.adjustZoom(1 / zoomStep)
	case m.opts.TermCap == termproto.CapKitty && key.Matches(v, m.keys.PanLeft):
		return m.pan(-panStep, 0)
	case m.opts.TermCap == termproto.CapKitty && key.Matches(v, m.keys.PanRight):
		return m.pan(panStep, 0)
	case m.opts.TermCap == termproto.CapKitty && key.Matches(v, m.keys.PanUp):
		return m.pan(0, -panStep)
	case m.opts.TermCap == termproto.CapKitty && key.Matches(v, m.keys.PanDown):
		return m.pan(0, panStep)
	}
	return m, nil
}

// navSign flips navigation direction in right-to-left mode, per
// spec.md's "right-to-left swaps h/l and j/k semantics".
func (m *Model) navSign(delta int) int {
	if m.rightToLeft {
		return -delta
	}
	return delta
}

const (
	minZoom  = 1.0
	maxZoom  = 8.0
	zoomStep = 1.25
	panStep  = 0.1
)

// adjustZoom multiplies the zoom level by factor, clamped to
// [minZoom, maxZoom]. Zooming back out to minZoom recenters the view.
func (m *Model) adjustZoom(factor float64) (tea.Model, tea.Cmd) {
	z := m.zoomLevel * factor
	if z < minZoom {
		z = minZoom
	}
	if z > maxZoom {
		z = maxZoom
	}
	m.zoomLevel = z
	if z == minZoom {
		m.panX, m.panY = 0, 0
	}
	m.clampPan()
	m.imageFrameDirty = true
	return m, nil
}

// pan shifts the crop window by (dx, dy), as a fraction of the page's
// pixel dimensions. A no-op at minZoom, since the full page is visible.
func (m *Model) pan(dx, dy float64) (tea.Model, tea.Cmd) {
	if m.zoomLevel <= minZoom {
		return m, nil
	}
	m.panX += dx
	m.panY += dy
	m.clampPan()
	m.imageFrameDirty = true
	return m, nil
}

// clampPan keeps the crop window's top-left corner within the page, so
// panning never slides the visible window past the page edge.
func (m *Model) clampPan() {
	maxPan := 1 - 1/m.zoomLevel
	if maxPan < 0 {
		maxPan = 0
	}
	m.panX = clampFloat(m.panX, 0, maxPan)
	m.panY = clampFloat(m.panY, 0, maxPan)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// cropRect returns the pixel source sub-rectangle for the current
// zoom/pan state over a page of the given pixel dimensions. CropW/CropH
// of 0 mean "no crop, use the full image".
func (m *Model) cropRect(pxW, pxH int) (x, y, w, h int) {
	if m.zoomLevel <= minZoom || pxW <= 0 || pxH <= 0 {
		return 0, 0, 0, 0
	}
	w = int(float64(pxW) / m.zoomLevel)
	h = int(float64(pxH) / m.zoomLevel)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x = int(m.panX * float64(pxW))
	y = int(m.panY * float64(pxH))
	return x, y, w, h
}

func (m *Model) jumpBy(delta int) (tea.Model, tea.Cmd) {
	return m.jumpTo(m.current + delta)
}

func (m *Model) jumpTo(page int) (tea.Model, tea.Cmd) {
	if m.pageCount == 0 {
		return m, nil
	}
	if page < 0 {
		page = 0
	}
	if page >= m.pageCount {
		page = m.pageCount - 1
	}
	if page == m.current {
		return m, nil
	}
	m.current = page
	m.imageFrameDirty = true
	return m, tea.Batch(
		sendNotif(m.opts.RenderIn, render.JumpToPageNotif{Page: page}),
		sendConvMsg(m.opts.ConvIn, convert.GoToPageMsg{Page: page}),
	)
}

func (m *Model) jumpToHit(dir int) (tea.Model, tea.Cmd) {
	if m.pageCount == 0 {
		return m, nil
	}
	for i := 1; i <= m.pageCount; i++ {
		p := ((m.current+dir*i)%m.pageCount + m.pageCount) % m.pageCount
		if p < len(m.slots) && m.slots[p].numResults != nil && *m.slots[p].numResults > 0 {
			return m.jumpTo(p)
		}
	}
	return m, nil
}

func (m *Model) handleModalKey(v tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(v, m.keys.Escape):
		m.status.Pop()
		return m, nil
	case key.Matches(v, m.keys.Enter):
		return m.submitModal()
	default:
		return m, m.status.UpdateInput(v)
	}
}

func (m *Model) submitModal() (tea.Model, tea.Cmd) {
	buf, _ := m.status.InputBuffer()
	wasGoTo := m.status.current.kind == statusInputGoToPage
	m.status.Pop()

	if wasGoTo {
		var page int
		if _, err := fmt.Sscanf(buf, "%d", &page); err != nil {
			return m, nil
		}
		return m.jumpTo(page - 1)
	}

	m.status.ShowSearchResults(buf)
	return m, sendNotif(m.opts.RenderIn, render.SearchNotif{Term: buf})
}

func (m *Model) handleRenderResult(r render.Result) (tea.Model, tea.Cmd) {
	switch v := r.(type) {
	case render.NumPagesResult:
		m.pageCount = v.N
		m.slots = make([]pageSlot, v.N)
		if m.current >= v.N {
			m.current = v.N - 1
		}
		if m.current < 0 {
			m.current = 0
		}
		m.images = make(map[int]convert.Image)
		m.kittyPlacements = make(map[int]*kitty.Placement)
		m.frames.clear()
		m.imageFrameDirty = true
		return m, tea.Batch(
			waitRenderResult(m.opts.RenderOut),
			sendConvMsg(m.opts.ConvIn, convert.NumPagesMsg{N: v.N}),
		)
	case render.PageResult:
		return m, tea.Batch(
			waitRenderResult(m.opts.RenderOut),
			sendConvMsg(m.opts.ConvIn, convert.AddImgMsg{Info: v.Info}),
		)
	case render.SearchResultsResult:
		if v.Page < len(m.slots) {
			count := v.Count
			m.slots[v.Page].numResults = &count
		}
		return m, waitRenderResult(m.opts.RenderOut)
	case render.ReloadedResult:
		m.status.ShowReloaded()
		return m, waitRenderResult(m.opts.RenderOut)
	case render.ErrorResult:
		if kitty.IsNoEntity(v.Err) {
			return m, waitRenderResult(m.opts.RenderOut)
		}
		m.status.ShowError(v.Err.Error())
		return m, waitRenderResult(m.opts.RenderOut)
	}
	return m, waitRenderResult(m.opts.RenderOut)
}

func (m *Model) handleConvertResult(r convert.Result) (tea.Model, tea.Cmd) {
	switch v := r.(type) {
	case convert.PageResult:
		if v.PageNum < len(m.slots) {
			count := v.NumResults
			m.slots[v.PageNum].numResults = &count
			m.slots[v.PageNum].image = &slotImage{cellW: v.Image.CellW, cellH: v.Image.CellH, ready: true}
		}
		m.images[v.PageNum] = v.Image
		if v.Image.Kind == convert.KindKitty {
			m.kittyPlacements[v.PageNum] = &kitty.Placement{
				Page:   v.PageNum,
				ID:     kitty.ImageID(v.PageNum),
				State:  kitty.NotYet,
				Source: kittySource(v.Image),
				Cols:   v.Image.CellW,
				Rows:   v.Image.CellH,
			}
		}
		m.imageFrameDirty = true
		return m, waitConvertResult(m.opts.ConvOut)
	case convert.ErrorResult:
		m.status.ShowError(fmt.Sprintf("page %d: %v", v.Page, v.Err))
		return m, waitConvertResult(m.opts.ConvOut)
	}
	return m, waitConvertResult(m.opts.ConvOut)
}

func kittySource(img convert.Image) kitty.Source {
	if img.KittyShm != nil {
		return kitty.Source{Shm: img.KittyShm}
	}
	return kitty.Source{Owned: img.KittyOwned}
}

func (m *Model) handleWatchEvent(e WatchEvent) (tea.Model, tea.Cmd) {
	if e.Deleted {
		m.status.ShowError("file deleted")
		return m, waitWatchEvent(m.opts.WatchEvents)
	}
	return m, tea.Batch(
		waitWatchEvent(m.opts.WatchEvents),
		sendNotif(m.opts.RenderIn, render.ReloadNotif{}),
	)
}

func (m *Model) handleKittyResponse(r kitty.Response) (tea.Model, tea.Cmd) {
	if err := r.AsError(); err != nil {
		if kitty.IsNoEntity(err) {
			page := int(r.ID) - 1
			if p, ok := m.kittyPlacements[page]; ok {
				p.State = kitty.NotYet
			}
			return m, sendNotif(m.opts.RenderIn, render.PageNeedsReRenderNotif{Page: page})
		}
		m.status.ShowError(err.Error())
	}
	return m, nil
}

func (m *Model) handleResume() (tea.Model, tea.Cmd) {
	// A SIGCONT after a Ctrl-Z bounce means the terminal's image memory
	// may have been dropped; force everything to retransmit.
	for _, p := range m.kittyPlacements {
		p.State = kitty.NotYet
	}
	m.imageFrameDirty = true
	return m, waitSuspend(m.opts.SuspendCh)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if !m.fullscreen {
		b.WriteString(m.styles.Title.Render("pdftui") + "\n")
	}

	b.WriteString(m.renderImageArea())

	if !m.fullscreen {
		b.WriteString("\n" + m.renderStatusLine())
	}
	return b.String()
}

func (m *Model) renderStatusLine() string {
	text := m.status.Render(m.current, max1(m.pageCount))
	if m.status.current.kind == statusError {
		return m.styles.StatusErr.Render(Truncate(text, m.width))
	}
	return m.styles.StatusBar.Render(Truncate(text, m.width))
}

func (m *Model) renderImageArea() string {
	if m.imageFrameDirty {
		m.imageFrameCache = m.composeImageArea()
		m.imageFrameDirty = false
	}
	return m.imageFrameCache
}

func (m *Model) composeImageArea() string {
	if m.pageCount == 0 {
		return m.styles.Loading.Render("Loading…")
	}

	prefix := selectPrefix(m.slots, m.current, max1(m.width), m.maxWide)
	if len(prefix) == 0 {
		return m.styles.Loading.Render("Loading…")
	}
	if m.rightToLeft {
		reverseInts(prefix)
	}

	var out strings.Builder
	var kittyPlacements []kitty.Placement
	for _, p := range prefix {
		img, ok := m.images[p]
		if !ok {
			continue
		}
		switch img.Kind {
		case convert.KindGeneric:
			out.Write(img.Generic)
		case convert.KindKitty:
			if pl, ok := m.kittyPlacements[p]; ok {
				cp := *pl
				cp.CropX, cp.CropY, cp.CropW, cp.CropH = m.cropRect(img.PxW, img.PxH)
				kittyPlacements = append(kittyPlacements, cp)
			}
		}
	}

	if m.opts.TermCap == termproto.CapKitty && len(kittyPlacements) > 0 {
		allTransferred := true
		for _, p := range kittyPlacements {
			if p.State != kitty.Transferred {
				allTransferred = false
				break
			}
		}

		if allTransferred {
			sig := placementSignature(kittyPlacements)
			if cached, ok := m.frames.get(sig); ok {
				out.WriteString(cached)
				return out.String()
			}
			res := m.kittyDriver.Frame(kittyPlacements)
			m.frames.put(sig, res.Frame)
			out.WriteString(res.Frame)
			return out.String()
		}

		res := m.kittyDriver.Frame(kittyPlacements)
		for i := range kittyPlacements {
			if orig, ok := m.kittyPlacements[kittyPlacements[i].Page]; ok {
				*orig = kittyPlacements[i]
			}
		}
		for _, failedPage := range res.Failed {
			if orig, ok := m.kittyPlacements[failedPage]; ok {
				orig.State = kitty.NotYet
			}
		}
		out.WriteString(res.Frame)
	}

	return out.String()
}
