// Package kitty implements the Kitty terminal graphics protocol: APC
// transmit/display/delete sequences, Unicode-placeholder virtual
// placements (so an image is transmitted once and redisplayed by id
// thereafter), and parsing of the protocol's APC response frames so the
// UI Controller can detect terminal-side eviction.
package kitty

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// rowColDiacritics are the Unicode combining characters Kitty uses to
// encode a placeholder cell's row/column within a virtual placement.
// https://sw.kovidgoyal.net/kitty/_downloads/f0a0de9ec8d9ff4456206db8e0814937/rowcolumn-diacritics.txt
var rowColDiacritics = []rune{
	0x0305, 0x030D, 0x030E, 0x0310, 0x0312, 0x033D, 0x033E, 0x033F,
	0x0346, 0x034A, 0x034B, 0x034C, 0x0350, 0x0351, 0x0352, 0x0357,
	0x035B, 0x0363, 0x0364, 0x0365, 0x0366, 0x0367, 0x0368, 0x0369,
	0x036A, 0x036B, 0x036C, 0x036D, 0x036E, 0x036F, 0x0483, 0x0484,
	0x0485, 0x0486, 0x0487, 0x0592, 0x0593, 0x0594, 0x0595, 0x0597,
	0x0598, 0x0599, 0x059C, 0x059D, 0x059E, 0x059F, 0x05A0, 0x05A1,
	0x05A8, 0x05A9, 0x05AB, 0x05AC, 0x05AF, 0x05C4, 0x0610, 0x0611,
	0x0612, 0x0613, 0x0614, 0x0615, 0x0616, 0x0617, 0x0657, 0x0658,
	0x0659, 0x065A, 0x065B, 0x065D, 0x065E, 0x06D6, 0x06D7, 0x06D8,
	0x06D9, 0x06DA, 0x06DB, 0x06DC, 0x06DF, 0x06E0, 0x06E1, 0x06E2,
	0x06E4, 0x06E7, 0x06E8, 0x06EB, 0x06EC, 0x0730, 0x0732, 0x0733,
	0x0735, 0x0736, 0x073A, 0x073D, 0x073F, 0x0740, 0x0741, 0x0743,
	0x0745, 0x0747, 0x0749, 0x074A, 0x07EB, 0x07EC, 0x07ED, 0x07EE,
	0x07EF, 0x07F0, 0x07F1, 0x07F3, 0x0816, 0x0817, 0x0818, 0x0819,
	0x081B, 0x081C, 0x081D, 0x081E, 0x081F, 0x0820, 0x0821, 0x0822,
	0x0823, 0x0825, 0x0826, 0x0827, 0x0829, 0x082A, 0x082B, 0x082C,
	0x082D, 0x0951, 0x0953, 0x0954, 0x0F82, 0x0F83, 0x0F86, 0x0F87,
	0x135D, 0x135E, 0x135F, 0x17DD, 0x193A, 0x1A17, 0x1A75, 0x1A76,
	0x1A77, 0x1A78, 0x1A79, 0x1A7A, 0x1A7B, 0x1A7C, 0x1B6B, 0x1B6D,
	0x1B6E, 0x1B6F, 0x1B70, 0x1B71, 0x1B72, 0x1B73, 0x1CD0, 0x1CD1,
	0x1CD2, 0x1CDA, 0x1CDB, 0x1CE0, 0x1DC0, 0x1DC1, 0x1DC3, 0x1DC4,
	0x1DC5, 0x1DC6, 0x1DC7, 0x1DC8, 0x1DC9, 0x1DCB, 0x1DCC, 0x1DD1,
	0x1DD2, 0x1DD3, 0x1DD4, 0x1DD5, 0x1DD6, 0x1DD7, 0x1DD8, 0x1DD9,
	0x1DDA, 0x1DDB, 0x1DDC, 0x1DDD, 0x1DDE, 0x1DDF, 0x1DE0, 0x1DE1,
	0x1DE2, 0x1DE3, 0x1DE4, 0x1DE5, 0x1DE6, 0x1DFE, 0x20D0, 0x20D1,
	0x20D4, 0x20D5, 0x20D6, 0x20D7, 0x20DB, 0x20DC, 0x20E1, 0x20E7,
	0x20E9, 0x20F0, 0x2CEF, 0x2CF0, 0x2CF1, 0x2DE0, 0x2DE1, 0x2DE2,
	0x2DE3, 0x2DE4, 0x2DE5, 0x2DE6, 0x2DE7, 0x2DE8, 0x2DE9, 0x2DEA,
	0x2DEB, 0x2DEC, 0x2DED, 0x2DEE, 0x2DEF, 0x2DF0, 0x2DF1, 0x2DF2,
	0x2DF3, 0x2DF4, 0x2DF5, 0x2DF6, 0x2DF7, 0x2DF8, 0x2DF9, 0x2DFA,
	0x2DFB, 0x2DFC, 0x2DFD, 0x2DFE, 0x2DFF,
}

const placeholderRune = rune(0x10EEEE)

// chunkSize is the maximum base64 payload per APC transmit chunk.
const chunkSize = 4096

// ImageID returns the stable Kitty image id for a page: page+1, so ids
// stay in [1, 2^31) as spec.md §6 requires and 0 (reserved) never appears.
func ImageID(page int) uint32 {
	return uint32(page + 1)
}

// State records whether a Placement's pixels have already been sent to
// the terminal.
type State int

const (
	NotYet State = iota
	Transferred
)

// Source is the pending pixel data for a not-yet-transferred placement.
// It is either an owned in-process image or a reference to a shared-
// memory segment the Converter already populated.
type Source struct {
	Owned image.Image // nil if Shm is set
	Shm   *ShmImage   // nil if Owned is set
}

// Placement is one entry in a Kitty display frame.
type Placement struct {
	Page   int
	ID     uint32
	State  State
	Source Source // only read when State == NotYet
	Cols   int
	Rows   int

	// CropX/CropY/CropW/CropH select a pixel sub-rectangle of the source
	// image to display, letting the UI pan and zoom without re-rasterizing
	// the page. CropW == 0 (or CropH == 0) means the full image.
	CropX, CropY, CropW, CropH int
}

// Result is what one display-list frame produces.
type Result struct {
	// Frame is the composed string - delete-all, then each placement's
	// transmit-or-display sequence - meant to be embedded directly in the
	// bubbletea frame at the point the image should appear.
	Frame string
	// Failed lists pages whose encode step failed this frame (e.g. a
	// shared-memory write error), distinct from terminal-reported errors
	// which arrive later via response parsing.
	Failed []int
}

// Driver composes Kitty protocol frames. It holds no terminal state of
// its own; Placement.State is the caller's record of what has already
// been transmitted.
type Driver struct{}

// NewDriver returns a ready-to-use Driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Frame builds one display-list frame: a single delete-all, followed by
// each placement's transmit-and-display (first time) or display-by-id
// (subsequent times) sequence, in list order. Placements whose State is
// NotYet are mutated to Transferred on success.
func (d *Driver) Frame(placements []Placement) Result {
	var b strings.Builder
	b.WriteString(deleteAll())

	var failed []int
	for i := range placements {
		p := &placements[i]
		if p.State == Transferred {
			b.WriteString(displayByID(p.ID, p.Cols, p.Rows, p.CropX, p.CropY, p.CropW, p.CropH))
			continue
		}

		seq, err := transmitAndDisplay(p.ID, p.Source, p.Cols, p.Rows, p.CropX, p.CropY, p.CropW, p.CropH)
		if err != nil {
			failed = append(failed, p.Page)
			continue
		}
		b.WriteString(seq)
		p.State = Transferred
		// Ownership of the pixel source passes to the terminal once
		// transmission succeeds; drop our side so a shm segment never
		// outlives its one use.
		if p.Source.Shm != nil {
			p.Source.Shm.Close()
		}
		p.Source = Source{}
	}

	return Result{Frame: b.String(), Failed: failed}
}

func deleteAll() string {
	return "\x1b_Ga=d,d=A,q=2\x1b\\"
}

// cropArgs renders the optional source sub-rectangle keys for a pan/zoom
// placement. An empty string means "use the full image".
func cropArgs(x, y, w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	return fmt.Sprintf(",x=%d,y=%d,w=%d,h=%d", x, y, w, h)
}

func displayByID(id uint32, cols, rows, cropX, cropY, cropW, cropH int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\x1b_Ga=p,U=1,i=%d,q=2%s\x1b\\", id, cropArgs(cropX, cropY, cropW, cropH))
	writePlaceholderGrid(&b, id, cols, rows)
	return b.String()
}

func transmitAndDisplay(id uint32, src Source, cols, rows, cropX, cropY, cropW, cropH int) (string, error) {
	switch {
	case src.Shm != nil:
		return transmitShm(id, src.Shm, cols, rows, cropX, cropY, cropW, cropH)
	case src.Owned != nil:
		return transmitOwned(id, src.Owned, cols, rows, cropX, cropY, cropW, cropH)
	default:
		return "", fmt.Errorf("kitty: placement %d has no pixel source", id)
	}
}

func transmitOwned(id uint32, img image.Image, cols, rows, cropX, cropY, cropW, cropH int) (string, error) {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return "", fmt.Errorf("kitty: encode png: %w", err)
	}
	data := base64.StdEncoding.EncodeToString(pngBuf.Bytes())

	var b strings.Builder
	// Clear any stale image at this id before re-transmitting (ids are
	// reused across reloads of the same page).
	fmt.Fprintf(&b, "\x1b_Ga=d,i=%d,q=2\x1b\\", id)

	writeChunked(&b, data, func(first bool, more int) string {
		if first {
			return fmt.Sprintf("a=T,U=1,f=100,t=d,i=%d,c=%d,r=%d,q=2,m=%d%s",
				id, cols, rows, more, cropArgs(cropX, cropY, cropW, cropH))
		}
		return fmt.Sprintf("m=%d", more)
	})

	writePlaceholderGrid(&b, id, cols, rows)
	return b.String(), nil
}

// transmitShm emits a shared-memory transmit: the APC payload is the
// base64-encoded shm segment name, not the pixel data itself, so a
// large pixmap never travels twice through the pty.
func transmitShm(id uint32, shm *ShmImage, cols, rows, cropX, cropY, cropW, cropH int) (string, error) {
	if shm == nil {
		return "", fmt.Errorf("kitty: nil shm source for id %d", id)
	}
	nameB64 := base64.StdEncoding.EncodeToString([]byte(shm.Name))

	var b strings.Builder
	fmt.Fprintf(&b, "\x1b_Ga=d,i=%d,q=2\x1b\\", id)
	fmt.Fprintf(&b, "\x1b_Ga=T,U=1,f=32,t=s,s=%d,v=%d,i=%d,c=%d,r=%d,q=2%s;%s\x1b\\",
		shm.Width, shm.Height, id, cols, rows, cropArgs(cropX, cropY, cropW, cropH), nameB64)
	writePlaceholderGrid(&b, id, cols, rows)
	return b.String(), nil
}

func writeChunked(b *strings.Builder, data string, header func(first bool, more int) string) {
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		more := 1
		if end >= len(data) {
			end = len(data)
			more = 0
		}
		chunk := data[i:end]
		fmt.Fprintf(b, "\x1b_G%s;%s\x1b\\", header(i == 0, more), chunk)
	}
}

// writePlaceholderGrid writes the Unicode virtual-placement placeholder
// text for a cols x rows image whose foreground color encodes id - the
// text that occupies the actual grid cells in the rendered frame.
func writePlaceholderGrid(b *strings.Builder, id uint32, cols, rows int) {
	r := (id >> 16) & 0xFF
	g := (id >> 8) & 0xFF
	bl := id & 0xFF
	fmt.Fprintf(b, "\x1b[38;2;%d;%d;%dm", r, g, bl)

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			b.WriteRune(placeholderRune)
			b.WriteRune(rowColDiacritics[row%len(rowColDiacritics)])
			b.WriteRune(rowColDiacritics[col%len(rowColDiacritics)])
		}
		if row < rows-1 {
			b.WriteByte('\n')
		}
	}
	b.WriteString("\x1b[39m")
}

// CellsForPixels estimates the placeholder grid size for a pixel image
// given a terminal cell's approximate pixel dimensions.
func CellsForPixels(pxW, pxH, cellPxW, cellPxH int) (cols, rows int) {
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
