// Package termproto detects the terminal's inline-image capability and
// renders the two "generic" (fully in-band) wire formats, Sixel and
// iTerm2, via github.com/BourgeoisBear/rasterm. Kitty, which needs
// out-of-band id reuse and shared-memory transport, lives in
// internal/kitty instead.
package termproto

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/BourgeoisBear/rasterm"
	"golang.org/x/image/draw"
)

// Capability is the terminal's inline-image protocol.
type Capability int

const (
	CapNone Capability = iota
	CapKitty
	CapSixel
	CapITerm
)

func (c Capability) String() string {
	switch c {
	case CapKitty:
		return "kitty"
	case CapSixel:
		return "sixel"
	case CapITerm:
		return "iterm"
	default:
		return "none"
	}
}

// Detect inspects environment variables to guess the terminal's image
// capability, preferring Kitty > iTerm2 > Sixel > none.
func Detect() Capability {
	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return CapKitty
	}
	term := os.Getenv("TERM")
	if strings.Contains(term, "kitty") {
		return CapKitty
	}

	termProgram := os.Getenv("TERM_PROGRAM")
	switch termProgram {
	case "iTerm.app", "WezTerm":
		return CapITerm
	case "ghostty":
		return CapKitty
	}
	if os.Getenv("LC_TERMINAL") == "iTerm2" {
		return CapITerm
	}

	if strings.Contains(term, "sixel") || strings.Contains(term, "mlterm") {
		return CapSixel
	}

	return CapNone
}

// WriteSixel encodes img as a Sixel escape sequence into buf.
func WriteSixel(buf *bytes.Buffer, img image.Image) error {
	return rasterm.SixelWriteImage(buf, ToPaletted(img))
}

// WriteIterm encodes img as an iTerm2 OSC 1337 inline-image sequence.
func WriteIterm(buf *bytes.Buffer, img image.Image) error {
	return rasterm.ItermWriteImage(buf, img)
}

// ToPaletted quantizes img onto a fixed 256-color palette (a 6x6x6 color
// cube plus 40 grays) via Floyd-Steinberg dithering, the format Sixel
// output requires.
func ToPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()

	palette := make(color.Palette, 256)
	idx := 0
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				palette[idx] = color.RGBA{R: uint8(r * 51), G: uint8(g * 51), B: uint8(b * 51), A: 255}
				idx++
			}
		}
	}
	for i := 0; i < 40; i++ {
		gray := uint8(i * 255 / 39)
		palette[idx] = color.RGBA{R: gray, G: gray, B: gray, A: 255}
		idx++
	}

	paletted := image.NewPaletted(bounds, palette)
	draw.FloydSteinberg.Draw(paletted, bounds, img, bounds.Min)
	return paletted
}
