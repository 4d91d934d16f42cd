// Package config holds the viewer's run-time configuration, derived
// entirely from CLI flags (per spec.md's Non-goals, nothing beyond the
// per-file last-visited page is persisted as configuration).
package config

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Config is the fully-resolved set of options for one run.
type Config struct {
	Path          string
	RightToLeft   bool
	MaxWide       int
	Fullscreen    bool
	ReloadDelayMS int
	Prerender     int
	White         uint32
	Black         uint32
}

// DefaultReloadDelayMS is the debounce window applied to filesystem
// change events before a Reload is emitted.
const DefaultReloadDelayMS = 50

// DefaultWhite and DefaultBlack are the tint remap endpoints used when
// -w/-b are not given.
const (
	DefaultWhite = 0xFFFFFF
	DefaultBlack = 0x000000
)

// ParseColor parses a CSS hex color ("#rrggbb" or "#rgb") into a 24-bit
// packed integer whose big-endian byte representation is [0, R, G, B].
func ParseColor(css string) (uint32, error) {
	c, err := colorful.Hex(css)
	if err != nil {
		return 0, fmt.Errorf("config: invalid color %q: %w", css, err)
	}
	r, g, b := c.RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b), nil
}

// RGB unpacks a packed color back into its byte components.
func RGB(c uint32) (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}
