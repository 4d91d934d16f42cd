// Package termsize resolves the terminal's pixel dimensions, which the
// Renderer needs to compute a fit/fill scale factor. Most terminals
// report pixel size via the TIOCGWINSZ ioctl; a few only report it
// through the ESC[14t query/response sequence.
package termsize

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Size holds both the cell and pixel dimensions of a terminal.
type Size struct {
	Cols, Rows     int
	PixelW, PixelH int
}

// IoctlSize reads cell and pixel dimensions via TIOCGWINSZ. PixelW/PixelH
// are 0 when the terminal driver doesn't report them (common over some
// pty multiplexers), in which case callers should fall back to Query.
func IoctlSize(fd int) (Size, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return Size{}, err
	}
	return Size{
		Cols:   int(ws.Col),
		Rows:   int(ws.Row),
		PixelW: int(ws.Xpixel),
		PixelH: int(ws.Ypixel),
	}, nil
}

// Query issues the ESC[14t pixel-size request on out and parses the
// ESC[4;H;Wt response read from in. The terminal must already be in
// raw mode; Query applies its own read deadline via the timeout param
// so a terminal that doesn't support the query can't hang the caller
// forever.
func Query(in io.Reader, out io.Writer, timeout time.Duration) (w, h int, err error) {
	if _, err := out.Write([]byte("\x1b[14t")); err != nil {
		return 0, 0, err
	}

	type result struct {
		w, h int
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		r := bufio.NewReader(in)
		// Expect: ESC [ 4 ; H ; W t
		buf, err := r.ReadString('t')
		if err != nil {
			ch <- result{err: err}
			return
		}
		hh, ww, err := parseResponse(buf)
		ch <- result{w: ww, h: hh, err: err}
	}()

	select {
	case res := <-ch:
		return res.w, res.h, res.err
	case <-time.After(timeout):
		return 0, 0, fmt.Errorf("termsize: timed out waiting for pixel-size response")
	}
}

func parseResponse(s string) (h, w int, err error) {
	start := strings.Index(s, "\x1b[4;")
	if start < 0 {
		return 0, 0, fmt.Errorf("termsize: unexpected response %q", s)
	}
	body := strings.TrimSuffix(s[start+len("\x1b[4;"):], "t")
	parts := strings.SplitN(body, ";", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("termsize: malformed response %q", s)
	}
	h, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	w, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return h, w, nil
}
