// Shared-memory transport for the Kitty protocol: writing a page's raw
// RGBA pixels into a /dev/shm-backed segment lets the terminal read them
// directly, avoiding a second base64-sized copy through the pty for large
// pixmaps.
package kitty

import (
	"fmt"
	"image"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ShmImage is a POSIX shared-memory segment holding one page's raw RGBA
// pixels, named uniquely per process+page so concurrent instances never
// collide.
type ShmImage struct {
	Name   string
	Width  int
	Height int

	fd int
}

var shmNonce uint64

// ProbeShm checks whether POSIX shared memory is usable in this
// environment by creating and immediately tearing down a throwaway
// segment. It is called once at startup and its result handed to the
// Converter; if it fails, the Converter uses owned in-process pixel
// sources for every page.
func ProbeShm() bool {
	img, err := NewShmImage(0, 1, 1)
	if err != nil {
		return false
	}
	img.Close()
	return true
}

// NewShmImage allocates a shared-memory segment sized for a pxW x pxH
// RGBA image, named with the process id, page number, and a per-process
// nonce so retransmission of the same page never collides with a
// not-yet-cleaned-up prior segment.
func NewShmImage(page, pxW, pxH int) (*ShmImage, error) {
	nonce := atomic.AddUint64(&shmNonce, 1)
	name := fmt.Sprintf("/pdftui-%d-%d-%d", os.Getpid(), page, nonce)
	size := pxW * pxH * 4

	fd, err := unix.ShmOpen(name, unix.O_CREAT|unix.O_RDWR|unix.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("kitty: shm_open %s: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		unix.ShmUnlink(name)
		return nil, fmt.Errorf("kitty: ftruncate %s: %w", name, err)
	}

	return &ShmImage{Name: name, Width: pxW, Height: pxH, fd: fd}, nil
}

// Write maps the segment and copies img's RGBA pixels into it.
func (s *ShmImage) Write(img *image.RGBA) error {
	size := s.Width * s.Height * 4
	data, err := unix.Mmap(s.fd, 0, size, unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("kitty: mmap %s: %w", s.Name, err)
	}
	defer unix.Munmap(data)

	if img.Stride == s.Width*4 {
		copy(data, img.Pix)
	} else {
		for y := 0; y < s.Height; y++ {
			srcRow := img.Pix[y*img.Stride : y*img.Stride+s.Width*4]
			copy(data[y*s.Width*4:(y+1)*s.Width*4], srcRow)
		}
	}
	return nil
}

// Close releases the segment. Per spec.md's ownership rule, the driver
// calls this once transmission succeeds and the terminal owns the
// pixels, so the mapping never outlives its one use.
func (s *ShmImage) Close() error {
	unix.Close(s.fd)
	return unix.ShmUnlink(s.Name)
}
