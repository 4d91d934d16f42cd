package config

import (
	"encoding/binary"
	"testing"
)

func TestParseColorRoundTrip(t *testing.T) {
	c, err := ParseColor("#112233")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, c)
	want := []byte{0, 0x11, 0x22, 0x33}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("big-endian bytes = %v, want %v", buf, want)
		}
	}
}

func TestParseColorDefaults(t *testing.T) {
	white, err := ParseColor("#FFFFFF")
	if err != nil {
		t.Fatalf("ParseColor white: %v", err)
	}
	if white != DefaultWhite {
		t.Errorf("white = %#x, want %#x", white, DefaultWhite)
	}

	black, err := ParseColor("#000000")
	if err != nil {
		t.Fatalf("ParseColor black: %v", err)
	}
	if black != DefaultBlack {
		t.Errorf("black = %#x, want %#x", black, DefaultBlack)
	}
}

func TestParseColorInvalid(t *testing.T) {
	if _, err := ParseColor("not-a-color"); err == nil {
		t.Fatal("expected error for invalid color")
	}
}

func TestRGBUnpack(t *testing.T) {
	r, g, b := RGB(0xAABBCC)
	if r != 0xAA || g != 0xBB || b != 0xCC {
		t.Fatalf("RGB(0xAABBCC) = (%x,%x,%x), want (aa,bb,cc)", r, g, b)
	}
}
