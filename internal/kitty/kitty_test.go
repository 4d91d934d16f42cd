package kitty

import (
	"image"
	"io"
	"strings"
	"testing"
)

func TestImageID(t *testing.T) {
	cases := map[int]uint32{0: 1, 1: 2, 9: 10}
	for page, want := range cases {
		if got := ImageID(page); got != want {
			t.Errorf("ImageID(%d) = %d, want %d", page, got, want)
		}
	}
}

func TestCellsForPixels(t *testing.T) {
	cols, rows := CellsForPixels(100, 200, 10, 20)
	if cols != 10 || rows != 10 {
		t.Fatalf("got (%d,%d), want (10,10)", cols, rows)
	}
}

func TestCellsForPixelsRoundsUp(t *testing.T) {
	cols, rows := CellsForPixels(101, 201, 10, 20)
	if cols != 11 || rows != 11 {
		t.Fatalf("got (%d,%d), want (11,11)", cols, rows)
	}
}

func TestFrameFirstTransmitThenDisplayByID(t *testing.T) {
	d := NewDriver()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	placements := []Placement{
		{Page: 0, ID: ImageID(0), State: NotYet, Source: Source{Owned: img}, Cols: 1, Rows: 1},
	}

	res := d.Frame(placements)
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failed)
	}
	if !strings.Contains(res.Frame, "a=T") {
		t.Fatalf("expected first frame to contain a transmit (a=T) command, got %q", res.Frame)
	}
	if placements[0].State != Transferred {
		t.Fatalf("placement not marked Transferred after successful transmit")
	}

	res2 := d.Frame(placements)
	if strings.Contains(res2.Frame, "a=T") {
		t.Fatalf("second frame re-transmitted instead of displaying by id: %q", res2.Frame)
	}
	if !strings.Contains(res2.Frame, "a=p") {
		t.Fatalf("expected second frame to contain a display (a=p) command, got %q", res2.Frame)
	}
}

func TestFrameDisplayByIDIncludesCropRect(t *testing.T) {
	d := NewDriver()
	placements := []Placement{
		{Page: 0, ID: ImageID(0), State: Transferred, Cols: 4, Rows: 4,
			CropX: 10, CropY: 20, CropW: 100, CropH: 50},
	}

	res := d.Frame(placements)
	for _, want := range []string{"x=10", "y=20", "w=100", "h=50"} {
		if !strings.Contains(res.Frame, want) {
			t.Fatalf("frame missing %q: %q", want, res.Frame)
		}
	}
}

func TestFrameDisplayByIDOmitsCropArgsWhenUnset(t *testing.T) {
	d := NewDriver()
	placements := []Placement{
		{Page: 0, ID: ImageID(0), State: Transferred, Cols: 4, Rows: 4},
	}

	res := d.Frame(placements)
	if strings.Contains(res.Frame, "x=") || strings.Contains(res.Frame, "w=") {
		t.Fatalf("expected no crop args for a zero CropW/CropH placement, got %q", res.Frame)
	}
}

func TestFrameMissingSourceFails(t *testing.T) {
	d := NewDriver()
	placements := []Placement{
		{Page: 2, ID: ImageID(2), State: NotYet},
	}
	res := d.Frame(placements)
	if len(res.Failed) != 1 || res.Failed[0] != 2 {
		t.Fatalf("expected page 2 to fail, got %v", res.Failed)
	}
}

func TestParseFrameOK(t *testing.T) {
	resp, ok := parseFrame("i=5;OK")
	if !ok {
		t.Fatal("expected parseFrame to succeed")
	}
	if resp.ID != 5 || !resp.OK {
		t.Fatalf("got %+v", resp)
	}
}

func TestParseFrameNoEntity(t *testing.T) {
	resp, ok := parseFrame("i=5;ENOENT:no such image")
	if !ok {
		t.Fatal("expected parseFrame to succeed")
	}
	err := resp.AsError()
	if !IsNoEntity(err) {
		t.Fatalf("expected NoEntityError, got %v", err)
	}
}

func TestParseFrameOtherError(t *testing.T) {
	resp, ok := parseFrame("i=5;EINVAL:bad payload")
	if !ok {
		t.Fatal("expected parseFrame to succeed")
	}
	err := resp.AsError()
	if IsNoEntity(err) {
		t.Fatalf("did not expect NoEntityError for EINVAL, got %v", err)
	}
	if err == nil {
		t.Fatal("expected a non-nil error")
	}
}

func TestParseFrameWithoutID(t *testing.T) {
	if _, ok := parseFrame("a=d;OK"); ok {
		t.Fatal("expected parseFrame to reject a frame with no id")
	}
}

func TestFilterReaderStripsResponseFrames(t *testing.T) {
	var got []Response
	raw := "hello\x1b_Gi=7;OK\x1b\\world"
	fr := NewFilterReader(strings.NewReader(raw), func(r Response) {
		got = append(got, r)
	})

	buf := make([]byte, len(raw))
	total := 0
	for total < len("helloworld") {
		n, err := fr.Read(buf[total:])
		total += n
		if err != nil {
			break
		}
		if n == 0 {
			break
		}
	}

	if string(buf[:total]) != "helloworld" {
		t.Fatalf("stripped output = %q, want %q", buf[:total], "helloworld")
	}
	if len(got) != 1 || got[0].ID != 7 || !got[0].OK {
		t.Fatalf("got responses %+v", got)
	}
}

// chunkedReader splits a fixed byte slice across several Read calls, one
// chunk per call, to simulate a response frame arriving split across
// separate reads from the underlying source (e.g. stdin).
type chunkedReader struct {
	chunks [][]byte
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func TestFilterReaderHandlesFrameSplitAcrossReads(t *testing.T) {
	var got []Response
	// "hello" + start of an APC frame, then the rest of the frame + "world",
	// delivered as two separate underlying Read calls.
	src := &chunkedReader{chunks: [][]byte{
		[]byte("hello\x1b_Gi=7;O"),
		[]byte("K\x1b\\world"),
	}}
	fr := NewFilterReader(src, func(r Response) {
		got = append(got, r)
	})

	var all []byte
	buf := make([]byte, 64)
	for {
		n, err := fr.Read(buf)
		all = append(all, buf[:n]...)
		if err != nil {
			break
		}
		if n == 0 {
			break
		}
	}

	if string(all) != "helloworld" {
		t.Fatalf("stripped output = %q, want %q", all, "helloworld")
	}
	if len(got) != 1 || got[0].ID != 7 || !got[0].OK {
		t.Fatalf("got responses %+v", got)
	}
}

func TestFilterReaderPassesThroughPlainText(t *testing.T) {
	var calls int
	fr := NewFilterReader(strings.NewReader("plain text, no apc"), func(Response) {
		calls++
	})
	buf := make([]byte, 64)
	n, _ := fr.Read(buf)
	if string(buf[:n]) != "plain text, no apc" {
		t.Fatalf("got %q", buf[:n])
	}
	if calls != 0 {
		t.Fatalf("expected no response callbacks, got %d", calls)
	}
}
