package pdfengine

import "testing"

func TestParsePt(t *testing.T) {
	cases := map[string]float64{
		"12.5":  12.5,
		"0.0":   0.0,
		"100":   100,
		"3.125": 3.125,
	}
	for in, want := range cases {
		if got := parsePt(in); got < want-1e-9 || got > want+1e-9 {
			t.Errorf("parsePt(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSearchHTMLFindsCaseInsensitiveMatch(t *testing.T) {
	html := `<p style="top:74.5pt;left:88.7pt;line-height:14.0pt;font-size:12.0pt">` +
		`<span style="font-family:Times">Hello World, hello again</span></p>`

	rects := searchHTML(html, "hello")
	if len(rects) != 2 {
		t.Fatalf("got %d rects, want 2", len(rects))
	}
	for _, r := range rects {
		if r.ULy != 74.5 || r.LRy != 74.5+14.0 {
			t.Errorf("rect vertical extent = [%v,%v], want [74.5,88.5]", r.ULy, r.LRy)
		}
		if r.LRx <= r.ULx {
			t.Errorf("rect has non-positive width: %+v", r)
		}
	}
}

func TestSearchHTMLEmptyTerm(t *testing.T) {
	if rects := searchHTML("<p>anything</p>", ""); rects != nil {
		t.Fatalf("expected nil for empty term, got %v", rects)
	}
}

func TestSearchHTMLNoMatch(t *testing.T) {
	html := `<p style="top:1.0pt;left:1.0pt;line-height:10.0pt;font-size:10.0pt">` +
		`<span>nothing relevant here</span></p>`
	if rects := searchHTML(html, "xyz"); len(rects) != 0 {
		t.Fatalf("expected no matches, got %v", rects)
	}
}

func TestSearchHTMLUnescapesEntities(t *testing.T) {
	html := `<p style="top:1.0pt;left:1.0pt;line-height:10.0pt;font-size:10.0pt">` +
		`<span>Q&amp;A session</span></p>`
	rects := searchHTML(html, "Q&A")
	if len(rects) != 1 {
		t.Fatalf("expected 1 match after entity unescaping, got %d", len(rects))
	}
}
