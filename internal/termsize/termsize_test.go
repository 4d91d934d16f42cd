package termsize

import "testing"

func TestParseResponse(t *testing.T) {
	h, w, err := parseResponse("\x1b[4;768;1024t")
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if h != 768 || w != 1024 {
		t.Fatalf("got (h=%d,w=%d), want (768,1024)", h, w)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	if _, _, err := parseResponse("nonsense"); err == nil {
		t.Fatal("expected error for unrecognized response")
	}
}

func TestParseResponseMalformedBody(t *testing.T) {
	if _, _, err := parseResponse("\x1b[4;onlyonepartt"); err == nil {
		t.Fatal("expected error for missing semicolon-separated width")
	}
}
