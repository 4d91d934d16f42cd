package pdfengine

import (
	"regexp"
	"strings"
)

// MuPDF's stext-as-html device emits one <p> per text line with its
// origin and font metrics in the style attribute, and the line's text
// split across one or more <span> runs, e.g.:
//
//	<p style="top:74.5pt;left:88.7pt;line-height:14.0pt;font-size:12.0pt">
//	<span style="font-family:Times">hello world</span></p>
//
// There is no per-character position in this output, so a match's
// rectangle is approximated by treating the line as a fixed-width run:
// the x-extent of a match is its character offset times an average
// glyph width derived from the font size. Matches cannot span a line
// break - a line is the unit of search.
var lineRE = regexp.MustCompile(`(?s)<p style="top:([\d.]+)pt;left:([\d.]+)pt;line-height:([\d.]+)pt;font-size:([\d.]+)pt"[^>]*>(.*?)</p>`)

var tagRE = regexp.MustCompile(`(?s)<[^>]*>`)

func searchHTML(html, term string) []HighlightRect {
	lower := strings.ToLower(term)
	var rects []HighlightRect

	for _, m := range lineRE.FindAllStringSubmatch(html, -1) {
		top := parsePt(m[1])
		left := parsePt(m[2])
		lineHeight := parsePt(m[3])
		fontSize := parsePt(m[4])
		text := tagRE.ReplaceAllString(m[5], "")
		text = htmlUnescape(text)

		lowerText := strings.ToLower(text)
		charWidth := fontSize * 0.5
		if charWidth <= 0 {
			continue
		}

		start := 0
		for {
			idx := strings.Index(lowerText[start:], lower)
			if idx < 0 {
				break
			}
			pos := start + idx
			rects = append(rects, HighlightRect{
				ULx: left + float64(pos)*charWidth,
				ULy: top,
				LRx: left + float64(pos+len(lower))*charWidth,
				LRy: top + lineHeight,
			})
			start = pos + len(lower)
			if start >= len(lowerText) {
				break
			}
		}
	}

	return rects
}

func parsePt(s string) float64 {
	var v float64
	var frac float64 = 0.1
	neg := false
	i := 0
	if i < len(s) && s[i] == '-' {
		neg = true
		i++
	}
	seenDot := false
	for ; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		d := float64(c - '0')
		if !seenDot {
			v = v*10 + d
		} else {
			v += d * frac
			frac *= 0.1
		}
	}
	if neg {
		v = -v
	}
	return v
}

var htmlEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": "\"",
	"&#39;":  "'",
}

func htmlUnescape(s string) string {
	for entity, repl := range htmlEntities {
		s = strings.ReplaceAll(s, entity, repl)
	}
	return s
}
