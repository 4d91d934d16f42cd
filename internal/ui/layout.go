package ui

// pageSlot is the UI's per-page record: the most recently converted
// image (if any) and the search-result count for the active term.
type pageSlot struct {
	image      *slotImage
	numResults *int
}

// slotImage is the minimal shape layout needs from a converted image;
// Model wires this from convert.Image.
type slotImage struct {
	cellW, cellH int
	ready        bool
}

// selectPrefix picks the widest contiguous run of pages starting at
// current whose cell widths sum to at most availW cells, stopping
// early at any not-yet-ready slot, and bounded by maxWide when it's
// positive. The page at current is always included when ready, even
// if it alone is wider than availW. It never returns more than
// len(slots)-current entries.
func selectPrefix(slots []pageSlot, current, availW, maxWide int) []int {
	if current < 0 || current >= len(slots) {
		return nil
	}
	var chosen []int
	width := 0
	for p := current; p < len(slots); p++ {
		s := slots[p]
		if s.image == nil || !s.image.ready {
			break
		}
		w := s.image.cellW
		if width+w > availW && len(chosen) > 0 {
			break
		}
		chosen = append(chosen, p)
		width += w
		if maxWide > 0 && len(chosen) >= maxWide {
			break
		}
	}
	return chosen
}

// reverseInts reverses xs in place, for right-to-left layouts.
func reverseInts(xs []int) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
