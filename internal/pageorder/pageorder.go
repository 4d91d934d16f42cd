// Package pageorder implements the prerender order: the alternating
// outward traversal of page indices around a current page that the
// Renderer and Converter both use to decide what to touch next.
package pageorder

// Around enumerates page indices in [min, max) starting at the anchor
// page and alternating outward: around, around+1, around-1, around+2,
// around-2, ..., wrapping at the window edges. It never terminates on
// its own; callers cap it (Take, or a manual counted loop) since the
// natural uses - prerender windows, conversion bursts - are always
// bounded externally.
type Around struct {
	min, max int
	plus     int
	minus    int
	started  bool
	nextPlus bool
}

// NewAround builds an iterator over [min, max) anchored at around.
// Panics if the window is empty or around is outside it, since both
// are caller bugs rather than recoverable conditions.
func NewAround(around, min, max int) *Around {
	if min >= max {
		panic("pageorder: empty window")
	}
	if around < min || around >= max {
		panic("pageorder: anchor outside window")
	}
	return &Around{min: min, max: max, plus: around, minus: around, nextPlus: true}
}

// Next returns the next index in the traversal. ok is always true; it
// exists so Around reads like a stateful iterator at call sites.
func (a *Around) Next() (int, bool) {
	if !a.started {
		a.started = true
		return a.plus, true
	}
	if a.nextPlus {
		a.plus = step(a.plus+1, a.min, a.max)
		a.nextPlus = false
		return a.plus, true
	}
	a.minus = step(a.minus-1, a.min, a.max)
	a.nextPlus = true
	return a.minus, true
}

// step wraps a candidate index into [min, max).
func step(candidate, min, max int) int {
	if candidate >= max {
		return min
	}
	if candidate < min {
		return max - 1
	}
	return candidate
}

// Take drains n values from the iterator. A zero or negative n returns
// an empty, non-nil slice.
func (a *Around) Take(n int) []int {
	if n <= 0 {
		return []int{}
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, _ := a.Next()
		out = append(out, v)
	}
	return out
}
