package ui

import (
	"reflect"
	"testing"
)

func readySlot(w int) pageSlot {
	return pageSlot{image: &slotImage{cellW: w, ready: true}}
}

func TestSelectPrefixStopsAtUnready(t *testing.T) {
	slots := []pageSlot{readySlot(10), {}, readySlot(10)}
	got := selectPrefix(slots, 0, 100, 0)
	want := []int{0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectPrefixBoundedByWidth(t *testing.T) {
	slots := []pageSlot{readySlot(10), readySlot(10), readySlot(10)}
	got := selectPrefix(slots, 0, 25, 0)
	want := []int{0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectPrefixAlwaysIncludesFirstPageEvenIfWide(t *testing.T) {
	slots := []pageSlot{readySlot(200)}
	got := selectPrefix(slots, 0, 10, 0)
	want := []int{0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectPrefixBoundedByMaxWide(t *testing.T) {
	slots := []pageSlot{readySlot(1), readySlot(1), readySlot(1)}
	got := selectPrefix(slots, 0, 100, 2)
	want := []int{0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectPrefixEmptyWhenCurrentNotReady(t *testing.T) {
	slots := []pageSlot{{}, readySlot(10)}
	got := selectPrefix(slots, 0, 100, 0)
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestReverseInts(t *testing.T) {
	xs := []int{1, 2, 3, 4}
	reverseInts(xs)
	want := []int{4, 3, 2, 1}
	if !reflect.DeepEqual(xs, want) {
		t.Fatalf("got %v, want %v", xs, want)
	}
}
