// Package frames holds the fixed slot geometry of every frame template.
// Coordinates are in canonical canvas units (1200x1800).
package frames

import (
	"image"
	"sort"
)

const (
	CanvasWidth  = 1200
	CanvasHeight = 1800

	// SlotsPerFrame is the number of photos every template holds.
	SlotsPerFrame = 4
)

// SlotRect is the rectangle one photo occupies on the canonical canvas.
type SlotRect struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the slot as an image.Rectangle.
func (s SlotRect) Rect() image.Rectangle {
	return image.Rect(s.Left, s.Top, s.Left+s.Width, s.Top+s.Height)
}

// Scaled divides every coordinate by divisor. The on-screen capture
// container uses a divisor of 4.
func (s SlotRect) Scaled(divisor float64) (top, left, width, height float64) {
	if divisor <= 0 {
		divisor = 1
	}
	return float64(s.Top) / divisor, float64(s.Left) / divisor,
		float64(s.Width) / divisor, float64(s.Height) / divisor
}

// Template is a frame identifier plus its ordered slots.
type Template struct {
	ID    string     `json:"id"`
	Slots []SlotRect `json:"slots"`
}

// Slot returns slot i and whether it exists.
func (t Template) Slot(i int) (SlotRect, bool) {
	if i < 0 || i >= len(t.Slots) {
		return SlotRect{}, false
	}
	return t.Slots[i], true
}

var (
	gridSlots = []SlotRect{
		{Top: 128, Left: 78, Width: 512, Height: 712},
		{Top: 128, Left: 610, Width: 512, Height: 712},
		{Top: 845, Left: 78, Width: 512, Height: 712},
		{Top: 845, Left: 610, Width: 512, Height: 712},
	}

	golangSlots = []SlotRect{
		{Top: 305, Left: 63, Width: 512, Height: 620},
		{Top: 160, Left: 634, Width: 512, Height: 620},
		{Top: 972, Left: 63, Width: 512, Height: 620},
		{Top: 888, Left: 634, Width: 512, Height: 620},
	}

	registry = map[string][]SlotRect{
		"pixcel_frame": gridSlots,
		"light_frame":  gridSlots,
		"dark_frame":   gridSlots,
		"ohpan_frame": {
			{Top: 245, Left: 76, Width: 472, Height: 652},
			{Top: 160, Left: 634, Width: 472, Height: 652},
			{Top: 972, Left: 76, Width: 472, Height: 652},
			{Top: 888, Left: 634, Width: 472, Height: 652},
		},
		"spam_frame": {
			{Top: 220, Left: 63, Width: 512, Height: 712},
			{Top: 137, Left: 626, Width: 512, Height: 712},
			{Top: 952, Left: 63, Width: 512, Height: 712},
			{Top: 861, Left: 626, Width: 512, Height: 712},
		},
		"golangv1_frame": golangSlots,
		"golangv2_frame": golangSlots,
	}
)

// Lookup returns the template for id. Unknown ids yield a template with
// no slots; callers draw no photos but still attempt the frame overlay.
func Lookup(id string) Template {
	slots, ok := registry[id]
	if !ok {
		return Template{ID: id}
	}
	out := make([]SlotRect, len(slots))
	copy(out, slots)
	return Template{ID: id, Slots: out}
}

// Known reports whether id is a registered template.
func Known(id string) bool {
	_, ok := registry[id]
	return ok
}

// IDs returns every registered template id, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every template, sorted by id.
func All() []Template {
	ids := IDs()
	out := make([]Template, 0, len(ids))
	for _, id := range ids {
		out = append(out, Lookup(id))
	}
	return out
}
