package frames

import (
	"image"
	"testing"
)

func TestRegistry_EveryTemplateHasFourPositiveSlots(t *testing.T) {
	for _, id := range IDs() {
		tpl := Lookup(id)
		if len(tpl.Slots) != SlotsPerFrame {
			t.Errorf("%s: slot count = %d, want %d", id, len(tpl.Slots), SlotsPerFrame)
		}
		for i, s := range tpl.Slots {
			if s.Width <= 0 || s.Height <= 0 {
				t.Errorf("%s slot %d: non-positive size %dx%d", id, i, s.Width, s.Height)
			}
			if !s.Rect().In(image.Rect(0, 0, CanvasWidth, CanvasHeight)) {
				t.Errorf("%s slot %d: %v outside canvas", id, i, s.Rect())
			}
		}
	}
}

func TestLookup_UnknownFrameIsEmpty(t *testing.T) {
	tpl := Lookup("no_such_frame")
	if tpl.ID != "no_such_frame" {
		t.Errorf("ID = %q, want %q", tpl.ID, "no_such_frame")
	}
	if len(tpl.Slots) != 0 {
		t.Errorf("slots = %d, want 0", len(tpl.Slots))
	}
	if Known("no_such_frame") {
		t.Error("Known(no_such_frame) = true")
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	a := Lookup("light_frame")
	a.Slots[0].Width = 1
	b := Lookup("light_frame")
	if b.Slots[0].Width != 512 {
		t.Fatalf("registry mutated through Lookup result: width = %d", b.Slots[0].Width)
	}
}

func TestSlotRect_Scaled(t *testing.T) {
	s := SlotRect{Top: 128, Left: 78, Width: 512, Height: 712}
	top, left, w, h := s.Scaled(4)
	if top != 32 || left != 19.5 || w != 128 || h != 178 {
		t.Errorf("Scaled(4) = %v,%v,%v,%v", top, left, w, h)
	}
}

func TestTemplate_Slot(t *testing.T) {
	tpl := Lookup("spam_frame")
	if _, ok := tpl.Slot(4); ok {
		t.Error("Slot(4) should not exist")
	}
	s, ok := tpl.Slot(1)
	if !ok || s.Left != 626 || s.Top != 137 {
		t.Errorf("Slot(1) = %+v, %v", s, ok)
	}
}

func TestIDs_Sorted(t *testing.T) {
	ids := IDs()
	if len(ids) != 7 {
		t.Fatalf("len(IDs) = %d, want 7", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] > ids[i] {
			t.Fatalf("IDs not sorted: %v", ids)
		}
	}
}
