package sticker

import (
	"errors"
	"math"
	"testing"
)

func TestOverlay_AddDefaultsAndSnapshot(t *testing.T) {
	o := NewOverlay(Box{W: 760, H: 444}, nil)

	first := o.AddDefault("A")
	second := o.Add("B", 0.8, 0.2)
	if first == second {
		t.Fatal("expected distinct handles")
	}

	snap := o.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 stickers, got %d", len(snap))
	}
	if snap[0].Emoji != "A" || snap[0].X != 0.5 || snap[0].Y != 0.2 {
		t.Fatalf("unexpected default placement: %+v", snap[0])
	}
	if snap[1].Emoji != "B" {
		t.Fatal("expected placement order preserved")
	}
}

func TestOverlay_DragUpdatesNormalizedPosition(t *testing.T) {
	o := NewOverlay(Box{W: 200, H: 100}, nil)
	h := o.Add("X", 0.5, 0.5)

	if err := o.BeginDrag(h); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if err := o.DragMove(h, 20, -10); err != nil {
		t.Fatalf("drag move: %v", err)
	}
	if err := o.EndDrag(h); err != nil {
		t.Fatalf("end drag: %v", err)
	}

	snap := o.Snapshot()
	if math.Abs(snap[0].X-0.6) > 1e-9 || math.Abs(snap[0].Y-0.4) > 1e-9 {
		t.Fatalf("expected normalized (0.6, 0.4), got (%v, %v)", snap[0].X, snap[0].Y)
	}
}

func TestOverlay_DragRequiresBegin(t *testing.T) {
	o := NewOverlay(Box{W: 100, H: 100}, nil)
	h := o.Add("X", 0.5, 0.5)

	if err := o.DragMove(h, 5, 5); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("expected ErrNotDragging, got %v", err)
	}

	if err := o.BeginDrag(h); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	state, err := o.State(h)
	if err != nil || state != Dragging {
		t.Fatalf("expected Dragging state, got %v (%v)", state, err)
	}
	if err := o.EndDrag(h); err != nil {
		t.Fatalf("end drag: %v", err)
	}
	state, _ = o.State(h)
	if state != Idle {
		t.Fatalf("expected Idle after EndDrag, got %v", state)
	}
}

func TestOverlay_DragClampsToCanvas(t *testing.T) {
	o := NewOverlay(Box{W: 100, H: 100}, nil)
	h := o.Add("X", 0.9, 0.9)

	_ = o.BeginDrag(h)
	if err := o.DragMove(h, 500, 500); err != nil {
		t.Fatalf("drag move: %v", err)
	}
	snap := o.Snapshot()
	if snap[0].X != 1 || snap[0].Y != 1 {
		t.Fatalf("expected clamp to (1, 1), got (%v, %v)", snap[0].X, snap[0].Y)
	}

	if err := o.DragMove(h, -500, -500); err != nil {
		t.Fatalf("drag move: %v", err)
	}
	snap = o.Snapshot()
	if snap[0].X != 0 || snap[0].Y != 0 {
		t.Fatalf("expected clamp to (0, 0), got (%v, %v)", snap[0].X, snap[0].Y)
	}
}

func TestOverlay_ResizeReprojects(t *testing.T) {
	o := NewOverlay(Box{W: 100, H: 100}, nil)
	h := o.Add("X", 0.25, 0.75)

	px, err := o.Pixel(h)
	if err != nil {
		t.Fatalf("pixel: %v", err)
	}
	if px != (Point{X: 25, Y: 75}) {
		t.Fatalf("unexpected pixel before resize: %+v", px)
	}

	o.Resize(Box{W: 400, H: 200})
	px, _ = o.Pixel(h)
	if px != (Point{X: 100, Y: 150}) {
		t.Fatalf("expected reprojected pixel (100, 150), got %+v", px)
	}

	// Normalized coordinates are untouched by a resize.
	snap := o.Snapshot()
	if snap[0].X != 0.25 || snap[0].Y != 0.75 {
		t.Fatalf("resize must not change normalized coords, got %+v", snap[0])
	}
}

func TestOverlay_MutationsFireChangeHook(t *testing.T) {
	var renders int
	o := NewOverlay(Box{W: 100, H: 100}, func() { renders++ })

	h := o.Add("X", 0.5, 0.5)
	_ = o.BeginDrag(h)
	_ = o.DragMove(h, 1, 1)
	_ = o.EndDrag(h)
	_ = o.Remove(h)

	// Add, DragMove and Remove mutate sticker state; Begin/EndDrag do not.
	if renders != 3 {
		t.Fatalf("expected 3 change notifications, got %d", renders)
	}
}

func TestOverlay_UnknownHandle(t *testing.T) {
	o := NewOverlay(Box{W: 100, H: 100}, nil)
	if err := o.BeginDrag(99); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}
	if err := o.Remove(99); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}
}

func TestStep(t *testing.T) {
	p := Step(Point{X: 10, Y: 20}, -3, 7)
	if p != (Point{X: 7, Y: 27}) {
		t.Fatalf("unexpected step result: %+v", p)
	}
}
