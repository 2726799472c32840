// Package sticker owns placement and dragging of card stickers. Positions
// are stored normalized to the canvas box so they survive canvas resizes;
// pixel positions are derived state for whatever surface currently
// displays the overlay.
package sticker

import (
	"errors"
	"sync"

	"github.com/kvistad/russekort/internal/models"
)

var (
	ErrUnknownHandle = errors.New("unknown sticker handle")
	ErrNotDragging   = errors.New("sticker is not being dragged")
)

// Box is the rendered size of the canvas the overlay projects onto.
type Box struct {
	W float64
	H float64
}

// DragState is the per-sticker drag machine: Idle -> Dragging -> Idle.
type DragState int

const (
	Idle DragState = iota
	Dragging
)

// Point is a pixel position on the canvas.
type Point struct {
	X float64
	Y float64
}

// Step applies a pointer delta to a pixel position. It is the whole of
// the drag transition function: pure, independent of any input-event API.
func Step(p Point, dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

type placed struct {
	sticker models.Sticker
	pixel   Point
	state   DragState
}

// Overlay is the set of placed stickers for one editing surface. Sticker
// order is z-order: later stickers paint over earlier ones.
type Overlay struct {
	mu       sync.Mutex
	box      Box
	stickers map[int]*placed
	order    []int
	nextID   int
	onChange func()
}

// NewOverlay builds an overlay projected onto the given canvas box.
// onChange, if non-nil, fires after every sticker mutation so the owner
// can re-render; it runs outside the overlay lock.
func NewOverlay(box Box, onChange func()) *Overlay {
	return &Overlay{
		box:      box,
		stickers: make(map[int]*placed),
		onChange: onChange,
	}
}

// Add appends a sticker at a normalized position and returns its handle.
func (o *Overlay) Add(content string, x, y float64) int {
	o.mu.Lock()
	handle := o.nextID
	o.nextID++
	p := &placed{
		sticker: models.Sticker{Emoji: content, X: clamp01(x), Y: clamp01(y)},
	}
	p.pixel = o.project(p.sticker)
	o.stickers[handle] = p
	o.order = append(o.order, handle)
	o.mu.Unlock()

	o.changed()
	return handle
}

// AddDefault places a sticker at the default palette drop position.
func (o *Overlay) AddDefault(content string) int {
	return o.Add(content, 0.5, 0.2)
}

// BeginDrag marks a sticker as grabbed.
func (o *Overlay) BeginDrag(handle int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.stickers[handle]
	if !ok {
		return ErrUnknownHandle
	}
	p.state = Dragging
	return nil
}

// DragMove applies a cumulative pointer delta to a grabbed sticker, then
// re-derives its normalized position from the current box. The normalized
// coordinates are clamped to [0,1]; the original allowed stickers to be
// dragged off-canvas, which we treat as a bug.
func (o *Overlay) DragMove(handle int, dx, dy float64) error {
	o.mu.Lock()
	p, ok := o.stickers[handle]
	if !ok {
		o.mu.Unlock()
		return ErrUnknownHandle
	}
	if p.state != Dragging {
		o.mu.Unlock()
		return ErrNotDragging
	}
	p.pixel = Step(p.pixel, dx, dy)
	if o.box.W > 0 && o.box.H > 0 {
		p.sticker.X = clamp01(p.pixel.X / o.box.W)
		p.sticker.Y = clamp01(p.pixel.Y / o.box.H)
		p.pixel = o.project(p.sticker)
	}
	o.mu.Unlock()

	o.changed()
	return nil
}

// EndDrag releases a grabbed sticker.
func (o *Overlay) EndDrag(handle int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.stickers[handle]
	if !ok {
		return ErrUnknownHandle
	}
	p.state = Idle
	return nil
}

// Remove deletes a sticker.
func (o *Overlay) Remove(handle int) error {
	o.mu.Lock()
	if _, ok := o.stickers[handle]; !ok {
		o.mu.Unlock()
		return ErrUnknownHandle
	}
	delete(o.stickers, handle)
	for i, h := range o.order {
		if h == handle {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	o.mu.Unlock()

	o.changed()
	return nil
}

// Resize records a new canvas box and reprojects every sticker's pixel
// position from its normalized coordinates. Must be called whenever the
// canvas's rendered size changes so markers stay aligned with the raster.
func (o *Overlay) Resize(box Box) {
	o.mu.Lock()
	o.box = box
	for _, p := range o.stickers {
		p.pixel = o.project(p.sticker)
	}
	o.mu.Unlock()
}

// Pixel returns the current derived pixel position of a sticker.
func (o *Overlay) Pixel(handle int) (Point, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.stickers[handle]
	if !ok {
		return Point{}, ErrUnknownHandle
	}
	return p.pixel, nil
}

// State returns the drag state of a sticker.
func (o *Overlay) State(handle int) (DragState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.stickers[handle]
	if !ok {
		return Idle, ErrUnknownHandle
	}
	return p.state, nil
}

// Snapshot returns the stickers in placement order.
func (o *Overlay) Snapshot() []models.Sticker {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Sticker, 0, len(o.order))
	for _, h := range o.order {
		out = append(out, o.stickers[h].sticker)
	}
	return out
}

func (o *Overlay) project(s models.Sticker) Point {
	return Point{X: s.X * o.box.W, Y: s.Y * o.box.H}
}

func (o *Overlay) changed() {
	if o.onChange != nil {
		o.onChange()
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
