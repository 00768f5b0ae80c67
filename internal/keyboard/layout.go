// Package keyboard defines the virtual keyboard geometry and resolves screen
// points to keys.
package keyboard

import (
	"errors"
	"fmt"
	"image"
)

// Special key labels.
const (
	Space     = "SPACE"
	Backspace = "BKSP"
	Enter     = "ENTER"
)

// ErrOverlap is returned when two key rectangles share any pixel.
var ErrOverlap = errors.New("key rectangles overlap")

// Key is a labelled rectangle in screen pixels. Bounds are inclusive on all
// four sides, so Max is the last covered pixel.
type Key struct {
	Label string
	Rect  image.Rectangle
}

// Contains reports whether p lies within the key, edges included.
func (k Key) Contains(p image.Point) bool {
	return p.X >= k.Rect.Min.X && p.X <= k.Rect.Max.X &&
		p.Y >= k.Rect.Min.Y && p.Y <= k.Rect.Max.Y
}

func (k Key) overlaps(o Key) bool {
	return k.Rect.Min.X <= o.Rect.Max.X && o.Rect.Min.X <= k.Rect.Max.X &&
		k.Rect.Min.Y <= o.Rect.Max.Y && o.Rect.Min.Y <= k.Rect.Max.Y
}

// Layout is an immutable keyboard. Keys never overlap.
type Layout struct {
	keys  []Key
	index map[string]int
}

// NewLayout validates and builds a layout. Labels must be unique and
// rectangles pairwise disjoint.
func NewLayout(keys []Key) (*Layout, error) {
	l := &Layout{
		keys:  make([]Key, len(keys)),
		index: make(map[string]int, len(keys)),
	}
	copy(l.keys, keys)

	for i, k := range l.keys {
		if k.Label == "" {
			return nil, fmt.Errorf("key %d has no label", i)
		}
		if k.Rect.Empty() {
			return nil, fmt.Errorf("key %s has an empty rectangle", k.Label)
		}
		if _, dup := l.index[k.Label]; dup {
			return nil, fmt.Errorf("duplicate key label %s", k.Label)
		}
		for _, prev := range l.keys[:i] {
			if k.overlaps(prev) {
				return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, prev.Label, k.Label)
			}
		}
		l.index[k.Label] = i
	}

	return l, nil
}

// Locate returns the key containing p.
func (l *Layout) Locate(p image.Point) (string, bool) {
	for _, k := range l.keys {
		if k.Contains(p) {
			return k.Label, true
		}
	}
	return "", false
}

// Key returns the key with the given label.
func (l *Layout) Key(label string) (Key, bool) {
	i, ok := l.index[label]
	if !ok {
		return Key{}, false
	}
	return l.keys[i], true
}

// Keys returns a copy of the keys in layout order.
func (l *Layout) Keys() []Key {
	out := make([]Key, len(l.keys))
	copy(out, l.keys)
	return out
}

// Geometry describes a QWERTY grid.
type Geometry struct {
	Origin    image.Point
	KeyWidth  int
	KeyHeight int
	Gap       int
}

// DefaultGeometry places the keyboard at (100,300) with 60px keys and 10px gaps.
func DefaultGeometry() Geometry {
	return Geometry{
		Origin:    image.Pt(100, 300),
		KeyWidth:  60,
		KeyHeight: 60,
		Gap:       10,
	}
}

var qwertyRows = []string{"QWERTYUIOP", "ASDFGHJKL", "ZXCVBNM"}

// rect spans cols grid cells starting at (col,row).
func (g Geometry) rect(col, row, cols int) image.Rectangle {
	pitchX := g.KeyWidth + g.Gap
	pitchY := g.KeyHeight + g.Gap
	x := g.Origin.X + col*pitchX
	y := g.Origin.Y + row*pitchY
	w := cols*g.KeyWidth + (cols-1)*g.Gap
	return image.Rect(x, y, x+w, y+g.KeyHeight)
}

// QWERTY builds the letter rows plus BKSP after M, and SPACE and ENTER on a
// fourth row.
func QWERTY(g Geometry) (*Layout, error) {
	var keys []Key
	for row, letters := range qwertyRows {
		for col, r := range letters {
			keys = append(keys, Key{Label: string(r), Rect: g.rect(col, row, 1)})
		}
	}
	keys = append(keys,
		Key{Label: Backspace, Rect: g.rect(len(qwertyRows[2]), 2, 3)},
		Key{Label: Space, Rect: g.rect(0, 3, 5)},
		Key{Label: Enter, Rect: g.rect(5, 3, 3)},
	)
	return NewLayout(keys)
}
