package keyboard

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := QWERTY(DefaultGeometry())
	require.NoError(t, err)
	return l
}

func TestQWERTY_HasAllKeys(t *testing.T) {
	l := defaultLayout(t)

	keys := l.Keys()
	assert.Len(t, keys, 29)

	for r := 'A'; r <= 'Z'; r++ {
		_, ok := l.Key(string(r))
		assert.True(t, ok, "missing letter %c", r)
	}
	for _, label := range []string{Space, Backspace, Enter} {
		_, ok := l.Key(label)
		assert.True(t, ok, "missing special key %s", label)
	}
}

func TestQWERTY_Geometry(t *testing.T) {
	l := defaultLayout(t)

	q, _ := l.Key("Q")
	assert.Equal(t, image.Rect(100, 300, 160, 360), q.Rect)

	a, _ := l.Key("A")
	assert.Equal(t, image.Rect(100, 370, 160, 430), a.Rect)

	space, _ := l.Key(Space)
	assert.Equal(t, image.Rect(100, 510, 440, 570), space.Rect)

	enter, _ := l.Key(Enter)
	assert.Equal(t, image.Rect(450, 510, 650, 570), enter.Rect)

	bksp, _ := l.Key(Backspace)
	assert.Equal(t, image.Rect(590, 440, 790, 500), bksp.Rect)
}

func TestLayout_Locate(t *testing.T) {
	l := defaultLayout(t)

	tests := []struct {
		name   string
		p      image.Point
		want   string
		wantOK bool
	}{
		{"inside Q", image.Pt(130, 330), "Q", true},
		{"top-left corner inclusive", image.Pt(100, 300), "Q", true},
		{"bottom-right corner inclusive", image.Pt(160, 360), "Q", true},
		{"gap between Q and W", image.Pt(165, 330), "", false},
		{"inside M", image.Pt(550, 470), "M", true},
		{"inside BKSP", image.Pt(700, 470), Backspace, true},
		{"inside SPACE", image.Pt(300, 540), Space, true},
		{"inside ENTER", image.Pt(500, 540), Enter, true},
		{"above keyboard", image.Pt(300, 100), "", false},
		{"screen origin", image.Pt(0, 0), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.Locate(tt.p)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayout_LocateExactlyOneKey(t *testing.T) {
	l := defaultLayout(t)

	for _, k := range l.Keys() {
		centre := image.Pt((k.Rect.Min.X+k.Rect.Max.X)/2, (k.Rect.Min.Y+k.Rect.Max.Y)/2)
		matches := 0
		for _, other := range l.Keys() {
			if other.Contains(centre) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "centre of %s matched %d keys", k.Label, matches)

		got, ok := l.Locate(centre)
		require.True(t, ok)
		assert.Equal(t, k.Label, got)
	}
}

func TestNewLayout_Validation(t *testing.T) {
	tests := []struct {
		name    string
		keys    []Key
		wantErr error
	}{
		{
			name: "overlapping rectangles",
			keys: []Key{
				{Label: "A", Rect: image.Rect(0, 0, 10, 10)},
				{Label: "B", Rect: image.Rect(5, 5, 15, 15)},
			},
			wantErr: ErrOverlap,
		},
		{
			name: "shared edge counts as overlap",
			keys: []Key{
				{Label: "A", Rect: image.Rect(0, 0, 10, 10)},
				{Label: "B", Rect: image.Rect(10, 0, 20, 10)},
			},
			wantErr: ErrOverlap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.keys)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("duplicate label", func(t *testing.T) {
		_, err := NewLayout([]Key{
			{Label: "A", Rect: image.Rect(0, 0, 10, 10)},
			{Label: "A", Rect: image.Rect(20, 0, 30, 10)},
		})
		assert.Error(t, err)
	})

	t.Run("empty rectangle", func(t *testing.T) {
		_, err := NewLayout([]Key{{Label: "A", Rect: image.Rect(0, 0, 0, 10)}})
		assert.Error(t, err)
	})

	t.Run("original BKSP placement overlaps M", func(t *testing.T) {
		g := DefaultGeometry()
		_, err := NewLayout([]Key{
			{Label: "M", Rect: g.rect(6, 2, 1)},
			{Label: Backspace, Rect: g.rect(6, 2, 4)},
		})
		assert.ErrorIs(t, err, ErrOverlap)
	})
}

func TestLayout_IsImmutable(t *testing.T) {
	l := defaultLayout(t)

	keys := l.Keys()
	keys[0].Label = "changed"

	q, ok := l.Key("Q")
	require.True(t, ok)
	assert.Equal(t, "Q", q.Label)
}
