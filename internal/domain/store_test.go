package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, viewport Viewport) *WindowStore {
	t.Helper()
	n := 0
	return NewWindowStore(viewport, WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("win-%d", n)
	}))
}

func boolPtr(b bool) *bool {
	return &b
}

func TestCreate(t *testing.T) {
	s := NewWindowStore(DefaultViewport())

	ids := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		id := s.Create("src", "title", 16.0/9.0)
		_, exists := ids[id]
		require.False(t, exists, "id %s returned twice", id)
		ids[id] = struct{}{}

		created, ok := s.Get(id)
		require.True(t, ok)
		for _, w := range s.Windows() {
			if w.ID != id {
				assert.Greater(t, created.ZIndex, w.ZIndex, "new window must be in front")
			}
		}
		assert.Equal(t, id, s.FocusedID())
	}
	assert.Len(t, s.Windows(), 20)
}

func TestCreateDefaults(t *testing.T) {
	s := newTestStore(t, DefaultViewport())

	id := s.Create("blob:1", "clip.mp4", 0)
	w, ok := s.Get(id)
	require.True(t, ok)

	assert.Equal(t, "blob:1", w.Source)
	assert.Equal(t, "clip.mp4", w.Title)
	assert.Equal(t, FallbackAspectRatio, w.OriginalAspectRatio, "invalid ratio must fall back")
	assert.False(t, w.IsMinimized)
	assert.True(t, w.IsMuted)
	assert.True(t, w.IsPlaying)
	assert.Equal(t, 1, w.ZIndex)
	assert.Equal(t, Position{X: 50, Y: 50}, w.Position)
	assert.InDelta(t, 400/FallbackAspectRatio, w.Size.Height, 1e-9)
}

func TestCreateSizesFromAspectRatio(t *testing.T) {
	s := newTestStore(t, DefaultViewport())

	a := s.Create("a", "A", 1.0)
	b := s.Create("b", "B", 2.0)

	wa, _ := s.Get(a)
	wb, _ := s.Get(b)
	assert.Equal(t, Size{Width: 400, Height: 400}, wa.Size)
	assert.Equal(t, Size{Width: 400, Height: 200}, wb.Size)
	assert.Greater(t, wb.ZIndex, wa.ZIndex)
	assert.Equal(t, b, s.FocusedID())

	s.Focus(a)
	wa, _ = s.Get(a)
	wb, _ = s.Get(b)
	assert.Greater(t, wa.ZIndex, wb.ZIndex)
	assert.Equal(t, a, s.FocusedID())
}

func TestFocusUnknownID(t *testing.T) {
	s := newTestStore(t, DefaultViewport())
	s.Create("a", "A", 1)
	before := s.Windows()
	focused := s.FocusedID()

	s.Focus("missing")

	assert.Equal(t, before, s.Windows())
	assert.Equal(t, focused, s.FocusedID())

	id := s.Create("b", "B", 1)
	w, _ := s.Get(id)
	assert.Equal(t, 2, w.ZIndex, "focus on unknown id must not consume a z-index")
}

func TestFocusTwiceStillRaises(t *testing.T) {
	s := newTestStore(t, DefaultViewport())
	id := s.Create("a", "A", 1)

	s.Focus(id)
	first, _ := s.Get(id)
	s.Focus(id)
	second, _ := s.Get(id)

	assert.Greater(t, second.ZIndex, first.ZIndex)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t, DefaultViewport())
	a := s.Create("a", "A", 1)
	b := s.Create("b", "B", 1)

	s.Remove(a)
	assert.Equal(t, b, s.FocusedID(), "removing an unfocused window keeps focus")
	require.Len(t, s.Windows(), 1)

	s.Remove(b)
	assert.Empty(t, s.FocusedID())
	assert.Empty(t, s.Windows())

	assert.NotPanics(t, func() {
		s.Remove(b)
		s.Focus(b)
		s.Minimize(b)
		s.Restore(b)
		s.Patch(b, WindowPatch{IsMuted: boolPtr(false)})
	})
	assert.Empty(t, s.Windows())
	assert.Empty(t, s.FocusedID())
}

func TestPatchKeepsOtherFields(t *testing.T) {
	s := newTestStore(t, DefaultViewport())
	id := s.Create("a", "A", 2)
	before, _ := s.Get(id)

	s.Patch(id, WindowPatch{Position: &Position{X: 7, Y: 9}})
	after, _ := s.Get(id)
	assert.Equal(t, Position{X: 7, Y: 9}, after.Position)
	assert.Equal(t, before.Size, after.Size)
	assert.Equal(t, before.ZIndex, after.ZIndex)

	s.Patch(id, WindowPatch{IsMuted: boolPtr(false), IsPlaying: boolPtr(false)})
	after, _ = s.Get(id)
	assert.False(t, after.IsMuted)
	assert.False(t, after.IsPlaying)
	assert.Equal(t, Position{X: 7, Y: 9}, after.Position)
}

func TestPatchSizeLocksAspectRatio(t *testing.T) {
	cases := []struct {
		name   string
		ratio  float64
		size   Size
		expect Size
	}{
		{name: "wide", ratio: 2, size: Size{Width: 500, Height: 999}, expect: Size{Width: 500, Height: 250}},
		{name: "square", ratio: 1, size: Size{Width: 321, Height: 1}, expect: Size{Width: 321, Height: 321}},
		{name: "below minimum", ratio: 2, size: Size{Width: 50, Height: 50}, expect: Size{Width: MinWindowWidth, Height: MinWindowWidth / 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, DefaultViewport())
			id := s.Create("a", "A", tc.ratio)

			size := tc.size
			s.Patch(id, WindowPatch{Size: &size})

			w, _ := s.Get(id)
			assert.InDelta(t, tc.expect.Width, w.Size.Width, 1e-9)
			assert.InDelta(t, tc.expect.Height, w.Size.Height, 1e-9)
			assert.InDelta(t, w.Size.Width/w.OriginalAspectRatio, w.Size.Height, 1e-9)
		})
	}
}

func TestMinimizeRestore(t *testing.T) {
	s := newTestStore(t, DefaultViewport())
	a := s.Create("a", "A", 1)
	s.Minimize(a)

	w, _ := s.Get(a)
	assert.True(t, w.IsMinimized)
	assert.Equal(t, a, s.FocusedID(), "minimize does not change focus")

	b := s.Create("b", "B", 1)
	assert.Equal(t, b, s.FocusedID())
	wb, _ := s.Get(b)
	assert.False(t, wb.IsMinimized)

	s.Remove(a)
	assert.Equal(t, b, s.FocusedID(), "focus is cleared only when the removed window was focused")

	s.Minimize(b)
	before, _ := s.Get(b)
	s.Restore(b)
	after, _ := s.Get(b)
	assert.False(t, after.IsMinimized)
	assert.Equal(t, before.Position, after.Position)
	assert.Equal(t, before.Size, after.Size)
	assert.Greater(t, after.ZIndex, before.ZIndex)
	assert.Equal(t, b, s.FocusedID())
}

func TestMutationsDoNotTouchPreviousSlices(t *testing.T) {
	s := newTestStore(t, DefaultViewport())
	a := s.Create("a", "A", 1)
	s.Create("b", "B", 1)

	old := s.Windows()
	oldCopy := append([]Window(nil), old...)

	s.Focus(a)
	s.Patch(a, WindowPatch{Position: &Position{X: 1, Y: 1}})
	s.Minimize(a)
	s.ArrangeVertically()
	s.Remove(a)

	assert.Equal(t, oldCopy, old)
}
