package domain

import (
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// WindowStore owns the windows of a single desktop, the focused window and the stacking counter.
//
// Every mutation replaces the window slice instead of writing into it, so a slice returned by
// Windows is never modified afterwards. Unknown ids are ignored by all operations.
// WindowStore is not safe for concurrent use.
type WindowStore struct {
	windows    []Window
	focusedID  string
	nextZIndex int
	viewport   Viewport
	newID      func() string
}

type StoreOption func(*WindowStore)

// WithIDGenerator overrides the uuid based window id generator.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *WindowStore) {
		s.newID = gen
	}
}

func NewWindowStore(viewport Viewport, opts ...StoreOption) *WindowStore {
	s := &WindowStore{
		windows:    []Window{},
		nextZIndex: 1,
		viewport:   viewport,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *WindowStore) Windows() []Window {
	return s.windows
}

// FocusedID returns the focused window id or an empty string when nothing is focused.
func (s *WindowStore) FocusedID() string {
	return s.focusedID
}

func (s *WindowStore) Viewport() Viewport {
	return s.viewport
}

func (s *WindowStore) Get(id string) (Window, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Window{}, false
	}

	return s.windows[i], true
}

func (s *WindowStore) SetViewport(viewport Viewport) {
	s.viewport = viewport
}

func (s *WindowStore) Create(source, title string, aspectRatio float64) string {
	aspectRatio = NormalizeAspectRatio(aspectRatio)
	position, size := s.viewport.placement(len(s.windows), aspectRatio)

	window := Window{
		ID:                  s.newID(),
		Source:              source,
		Title:               title,
		Position:            position,
		Size:                size,
		OriginalAspectRatio: aspectRatio,
		ZIndex:              s.nextZIndex,
		IsMinimized:         false,
		IsMuted:             true,
		IsPlaying:           true,
	}
	s.nextZIndex++

	windows := make([]Window, 0, len(s.windows)+1)
	windows = append(windows, s.windows...)
	s.windows = append(windows, window)
	s.focusedID = window.ID

	return window.ID
}

func (s *WindowStore) Remove(id string) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}

	windows := make([]Window, 0, len(s.windows)-1)
	windows = append(windows, s.windows[:i]...)
	s.windows = append(windows, s.windows[i+1:]...)

	if s.focusedID == id {
		s.focusedID = ""
	}
}

func (s *WindowStore) Patch(id string, patch WindowPatch) {
	s.update(id, func(w Window) Window {
		return w.apply(patch)
	})
}

// Focus brings the window to the front. Focusing the already focused window still raises it.
func (s *WindowStore) Focus(id string) {
	if s.indexOf(id) < 0 {
		return
	}

	z := s.nextZIndex
	s.nextZIndex++
	s.update(id, func(w Window) Window {
		w.ZIndex = z
		return w
	})
	s.focusedID = id
}

func (s *WindowStore) Minimize(id string) {
	minimized := true
	s.Patch(id, WindowPatch{IsMinimized: &minimized})
}

func (s *WindowStore) Restore(id string) {
	minimized := false
	s.Patch(id, WindowPatch{IsMinimized: &minimized})
	s.Focus(id)
}

// ArrangeVertically stacks the visible windows in a single column in storage order and
// renumbers their z-indexes from 1. Minimized windows keep their state and move to the end
// of the storage order.
func (s *WindowStore) ArrangeVertically() {
	column := s.viewport.column()
	y := column.startY

	arranged := make([]Window, 0, len(s.windows))
	minimized := make([]Window, 0)
	for _, w := range s.windows {
		if w.IsMinimized {
			minimized = append(minimized, w)
			continue
		}

		w.Position = Position{X: column.startX, Y: y}
		w.ZIndex = len(arranged) + 1
		y += w.Size.Height + column.gap + TitleBarHeight
		arranged = append(arranged, w)
	}

	s.nextZIndex = len(arranged) + 1
	s.windows = append(arranged, minimized...)
}

func (s *WindowStore) indexOf(id string) int {
	return slices.IndexFunc(s.windows, func(w Window) bool {
		return w.ID == id
	})
}

func (s *WindowStore) update(id string, fn func(Window) Window) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}

	windows := slices.Clone(s.windows)
	windows[i] = fn(windows[i])
	s.windows = windows
}
