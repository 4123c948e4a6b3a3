package desktop

import (
	"github.com/xpcollage/server/internal/domain"
	"golang.org/x/exp/slices"
)

const taskbarLabelLength = 20

// Snapshot is an immutable view of a desktop after a command. Windows must not be modified.
type Snapshot struct {
	Version   uint64          `json:"version"`
	Windows   []domain.Window `json:"windows"`
	FocusedID string          `json:"focused_id"`
	Viewport  domain.Viewport `json:"viewport"`
}

type TaskbarEntry struct {
	WindowID    string `json:"window_id"`
	Label       string `json:"label"`
	IsActive    bool   `json:"is_active"`
	IsMinimized bool   `json:"is_minimized"`
}

func (s Snapshot) Window(id string) (domain.Window, bool) {
	i := slices.IndexFunc(s.Windows, func(w domain.Window) bool {
		return w.ID == id
	})
	if i < 0 {
		return domain.Window{}, false
	}

	return s.Windows[i], true
}

// Visible returns the non-minimized windows in storage order.
func (s Snapshot) Visible() []domain.Window {
	return s.filter(func(w domain.Window) bool { return !w.IsMinimized })
}

func (s Snapshot) Minimized() []domain.Window {
	return s.filter(func(w domain.Window) bool { return w.IsMinimized })
}

// ZOrder returns the visible windows back to front.
func (s Snapshot) ZOrder() []domain.Window {
	visible := s.Visible()
	slices.SortStableFunc(visible, func(a, b domain.Window) int {
		return a.ZIndex - b.ZIndex
	})

	return visible
}

// Taskbar lists visible windows first, then minimized ones.
func (s Snapshot) Taskbar() []TaskbarEntry {
	entries := make([]TaskbarEntry, 0, len(s.Windows))
	for _, w := range append(s.Visible(), s.Minimized()...) {
		entries = append(entries, TaskbarEntry{
			WindowID:    w.ID,
			Label:       truncate(w.Title, taskbarLabelLength),
			IsActive:    !w.IsMinimized && w.ID == s.FocusedID,
			IsMinimized: w.IsMinimized,
		})
	}

	return entries
}

func (s Snapshot) filter(keep func(domain.Window) bool) []domain.Window {
	windows := make([]domain.Window, 0, len(s.Windows))
	for _, w := range s.Windows {
		if keep(w) {
			windows = append(windows, w)
		}
	}

	return windows
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}
