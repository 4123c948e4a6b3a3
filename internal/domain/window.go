package domain

import "math"

// FallbackAspectRatio is used whenever the media dimensions are unknown.
const FallbackAspectRatio = 16.0 / 9.0

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Window struct {
	ID                  string   `json:"id"`
	Source              string   `json:"source"`
	Title               string   `json:"title"`
	Position            Position `json:"position"`
	Size                Size     `json:"size"`
	OriginalAspectRatio float64  `json:"original_aspect_ratio"`
	ZIndex              int      `json:"z_index"`
	IsMinimized         bool     `json:"is_minimized"`
	IsMuted             bool     `json:"is_muted"`
	IsPlaying           bool     `json:"is_playing"`
}

// WindowPatch holds the mutable fields of a window. Nil fields are left untouched.
type WindowPatch struct {
	Position    *Position
	Size        *Size
	IsMinimized *bool
	IsMuted     *bool
	IsPlaying   *bool
}

// HeightFor returns the aspect-locked height for the given width.
func (w Window) HeightFor(width float64) float64 {
	return width / w.OriginalAspectRatio
}

func (w Window) apply(patch WindowPatch) Window {
	if patch.Position != nil {
		w.Position = *patch.Position
	}
	if patch.Size != nil {
		width := math.Max(patch.Size.Width, MinWindowWidth)
		w.Size = Size{Width: width, Height: w.HeightFor(width)}
	}
	if patch.IsMinimized != nil {
		w.IsMinimized = *patch.IsMinimized
	}
	if patch.IsMuted != nil {
		w.IsMuted = *patch.IsMuted
	}
	if patch.IsPlaying != nil {
		w.IsPlaying = *patch.IsPlaying
	}

	return w
}

// NormalizeAspectRatio replaces zero, negative and non-finite ratios with FallbackAspectRatio.
func NormalizeAspectRatio(ratio float64) float64 {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return FallbackAspectRatio
	}

	return ratio
}
