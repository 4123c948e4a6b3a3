package domain

import "math"

const (
	// CompactViewportWidth is the widest viewport still laid out in compact mode.
	CompactViewportWidth = 768
	TitleBarHeight       = 36
	MinWindowWidth       = 200

	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
)

type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func DefaultViewport() Viewport {
	return Viewport{Width: defaultViewportWidth, Height: defaultViewportHeight}
}

func (v Viewport) IsCompact() bool {
	return v.Width <= CompactViewportWidth
}

// placement returns the default frame of the n-th window (zero based) created on the desktop.
// Compact windows never get narrower than MinWindowWidth.
func (v Viewport) placement(n int, aspectRatio float64) (Position, Size) {
	if v.IsCompact() {
		width := math.Max(math.Min(v.Width-40, 320), MinWindowWidth)
		return Position{X: 20, Y: 80 + float64(n)*20},
			Size{Width: width, Height: width / aspectRatio}
	}

	width := 400.0
	return Position{X: 50 + float64(n%5)*30, Y: 50 + float64(n)*40},
		Size{Width: width, Height: width / aspectRatio}
}

type columnLayout struct {
	startX float64
	startY float64
	gap    float64
}

func (v Viewport) column() columnLayout {
	if v.IsCompact() {
		return columnLayout{startX: 10, startY: 70, gap: 10}
	}

	return columnLayout{startX: 50, startY: 50, gap: 20}
}
