package media

import (
	"context"
	"io"
	"math"

	"github.com/abema/go-mp4"
	"github.com/xpcollage/server/internal/domain"
)

// AspectRatio is the outcome of probing a media file. Measured is false when the value is the
// fallback ratio rather than one read from the file.
type AspectRatio struct {
	Value    float64 `json:"value"`
	Measured bool    `json:"measured"`
}

func Measured(ratio float64) AspectRatio {
	return AspectRatio{Value: ratio, Measured: true}
}

func Fallback() AspectRatio {
	return AspectRatio{Value: domain.FallbackAspectRatio, Measured: false}
}

// FromDimensions returns the measured ratio of width to height, or the fallback when either
// dimension is unusable.
func FromDimensions(width, height float64) AspectRatio {
	if width <= 0 || height <= 0 {
		return Fallback()
	}

	ratio := width / height
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Fallback()
	}

	return Measured(ratio)
}

// Probe reads the display dimensions of the first video track of an ISO-BMFF (mp4, mov, m4v)
// file. It never fails: unreadable or unsupported input yields Fallback. Tracks rotated by 90 or
// 270 degrees report their displayed, swapped dimensions.
func Probe(ctx context.Context, r io.ReadSeeker) AspectRatio {
	if ctx.Err() != nil {
		return Fallback()
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Fallback()
	}

	boxes, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeTkhd()})
	if err != nil {
		return Fallback()
	}

	for _, box := range boxes {
		tkhd, ok := box.Payload.(*mp4.Tkhd)
		if !ok || tkhd.Width == 0 || tkhd.Height == 0 {
			continue
		}

		// tkhd dimensions are 16.16 fixed point
		width, height := float64(tkhd.Width)/65536, float64(tkhd.Height)/65536
		if quarterTurn(tkhd.Matrix) {
			width, height = height, width
		}
		return FromDimensions(width, height)
	}

	return Fallback()
}

// quarterTurn reports whether the track matrix {a b u, c d v, x y w} rotates by 90 or 270 degrees,
// that is a and d are zero while b and c are not.
func quarterTurn(m [9]int32) bool {
	return m[0] == 0 && m[4] == 0 && m[1] != 0 && m[3] != 0
}
