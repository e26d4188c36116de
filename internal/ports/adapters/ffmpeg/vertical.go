package ffmpeg

import "fmt"

const (
	ShortWidth  = 1080
	ShortHeight = 1920
)

// VerticalPlan is the scale-then-center-crop needed to fill an outW×outH frame.
// CropW/CropH are zero when no crop is needed.
type VerticalPlan struct {
	ScaleW, ScaleH int
	CropW, CropH   int
}

// PlanVertical scales the source to the target height keeping its aspect.
// Wider results are center-cropped to the target width; narrower ones are
// scaled up to the target width and center-cropped to the target height.
func PlanVertical(srcW, srcH, outW, outH int) (VerticalPlan, error) {
	if srcW <= 0 || srcH <= 0 {
		return VerticalPlan{}, fmt.Errorf("invalid source size %dx%d", srcW, srcH)
	}
	if outW <= 0 || outH <= 0 {
		return VerticalPlan{}, fmt.Errorf("invalid target size %dx%d", outW, outH)
	}

	w := even(roundDiv(srcW*outH, srcH))
	switch {
	case w > outW:
		return VerticalPlan{ScaleW: w, ScaleH: outH, CropW: outW, CropH: outH}, nil
	case w < outW:
		h := even(roundDiv(srcH*outW, srcW))
		if h > outH {
			return VerticalPlan{ScaleW: outW, ScaleH: h, CropW: outW, CropH: outH}, nil
		}
		return VerticalPlan{ScaleW: outW, ScaleH: outH}, nil
	default:
		return VerticalPlan{ScaleW: outW, ScaleH: outH}, nil
	}
}

func roundDiv(a, b int) int { return (a + b/2) / b }

func even(n int) int {
	if n%2 != 0 {
		n++
	}
	return n
}
