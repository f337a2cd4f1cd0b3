package content

import "fmt"

// ScrollOffset returns how far down the snapshot the viewport's top edge sits
// at time t of a d-second video. The image is drawn at -ScrollOffset, so the
// result is always within [0, imageH-viewportH]. Images no taller than the
// viewport never scroll.
func ScrollOffset(t, d float64, imageH, viewportH int) float64 {
	travel := float64(imageH - viewportH)
	if travel <= 0 || d <= 0 {
		return 0
	}
	frac := t / d
	switch {
	case frac < 0:
		frac = 0
	case frac > 1:
		frac = 1
	}
	return travel * frac
}

// ScrollCropExpr is the ffmpeg crop y expression equivalent to ScrollOffset.
// Commas are protected by the single quotes.
func ScrollCropExpr(d float64, imageH, viewportH int) string {
	travel := imageH - viewportH
	if travel <= 0 || d <= 0 {
		return "0"
	}
	return fmt.Sprintf("'min(max(0,%d*t/%.3f),%d)'", travel, d, travel)
}
