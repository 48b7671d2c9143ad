package gesture

import "math"

// Thresholds are the heart classifier limits as fractions of canvas width.
type Thresholds struct {
	MaxIndexDistance float64
	MaxThumbDistance float64
}

var (
	// LenientThresholds is what the live loop uses.
	LenientThresholds = Thresholds{MaxIndexDistance: 0.4, MaxThumbDistance: 0.5}
	// StrictThresholds is the tighter variant for replay analysis.
	StrictThresholds = Thresholds{MaxIndexDistance: 0.25, MaxThumbDistance: 0.3}
)

const (
	minHeartScale = 0.5
	maxHeartScale = 2.0
	scaleDivisor  = 200.0
)

type point struct{ x, y float64 }

func dist(a, b point) float64 { return math.Hypot(a.x-b.x, a.y-b.y) }

// ClassifyHeart checks whether two hands form a heart: index tips close,
// thumb tips close, and index tips above the thumbs. Normalized coordinates
// are scaled to the canvas first and x is mirrored to match a selfie view.
func ClassifyHeart(hands []Hand, width, height float64, th Thresholds) HeartSignal {
	if len(hands) != 2 || width <= 0 || height <= 0 {
		return HeartSignal{}
	}
	t1, ok1 := keypoint(hands[0], ThumbTip)
	i1, ok2 := keypoint(hands[0], IndexTip)
	t2, ok3 := keypoint(hands[1], ThumbTip)
	i2, ok4 := keypoint(hands[1], IndexTip)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return HeartSignal{}
	}

	pts := []*point{&t1, &i1, &t2, &i2}
	maxCoord := math.Inf(-1)
	for _, p := range pts {
		maxCoord = math.Max(maxCoord, math.Max(p.x, p.y))
	}
	if maxCoord <= 1 && maxCoord > 0 {
		for _, p := range pts {
			p.x *= width
			p.y *= height
		}
	}
	for _, p := range pts {
		p.x = width - p.x
	}

	indexDist := dist(i1, i2)
	thumbDist := dist(t1, t2)
	avgIndexY := (i1.y + i2.y) / 2
	avgThumbY := (t1.y + t2.y) / 2

	center := point{(i1.x + i2.x) / 2, (i1.y + i2.y) / 2}
	thumbMid := point{(t1.x + t2.x) / 2, (t1.y + t2.y) / 2}
	scale := math.Min(math.Max(dist(thumbMid, center)/scaleDivisor, minHeartScale), maxHeartScale)

	return HeartSignal{
		Valid:         true,
		Detected:      indexDist < width*th.MaxIndexDistance && thumbDist < width*th.MaxThumbDistance && avgIndexY < avgThumbY,
		CenterX:       center.x,
		CenterY:       center.y,
		Scale:         scale,
		IndexDistance: indexDist,
		ThumbDistance: thumbDist,
	}
}

func keypoint(h Hand, idx int) (point, bool) {
	if idx >= len(h.Keypoints) {
		return point{}, false
	}
	kp := h.Keypoints[idx]
	if math.IsNaN(kp.X) || math.IsNaN(kp.Y) || math.IsInf(kp.X, 0) || math.IsInf(kp.Y, 0) {
		return point{}, false
	}
	return point{kp.X, kp.Y}, true
}
