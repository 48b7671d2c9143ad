package gesture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func handWith(thumb, index Keypoint) Hand {
	kps := make([]Keypoint, 21)
	kps[ThumbTip] = thumb
	kps[IndexTip] = index
	return Hand{Keypoints: kps}
}

func TestClassifyHeartNormalizedPose(t *testing.T) {
	// Index tips touching above, thumb tips touching below.
	left := handWith(Keypoint{X: 0.48, Y: 0.70}, Keypoint{X: 0.49, Y: 0.40})
	right := handWith(Keypoint{X: 0.52, Y: 0.70}, Keypoint{X: 0.51, Y: 0.40})

	sig := ClassifyHeart([]Hand{left, right}, 1000, 500, LenientThresholds)
	assert.True(t, sig.Valid)
	assert.True(t, sig.Detected)
	assert.InDelta(t, 500, sig.CenterX, 1e-6)
	assert.InDelta(t, 200, sig.CenterY, 1e-6)
	assert.InDelta(t, 20, sig.IndexDistance, 1e-6)
	assert.InDelta(t, 40, sig.ThumbDistance, 1e-6)
	// Thumb midpoint is 150px below the index midpoint.
	assert.InDelta(t, 0.75, sig.Scale, 1e-6)
}

func TestClassifyHeartMirrorsX(t *testing.T) {
	left := handWith(Keypoint{X: 100, Y: 300}, Keypoint{X: 110, Y: 200})
	right := handWith(Keypoint{X: 140, Y: 300}, Keypoint{X: 130, Y: 200})

	sig := ClassifyHeart([]Hand{left, right}, 1000, 500, LenientThresholds)
	assert.True(t, sig.Detected)
	assert.InDelta(t, 880, sig.CenterX, 1e-6)
}

func TestClassifyHeartRejectsInvertedHands(t *testing.T) {
	left := handWith(Keypoint{X: 100, Y: 200}, Keypoint{X: 110, Y: 300})
	right := handWith(Keypoint{X: 140, Y: 200}, Keypoint{X: 130, Y: 300})

	sig := ClassifyHeart([]Hand{left, right}, 1000, 500, LenientThresholds)
	assert.True(t, sig.Valid)
	assert.False(t, sig.Detected)
}

func TestClassifyHeartThresholdVariants(t *testing.T) {
	// Index tips 300px apart on a 1000px canvas: lenient (400) passes, strict (250) does not.
	left := handWith(Keypoint{X: 350, Y: 400}, Keypoint{X: 350, Y: 200})
	right := handWith(Keypoint{X: 600, Y: 400}, Keypoint{X: 650, Y: 200})
	hs := []Hand{left, right}

	assert.True(t, ClassifyHeart(hs, 1000, 500, LenientThresholds).Detected)
	assert.False(t, ClassifyHeart(hs, 1000, 500, StrictThresholds).Detected)
}

func TestClassifyHeartScaleIsClamped(t *testing.T) {
	near := []Hand{
		handWith(Keypoint{X: 100, Y: 201}, Keypoint{X: 100, Y: 200}),
		handWith(Keypoint{X: 110, Y: 201}, Keypoint{X: 110, Y: 200}),
	}
	assert.Equal(t, 0.5, ClassifyHeart(near, 1000, 1000, LenientThresholds).Scale)

	far := []Hand{
		handWith(Keypoint{X: 100, Y: 900}, Keypoint{X: 100, Y: 10}),
		handWith(Keypoint{X: 110, Y: 900}, Keypoint{X: 110, Y: 10}),
	}
	assert.Equal(t, 2.0, ClassifyHeart(far, 1000, 1000, LenientThresholds).Scale)
}

func TestClassifyHeartInvalidInput(t *testing.T) {
	good := handWith(Keypoint{X: 1, Y: 2}, Keypoint{X: 3, Y: 4})
	short := Hand{Keypoints: make([]Keypoint, 5)}
	nan := handWith(Keypoint{X: math.NaN(), Y: 2}, Keypoint{X: 3, Y: 4})

	assert.False(t, ClassifyHeart([]Hand{good}, 100, 100, LenientThresholds).Valid)
	assert.False(t, ClassifyHeart([]Hand{good, short}, 100, 100, LenientThresholds).Valid)
	assert.False(t, ClassifyHeart([]Hand{good, nan}, 100, 100, LenientThresholds).Valid)
	assert.False(t, ClassifyHeart([]Hand{good, good}, 0, 100, LenientThresholds).Valid)
}
