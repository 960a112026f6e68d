package swipe

import "github.com/EasterCompany/pulse-service/interfaces"

// DirectionFromKey maps arrow keys to swipe directions.
func DirectionFromKey(key string) (interfaces.Direction, bool) {
	switch key {
	case "ArrowLeft":
		return interfaces.DirectionLeft, true
	case "ArrowRight":
		return interfaces.DirectionRight, true
	case "ArrowDown":
		return interfaces.DirectionDown, true
	}
	return "", false
}

// DirectionFromDrag classifies a drag by its final offset. Horizontal
// movement wins over vertical; an upward or short drag is not a swipe.
func DirectionFromDrag(dx, dy, threshold float64) (interfaces.Direction, bool) {
	if threshold <= 0 {
		threshold = DefaultDragThreshold
	}
	switch {
	case dx < -threshold:
		return interfaces.DirectionLeft, true
	case dx > threshold:
		return interfaces.DirectionRight, true
	case dy > threshold:
		return interfaces.DirectionDown, true
	}
	return "", false
}
