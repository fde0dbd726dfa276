package audio

// FramesFor converts a duration in seconds to a frame count at rate,
// truncating toward zero.
func FramesFor(seconds float64, rate int) int {
	return int(seconds * float64(rate))
}

// Seconds converts a frame count to seconds at rate.
func Seconds(frames, rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(frames) / float64(rate)
}
