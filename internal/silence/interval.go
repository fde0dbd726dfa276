package silence

// Interval is the half-open frame range [Start, End).
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of frames in the interval.
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

// Unify merges touching intervals. Input must be sorted by Start and
// non-overlapping. The input slice is not modified.
//
//	Unify([{50 100} {100 150} {190 210}]) == [{50 150} {190 210}]
func Unify(intervals []Interval) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if n := len(out); n > 0 && out[n-1].End == iv.Start {
			out[n-1].End = iv.End
			continue
		}
		out = append(out, iv)
	}
	return out
}

// TrackSpans returns the complement of the silence intervals within
// [0, total): the span before each silence interval and the span after the
// last one. Empty spans are omitted.
func TrackSpans(silence []Interval, total int) []Interval {
	var spans []Interval
	from := 0
	for _, iv := range silence {
		if iv.Start > from {
			spans = append(spans, Interval{Start: from, End: iv.Start})
		}
		from = iv.End
	}
	if from < total {
		spans = append(spans, Interval{Start: from, End: total})
	}
	return spans
}

// CountTracks returns how many track spans are at least minFrames long.
func CountTracks(silence []Interval, total, minFrames int) int {
	n := 0
	for _, span := range TrackSpans(silence, total) {
		if span.Len() >= minFrames {
			n++
		}
	}
	return n
}
