package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFrameRange is returned when a range selects no frames.
var ErrInvalidFrameRange = errors.New("invalid frame range")

// FrameRange selects samples by 0-based position in the input. A negative
// bound is open: Start < 0 means the first sample, End < 0 the last.
type FrameRange struct {
	Start int
	End   int
}

// AllFrames selects every sample.
func AllFrames() FrameRange {
	return FrameRange{Start: -1, End: -1}
}

// DCCRange converts a 1-based inclusive range, as shown on animation
// package timelines, to a FrameRange.
func DCCRange(first, last int) FrameRange {
	return FrameRange{Start: first - 1, End: last - 1}
}

// ParseDCCRange parses "first-last" (1-based, inclusive).
func ParseDCCRange(s string) (FrameRange, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return FrameRange{}, fmt.Errorf("%w: %q, expected first-last", ErrInvalidFrameRange, s)
	}
	first, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return FrameRange{}, fmt.Errorf("%w: %q: %v", ErrInvalidFrameRange, s, err)
	}
	last, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return FrameRange{}, fmt.Errorf("%w: %q: %v", ErrInvalidFrameRange, s, err)
	}
	if first < 1 || last < 1 {
		return FrameRange{}, fmt.Errorf("%w: %q, frames are 1-based", ErrInvalidFrameRange, s)
	}
	return DCCRange(first, last), nil
}

// Resolve clamps the range to total samples and returns inclusive bounds.
func (r FrameRange) Resolve(total int) (start, end int, err error) {
	if total == 0 {
		return 0, 0, fmt.Errorf("%w: input has no frames", ErrInvalidFrameRange)
	}
	start, end = r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end < 0 || end > total-1 {
		end = total - 1
	}
	if start > end {
		return 0, 0, fmt.Errorf("%w: %d-%d of %d frames", ErrInvalidFrameRange, r.Start, r.End, total)
	}
	return start, end, nil
}

// String formats the range for logs.
func (r FrameRange) String() string {
	bound := func(v int, open string) string {
		if v < 0 {
			return open
		}
		return strconv.Itoa(v)
	}
	return bound(r.Start, "first") + "-" + bound(r.End, "last")
}
