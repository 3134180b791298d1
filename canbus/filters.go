package canbus

// Typed and composable helpers for FrameFilter.

// FrameFilter decides whether a frame should be delivered to a subscriber.
type FrameFilter func(Frame) bool

// ByID returns a filter that matches frames with the exact identifier.
func ByID(id uint32) FrameFilter {
	return func(f Frame) bool { return f.ID == id }
}

// ByMask matches when (frame.ID & mask) == (id & mask).
func ByMask(id uint32, mask uint32) FrameFilter {
	want := id & mask
	return func(f Frame) bool { return (f.ID & mask) == want }
}

// ExtendedOnly matches extended (29-bit) identifiers.
func ExtendedOnly() FrameFilter {
	return func(f Frame) bool { return f.Extended }
}

// DataOnly matches non-RTR frames.
func DataOnly() FrameFilter {
	return func(f Frame) bool { return !f.RTR }
}

// And composes two filters; the result matches when both match.
func And(a, b FrameFilter) FrameFilter {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(f Frame) bool { return a(f) && b(f) }
	}
}

// Or composes two filters; the result matches when either matches.
func Or(a, b FrameFilter) FrameFilter {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(f Frame) bool { return a(f) || b(f) }
	}
}

// Not inverts a filter.
func Not(a FrameFilter) FrameFilter {
	if a == nil {
		return func(Frame) bool { return true }
	}
	return func(f Frame) bool { return !a(f) }
}
