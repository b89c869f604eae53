package render

// Option configures a Registry.
type Option func(*Registry)

// WithMaxInputSize caps the element count of params that report a size.
func WithMaxInputSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxInput = n
		}
	}
}

// WithMaxFrames caps the frames a single render may produce.
func WithMaxFrames(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxFrames = n
		}
	}
}
