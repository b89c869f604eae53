// Package algoverse animates sorting, searching, graph and tree algorithms.
//
// Every generator records one frame per observable step (comparison, swap,
// write, visit, relaxation) and returns the sequence together with counters
// and a step-by-step explanation.
package algoverse

const domain = "algorithms"

// Option configures a generator run.
type Option func(*options)

type options struct {
	maxFrames int
}

// WithMaxFrames caps the number of frames; zero disables the cap.
func WithMaxFrames(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxFrames = n
		}
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
