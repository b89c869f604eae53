package algoverse

import "errors"

// Sentinel errors for algorithm generators.
var (
	ErrEmptyInput     = errors.New("algoverse: empty input")
	ErrUnsorted       = errors.New("algoverse: binary search requires sorted input")
	ErrUnknownNode    = errors.New("algoverse: unknown node")
	ErrDuplicateNode  = errors.New("algoverse: duplicate node")
	ErrNegativeWeight = errors.New("algoverse: dijkstra requires non-negative weights")
	ErrUnknownOrder   = errors.New("algoverse: unknown traversal order")
	ErrInvalidWeight  = errors.New("algoverse: edge weight must be finite")
)
