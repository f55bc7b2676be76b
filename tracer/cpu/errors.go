package cpu

import "errors"

var (
	ErrNotInitialized    = errors.New("cpu tracer: tracer not initialized")
	ErrNoSceneData       = errors.New("cpu tracer: no scene data committed")
	ErrNoOutputBuffers   = errors.New("cpu tracer: no output buffers attached")
	ErrInvalidUpdateData = errors.New("cpu tracer: invalid update payload")
)
