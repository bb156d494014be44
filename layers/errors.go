package layers

import "fmt"

// ShapeError reports that a layer's declared configuration is incompatible
// with the input shape it receives: a size mismatch, a non-divisible
// reshape, a kernel larger than its input, or an invalid channel range.
type ShapeError struct {
	msg string
}

func (e *ShapeError) Error() string { return e.msg }

func shapeErrorf(format string, args ...any) *ShapeError {
	return &ShapeError{msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports that a layer's own configuration is internally
// invalid independent of any input shape: a broadcast axis out of range,
// the batch axis selected for a per-axis parameter, or use of a layer
// before initialization.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}
