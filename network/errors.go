package network

import (
	"fmt"

	"github.com/wgalvao/neupy/layers"
)

// ShapeError and ConfigError re-export the layer error kinds so that every
// failure mode of network construction can be matched from this package.
type (
	ShapeError  = layers.ShapeError
	ConfigError = layers.ConfigError
)

// ConnectionError reports an invalid layer graph: a layer joined twice, a
// layer with two predecessors, or a topology that cannot form a network.
type ConnectionError struct {
	msg string
}

func connectionErrorf(format string, args ...interface{}) *ConnectionError {
	return &ConnectionError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConnectionError) Error() string { return e.msg }
