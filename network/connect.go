package network

import (
	"strings"

	"github.com/wgalvao/neupy/layers"
)

// Chain is an ordered, acyclic sequence of layers built by Join. A chain
// references layers without owning them: the same layer object joined into
// two places is a topology error, detected by identity.
type Chain struct {
	seq  []layers.Layer
	pred map[layers.Layer]layers.Layer
}

// Layers returns the chain's layers in forward order.
func (c *Chain) Layers() []layers.Layer {
	return append([]layers.Layer(nil), c.seq...)
}

// Head returns the first layer of the chain.
func (c *Chain) Head() layers.Layer { return c.seq[0] }

// Tail returns the last layer of the chain.
func (c *Chain) Tail() layers.Layer { return c.seq[len(c.seq)-1] }

// String formats the chain as "Input(2) > Sigmoid(3) > Output(1)".
func (c *Chain) String() string {
	names := make([]string, len(c.seq))
	for i, layer := range c.seq {
		names[i] = layer.String()
	}
	return strings.Join(names, " > ")
}

// Predecessor returns the layer feeding the given layer within the chain,
// or nil for the head.
func (c *Chain) Predecessor(layer layers.Layer) layers.Layer {
	return c.pred[layer]
}

func chainOf(layer layers.Layer) *Chain {
	return &Chain{
		seq:  []layers.Layer{layer},
		pred: map[layers.Layer]layers.Layer{},
	}
}

// asChain converts a Join operand into a chain. Accepted forms are a
// single layers.Layer, a []layers.Layer, and a *Chain.
func asChain(v interface{}) (*Chain, error) {
	switch v := v.(type) {
	case *Chain:
		return v, nil
	case layers.Layer:
		return chainOf(v), nil
	case []layers.Layer:
		if len(v) == 0 {
			return nil, connectionErrorf("cannot join an empty layer list")
		}
		chain := chainOf(v[0])
		for _, layer := range v[1:] {
			joined, err := Join(chain, layer)
			if err != nil {
				return nil, err
			}
			chain = joined
		}
		return chain, nil
	default:
		return nil, connectionErrorf("cannot join value of type %T", v)
	}
}

// Join connects two chain fragments, feeding the output of left into the
// input of right. Each operand may be a layers.Layer, a []layers.Layer or a
// *Chain. Join never mutates its operands; it returns a new chain.
//
// Joining a layer that is already a member of the other operand, or merging
// fragments that would give a layer two different predecessors, returns a
// *ConnectionError.
func Join(left, right interface{}) (*Chain, error) {
	lc, err := asChain(left)
	if err != nil {
		return nil, err
	}
	rc, err := asChain(right)
	if err != nil {
		return nil, err
	}

	members := make(map[layers.Layer]bool, len(lc.seq))
	for _, layer := range lc.seq {
		members[layer] = true
	}
	for _, layer := range rc.seq {
		if members[layer] {
			return nil, connectionErrorf("layer %s appears on both sides of a connection", layer)
		}
	}

	merged := &Chain{
		seq:  make([]layers.Layer, 0, len(lc.seq)+len(rc.seq)),
		pred: make(map[layers.Layer]layers.Layer, len(lc.pred)+len(rc.pred)+1),
	}
	merged.seq = append(merged.seq, lc.seq...)
	merged.seq = append(merged.seq, rc.seq...)
	for layer, p := range lc.pred {
		merged.pred[layer] = p
	}
	for layer, p := range rc.pred {
		if existing, ok := merged.pred[layer]; ok && existing != p {
			return nil, connectionErrorf("layer %s already receives its input from %s", layer, existing)
		}
		merged.pred[layer] = p
	}
	if existing, ok := merged.pred[rc.Head()]; ok && existing != lc.Tail() {
		return nil, connectionErrorf("layer %s already receives its input from %s", rc.Head(), existing)
	}
	merged.pred[rc.Head()] = lc.Tail()
	return merged, nil
}
