package stats

import (
	"math"

	"github.com/carbocation/variation/array"
)

// calc chains backend operations and keeps the first error. Once err is set
// every method returns nil and does nothing.
type calc struct {
	be  array.Backend
	err error
}

func (c *calc) ok(arrays ...array.Array) bool {
	if c.err != nil {
		return false
	}
	for _, a := range arrays {
		if a == nil {
			return false
		}
	}
	return true
}

func (c *calc) keep(a array.Array, err error) array.Array {
	if err != nil {
		c.err = err
		return nil
	}
	return a
}

func (c *calc) reduce(op array.ReduceOp, a array.Array, axis int) array.Array {
	if !c.ok(a) {
		return nil
	}
	return c.keep(c.be.Reduce(op, a, axis))
}

func (c *calc) nanMean(a array.Array, axis int) array.Array {
	if !c.ok(a) {
		return nil
	}
	return c.keep(c.be.NaNMean(a, axis))
}

func (c *calc) unary(op array.UnaryOp, a array.Array) array.Array {
	if !c.ok(a) {
		return nil
	}
	return c.keep(c.be.Unary(op, a))
}

func (c *calc) binary(op array.BinaryOp, a, b array.Array) array.Array {
	if !c.ok(a, b) {
		return nil
	}
	return c.keep(c.be.Binary(op, a, b))
}

func (c *calc) where(cond, x, y array.Array) array.Array {
	if !c.ok(cond, x, y) {
		return nil
	}
	return c.keep(c.be.Where(cond, x, y))
}

func (c *calc) slice(a array.Array, axis, from, to int) array.Array {
	if !c.ok(a) {
		return nil
	}
	return c.keep(c.be.Slice(a, axis, from, to))
}

func (c *calc) expand(a array.Array, axis int) array.Array {
	if !c.ok(a) {
		return nil
	}
	return c.keep(c.be.ExpandDims(a, axis))
}

func (c *calc) cast(a array.Array, kind array.Kind) array.Array {
	if !c.ok(a) {
		return nil
	}
	return c.keep(c.be.Cast(a, kind))
}

func (c *calc) mapRows(fn array.BlockFunc, result array.MapResult, arrays ...array.Array) array.Array {
	if !c.ok(arrays...) {
		return nil
	}
	return c.keep(c.be.Map(fn, result, arrays...))
}

// nanWhere replaces the entries of x where mask holds with NaN. mask must
// broadcast against x.
func (c *calc) nanWhere(mask, x array.Array) array.Array {
	return c.where(mask, array.ScalarFloat(math.NaN()), c.cast(x, array.Float64))
}

// below is count < n, for per-variant thresholds.
func (c *calc) below(count array.Array, n int) array.Array {
	return c.binary(array.Less, count, array.ScalarInt(int64(n)))
}

func (c *calc) result(a array.Array) (array.Array, error) {
	if c.err != nil {
		return nil, c.err
	}
	return a, nil
}
