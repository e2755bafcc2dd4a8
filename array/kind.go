package array

// Kind is the element type of an array. Integer kinds share int64 storage and
// float kinds share float64 storage; the kind is kept so that stores can
// round-trip the declared width.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	String
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"

	default:
		return "Illegal selection"
	}
}

// IsInteger reports whether k is stored as int64.
func (k Kind) IsInteger() bool {
	return k >= Int8 && k <= Int64
}

// IsFloat reports whether k is stored as float64.
func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// IsNumeric reports whether arithmetic is defined for k.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloat()
}

// promote returns the kind produced by combining a and b arithmetically.
func promote(a, b Kind) Kind {
	switch {
	case a.IsFloat() || b.IsFloat():
		return Float64
	case a.IsInteger() || b.IsInteger():
		return Int64
	}
	return Int64
}
