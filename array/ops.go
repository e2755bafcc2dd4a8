package array

// ReduceOp is a reduction along one axis (or AxisAll).
type ReduceOp uint8

const (
	Sum ReduceOp = iota
	NaNSum
	Min
	Max
	Any
	All
	CountNonzero
)

func (op ReduceOp) String() string {
	switch op {
	case Sum:
		return "sum"
	case NaNSum:
		return "nansum"
	case Min:
		return "min"
	case Max:
		return "max"
	case Any:
		return "any"
	case All:
		return "all"
	case CountNonzero:
		return "count_nonzero"
	}
	return "Illegal selection"
}

// UnaryOp is an elementwise operation on one array.
type UnaryOp uint8

const (
	IsNaN UnaryOp = iota
	IsInf
	IsFinite
	IsMissing
	Not
)

func (op UnaryOp) String() string {
	switch op {
	case IsNaN:
		return "isnan"
	case IsInf:
		return "isinf"
	case IsFinite:
		return "isfinite"
	case IsMissing:
		return "is_missing"
	case Not:
		return "logical_not"
	}
	return "Illegal selection"
}

// BinaryOp is an elementwise operation on two broadcast-compatible arrays.
type BinaryOp uint8

const (
	And BinaryOp = iota
	Or
	Add
	Subtract
	Multiply
	Divide
	Maximum
	Minimum
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
)

func (op BinaryOp) String() string {
	switch op {
	case And:
		return "logical_and"
	case Or:
		return "logical_or"
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	case Multiply:
		return "multiply"
	case Divide:
		return "divide"
	case Maximum:
		return "maximum"
	case Minimum:
		return "minimum"
	case Equal:
		return "equal"
	case NotEqual:
		return "not_equal"
	case Less:
		return "less"
	case LessEqual:
		return "less_equal"
	case Greater:
		return "greater"
	case GreaterEqual:
		return "greater_equal"
	}
	return "Illegal selection"
}

func (op BinaryOp) isLogical() bool { return op == And || op == Or }

func (op BinaryOp) isComparison() bool { return op >= Equal }
