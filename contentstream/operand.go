package contentstream

// Operand is a type-safe operand value.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

type StringOperand struct{ Value []byte }

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) operand()     {}
func (ArrayOperand) Type() string { return "array" }

type DictOperand struct{ Values map[string]Operand }

func (DictOperand) operand()     {}
func (DictOperand) Type() string { return "dict" }

type InlineImageOperand struct {
	Image DictOperand
	Data  []byte
}

func (InlineImageOperand) operand()     {}
func (InlineImageOperand) Type() string { return "inline_image" }

// Operation represents an operator and its operands.
type Operation struct {
	Operator string
	Operands []Operand
}

func operandFloat(op Operand) float64 {
	if n, ok := op.(NumberOperand); ok {
		return n.Value
	}
	return 0
}

func operandsToMatrix(ops []Operand) [6]float64 {
	var m [6]float64
	for i := 0; i < 6 && i < len(ops); i++ {
		m[i] = operandFloat(ops[i])
	}
	return m
}
