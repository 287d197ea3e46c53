// type.go - Typen fuer das Relay-IR: DType, TensorType, TupleType
// Dieses Modul definiert die statischen Typen, die jeder Ausdruck traegt.
package relay

import (
	"fmt"
	"strings"
)

// DType represents the element type of a tensor.
type DType int

const (
	DTypeOther DType = iota
	DTypeInt8
	DTypeUint8
	DTypeInt16
	DTypeInt32
	DTypeFloat32
)

func (d DType) String() string {
	switch d {
	case DTypeInt8:
		return "int8"
	case DTypeUint8:
		return "uint8"
	case DTypeInt16:
		return "int16"
	case DTypeInt32:
		return "int32"
	case DTypeFloat32:
		return "float32"
	default:
		return "other"
	}
}

// Range returns the smallest and largest representable integer code.
// Float types report a zero range.
func (d DType) Range() (min, max int) {
	switch d {
	case DTypeInt8:
		return -128, 127
	case DTypeUint8:
		return 0, 255
	case DTypeInt16:
		return -32768, 32767
	case DTypeInt32:
		return -1 << 31, 1<<31 - 1
	default:
		return 0, 0
	}
}

// Type is the checked type of an expression.
type Type interface {
	isType()
	String() string
}

// TensorType describes a tensor with a static shape and element type.
type TensorType struct {
	Shape []int
	DType DType
}

func (*TensorType) isType() {}

func (t *TensorType) String() string {
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		dims[i] = fmt.Sprintf("%d", d)
	}
	return fmt.Sprintf("Tensor[(%s), %s]", strings.Join(dims, ", "), t.DType)
}

// Elements returns the total element count of the tensor.
func (t *TensorType) Elements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// TupleType describes the type of a tuple expression.
type TupleType struct {
	Fields []Type
}

func (*TupleType) isType() {}

func (t *TupleType) String() string {
	fields := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = f.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(fields, ", "))
}

// Tensor creates a TensorType from a shape and element type. The shape
// is copied so callers may reuse their slice.
func Tensor(shape []int, dtype DType) *TensorType {
	s := make([]int, len(shape))
	copy(s, shape)
	return &TensorType{Shape: s, DType: dtype}
}
