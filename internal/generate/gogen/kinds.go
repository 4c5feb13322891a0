package gogen

import (
	"fmt"

	"github.com/jptrs93/pbgen/internal/ir"
)

func goScalarType(kind ir.Kind) (string, error) {
	switch kind {
	case ir.KindBool:
		return "bool", nil
	case ir.KindInt32, ir.KindSint32, ir.KindSfixed32:
		return "int32", nil
	case ir.KindInt64, ir.KindSint64, ir.KindSfixed64:
		return "int64", nil
	case ir.KindUint32, ir.KindFixed32:
		return "uint32", nil
	case ir.KindUint64, ir.KindFixed64:
		return "uint64", nil
	case ir.KindFloat:
		return "float32", nil
	case ir.KindDouble:
		return "float64", nil
	case ir.KindString:
		return "string", nil
	case ir.KindBytes:
		return "[]byte", nil
	default:
		return "", fmt.Errorf("unsupported scalar kind: %v", kind)
	}
}

func wireType(kind ir.Kind) string {
	switch kind {
	case ir.KindString, ir.KindBytes, ir.KindMessage:
		return "wire.BytesType"
	case ir.KindFixed32, ir.KindSfixed32, ir.KindFloat:
		return "wire.Fixed32Type"
	case ir.KindFixed64, ir.KindSfixed64, ir.KindDouble:
		return "wire.Fixed64Type"
	default:
		return "wire.VarintType"
	}
}

func fixedWidth(kind ir.Kind) int {
	switch kind {
	case ir.KindFixed32, ir.KindSfixed32, ir.KindFloat:
		return 4
	case ir.KindFixed64, ir.KindSfixed64, ir.KindDouble:
		return 8
	default:
		return 0
	}
}

// varintValue converts v to the uint64 written on the wire. Signed values are
// sign extended, so a negative int32 takes ten bytes.
func varintValue(kind ir.Kind, v string) string {
	switch kind {
	case ir.KindBool:
		return "wire.EncodeBool(" + v + ")"
	case ir.KindSint32:
		return "wire.EncodeZigZag32(" + v + ")"
	case ir.KindSint64:
		return "wire.EncodeZigZag64(" + v + ")"
	case ir.KindUint64:
		return v
	default:
		return "uint64(" + v + ")"
	}
}

func fixedValue(kind ir.Kind, v string) string {
	switch kind {
	case ir.KindSfixed32:
		return "uint32(" + v + ")"
	case ir.KindFloat:
		return "math.Float32bits(" + v + ")"
	case ir.KindSfixed64:
		return "uint64(" + v + ")"
	case ir.KindDouble:
		return "math.Float64bits(" + v + ")"
	default:
		return v
	}
}

func appendField(kind ir.Kind, num int, v string) string {
	switch kind {
	case ir.KindString:
		return fmt.Sprintf("wire.AppendStringField(b, %d, %s)", num, v)
	case ir.KindBytes:
		return fmt.Sprintf("wire.AppendBytesField(b, %d, %s)", num, v)
	}
	switch fixedWidth(kind) {
	case 4:
		return fmt.Sprintf("wire.AppendFixed32Field(b, %d, %s)", num, fixedValue(kind, v))
	case 8:
		return fmt.Sprintf("wire.AppendFixed64Field(b, %d, %s)", num, fixedValue(kind, v))
	}
	return fmt.Sprintf("wire.AppendVarintField(b, %d, %s)", num, varintValue(kind, v))
}

func sizeField(kind ir.Kind, num int, v string) string {
	switch kind {
	case ir.KindString, ir.KindBytes:
		return fmt.Sprintf("wire.SizeBytesField(%d, len(%s))", num, v)
	}
	switch fixedWidth(kind) {
	case 4:
		return fmt.Sprintf("wire.SizeFixed32Field(%d)", num)
	case 8:
		return fmt.Sprintf("wire.SizeFixed64Field(%d)", num)
	}
	return fmt.Sprintf("wire.SizeVarintField(%d, %s)", num, varintValue(kind, v))
}

// appendValue appends an element of a packed field, without a tag.
func appendValue(kind ir.Kind, v string) string {
	switch fixedWidth(kind) {
	case 4:
		return fmt.Sprintf("wire.AppendFixed32(b, %s)", fixedValue(kind, v))
	case 8:
		return fmt.Sprintf("wire.AppendFixed64(b, %s)", fixedValue(kind, v))
	}
	return fmt.Sprintf("wire.AppendVarint(b, %s)", varintValue(kind, v))
}

func sizeValue(kind ir.Kind, v string) string {
	return fmt.Sprintf("wire.SizeVarint(%s)", varintValue(kind, v))
}

// nonZero is the condition under which a field with implicit presence is
// encoded. Floats compare by bits so -0 and NaN are kept.
func nonZero(kind ir.Kind, v string) string {
	switch kind {
	case ir.KindBool:
		return v
	case ir.KindFloat:
		return "math.Float32bits(" + v + ") != 0"
	case ir.KindDouble:
		return "math.Float64bits(" + v + ") != 0"
	case ir.KindString:
		return v + ` != ""`
	case ir.KindBytes:
		return "len(" + v + ") > 0"
	default:
		return v + " != 0"
	}
}

// readExpr reads one value of the kind from decoder d. elem is the Go type of
// the value, used to convert enums.
func readExpr(kind ir.Kind, d, elem string) string {
	switch kind {
	case ir.KindBool:
		return d + ".ReadVarint() != 0"
	case ir.KindInt32:
		return "int32(" + d + ".ReadVarint())"
	case ir.KindEnum:
		return elem + "(" + d + ".ReadVarint())"
	case ir.KindInt64:
		return "int64(" + d + ".ReadVarint())"
	case ir.KindUint32:
		return "uint32(" + d + ".ReadVarint())"
	case ir.KindUint64:
		return d + ".ReadVarint()"
	case ir.KindSint32:
		return "wire.DecodeZigZag32(" + d + ".ReadVarint())"
	case ir.KindSint64:
		return "wire.DecodeZigZag64(" + d + ".ReadVarint())"
	case ir.KindFixed32:
		return d + ".ReadFixed32()"
	case ir.KindSfixed32:
		return "int32(" + d + ".ReadFixed32())"
	case ir.KindFloat:
		return "math.Float32frombits(" + d + ".ReadFixed32())"
	case ir.KindFixed64:
		return d + ".ReadFixed64()"
	case ir.KindSfixed64:
		return "int64(" + d + ".ReadFixed64())"
	case ir.KindDouble:
		return "math.Float64frombits(" + d + ".ReadFixed64())"
	case ir.KindString:
		return d + ".ReadString()"
	case ir.KindBytes:
		return d + ".ReadBytes()"
	}
	return ""
}
