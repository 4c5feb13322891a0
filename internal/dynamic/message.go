package dynamic

import (
	"fmt"
	"math"
	"reflect"

	"github.com/jptrs93/pbgen/internal/ir"
)

// Message is a message value of a type known only at runtime. Field values
// use these Go types: bool, int32, int64, uint32, uint64, float32, float64,
// string, []byte, int32 for enums, *Message for messages and []any for
// repeated and map fields.
type Message struct {
	reg    *Registry
	desc   *ir.Message
	values map[int]any
}

func (m *Message) Descriptor() *ir.Message {
	return m.desc
}

func (m *Message) field(name string) (*ir.Field, error) {
	f, ok := m.desc.Field(name)
	if !ok {
		return nil, fmt.Errorf("message '%s' has no field '%s'", m.desc.FullName(), name)
	}
	return f, nil
}

// Has reports whether the field holds a value: a set oneof member, a set
// optional or message field, a non-empty repeated field or a scalar that
// would be encoded.
func (m *Message) Has(name string) bool {
	f, ok := m.desc.Field(name)
	if !ok {
		return false
	}
	v, ok := m.values[f.Number]
	if !ok {
		return false
	}
	if f.Repeated {
		return len(v.([]any)) > 0
	}
	if f.Oneof != nil || f.Optional || f.TypeKind == ir.TypeMessage {
		return true
	}
	return !isZero(v)
}

// Get returns the value of the field, or its zero value when unset. The zero
// value of a message field is nil.
func (m *Message) Get(name string) (any, error) {
	f, err := m.field(name)
	if err != nil {
		return nil, err
	}
	if v, ok := m.values[f.Number]; ok {
		return v, nil
	}
	return zeroValue(f), nil
}

// Set converts v to the field's type and stores it. Setting a oneof member
// clears the other members. Scalars accept any Go number or a numeric
// string, enums accept value names, messages accept *Message or a map.
func (m *Message) Set(name string, v any) error {
	f, err := m.field(name)
	if err != nil {
		return err
	}
	val, err := m.convert(f, v)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", m.desc.FullName(), f.Name, err)
	}
	m.set(f, val)
	return nil
}

// Clear removes the value of the field.
func (m *Message) Clear(name string) {
	if f, ok := m.desc.Field(name); ok {
		delete(m.values, f.Number)
	}
}

// WhichOneof returns the name of the set member of the oneof, or "".
func (m *Message) WhichOneof(name string) string {
	for _, o := range m.desc.Oneofs {
		if o.Name != name {
			continue
		}
		for _, f := range o.Fields {
			if _, ok := m.values[f.Number]; ok {
				return f.Name
			}
		}
	}
	return ""
}

func (m *Message) set(f *ir.Field, v any) {
	if f.Oneof != nil {
		for _, member := range f.Oneof.Fields {
			delete(m.values, member.Number)
		}
	}
	m.values[f.Number] = v
}

func (m *Message) convert(f *ir.Field, v any) (any, error) {
	if !f.Repeated {
		return m.convertSingle(f, v)
	}
	if desc, err := m.reg.fieldMessage(f); err == nil && desc.MapEntry {
		if _, isMap := asMap(v); isMap {
			return m.convertMap(desc, v)
		}
	}
	if v == nil {
		return []any{}, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := m.convertSingle(f, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, elem)
	}
	return out, nil
}

func (m *Message) convertSingle(f *ir.Field, v any) (any, error) {
	switch f.TypeKind {
	case ir.TypeMessage:
		desc, err := m.reg.fieldMessage(f)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case *Message:
			if x == nil {
				return x, nil
			}
			if x.desc.FullName() != desc.FullName() {
				return nil, fmt.Errorf("expected message '%s', got '%s'", desc.FullName(), x.desc.FullName())
			}
			return x, nil
		default:
			fields, ok := asMap(v)
			if !ok {
				return nil, fmt.Errorf("expected message '%s', got %T", desc.FullName(), v)
			}
			sub := m.reg.newMessage(desc)
			if err := sub.FromMap(fields); err != nil {
				return nil, err
			}
			return sub, nil
		}
	case ir.TypeEnum:
		return m.convertEnum(f, v)
	default:
		return convertScalar(f.Kind, v)
	}
}

func (m *Message) convertEnum(f *ir.Field, v any) (any, error) {
	if name, ok := v.(string); ok {
		if enum, found := m.reg.Enum(f.FullType()); found {
			for _, ev := range enum.Values {
				if ev.Name == name {
					return ev.Number, nil
				}
			}
		}
		if _, err := toInt64(name); err != nil {
			return nil, fmt.Errorf("'%s' is not a value of enum '%s'", name, f.FullType())
		}
	}
	n, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("enum value %d out of range", n)
	}
	return int32(n), nil
}

// convertMap turns a Go map into a list of map entry messages, ordered by
// formatted key so the result is deterministic.
func (m *Message) convertMap(entry *ir.Message, v any) (any, error) {
	keyField, valueField := entry.Fields[0], entry.Fields[1]
	pairs, _ := asMap(v)
	var out []any
	for _, k := range sortedKeys(pairs) {
		e := m.reg.newMessage(entry)
		key, err := convertScalar(keyField.Kind, k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		e.values[keyField.Number] = key
		val, err := e.convertSingle(valueField, pairs[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		e.values[valueField.Number] = val
		out = append(out, e)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func zeroValue(f *ir.Field) any {
	if f.Repeated {
		return []any{}
	}
	switch f.Kind {
	case ir.KindBool:
		return false
	case ir.KindInt32, ir.KindSint32, ir.KindSfixed32, ir.KindEnum:
		return int32(0)
	case ir.KindInt64, ir.KindSint64, ir.KindSfixed64:
		return int64(0)
	case ir.KindUint32, ir.KindFixed32:
		return uint32(0)
	case ir.KindUint64, ir.KindFixed64:
		return uint64(0)
	case ir.KindFloat:
		return float32(0)
	case ir.KindDouble:
		return float64(0)
	case ir.KindString:
		return ""
	case ir.KindBytes:
		return []byte(nil)
	default:
		return (*Message)(nil)
	}
}

// isZero reports whether a scalar is the proto3 default and so not encoded
// under implicit presence. Floats compare by bits: -0.0 and NaN are encoded.
func isZero(v any) bool {
	switch x := v.(type) {
	case bool:
		return !x
	case int32:
		return x == 0
	case int64:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	case float32:
		return math.Float32bits(x) == 0
	case float64:
		return math.Float64bits(x) == 0
	case string:
		return x == ""
	case []byte:
		return len(x) == 0
	}
	return false
}
