package dynamic

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/jptrs93/pbgen/internal/ir"
)

// ToMap renders the message as plain Go values keyed by field name, for
// formats such as YAML, JSON and CBOR. Unset fields are left out, enums are
// rendered by value name and map fields become maps keyed by the formatted
// key.
func (m *Message) ToMap() map[string]any {
	out := make(map[string]any)
	for _, f := range m.desc.AllFields() {
		if !m.Has(f.Name) {
			continue
		}
		out[f.Name] = m.export(f, m.values[f.Number])
	}
	return out
}

func (m *Message) export(f *ir.Field, v any) any {
	if !f.Repeated {
		return m.exportSingle(f, v)
	}
	list := v.([]any)
	if desc, err := m.reg.fieldMessage(f); err == nil && desc.MapEntry {
		keyField, valueField := desc.Fields[0], desc.Fields[1]
		out := make(map[string]any, len(list))
		for _, item := range list {
			e := item.(*Message)
			key, _ := e.Get(keyField.Name)
			val, _ := e.Get(valueField.Name)
			out[fmt.Sprint(key)] = e.exportSingle(valueField, val)
		}
		return out
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		out = append(out, m.exportSingle(f, item))
	}
	return out
}

func (m *Message) exportSingle(f *ir.Field, v any) any {
	switch f.TypeKind {
	case ir.TypeMessage:
		sub, _ := v.(*Message)
		if sub == nil {
			return map[string]any{}
		}
		return sub.ToMap()
	case ir.TypeEnum:
		n := v.(int32)
		if enum, ok := m.reg.Enum(f.FullType()); ok {
			for _, ev := range enum.Values {
				if ev.Number == n {
					return ev.Name
				}
			}
		}
		return n
	}
	return v
}

// FromMap sets fields from plain Go values as produced by ToMap or by a YAML,
// JSON or CBOR decoder. Bytes may be given as base64 strings.
func (m *Message) FromMap(values map[string]any) error {
	for _, name := range sortedKeys(values) {
		f, err := m.field(name)
		if err != nil {
			return err
		}
		if f.Oneof != nil {
			if other := m.WhichOneof(f.Oneof.Name); other != "" && other != name {
				return fmt.Errorf("%s: fields '%s' and '%s' of oneof '%s' are both set", m.desc.FullName(), other, name, f.Oneof.Name)
			}
		}
		if err := m.Set(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

func convertScalar(kind ir.Kind, v any) (any, error) {
	switch kind {
	case ir.KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(x)
		}
		return nil, fmt.Errorf("expected bool, got %T", v)
	case ir.KindInt32, ir.KindSint32, ir.KindSfixed32:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%d overflows %s", n, kind)
		}
		return int32(n), nil
	case ir.KindInt64, ir.KindSint64, ir.KindSfixed64:
		return toInt64(v)
	case ir.KindUint32, ir.KindFixed32:
		n, err := toUint64(v)
		if err != nil {
			return nil, err
		}
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("%d overflows %s", n, kind)
		}
		return uint32(n), nil
	case ir.KindUint64, ir.KindFixed64:
		return toUint64(v)
	case ir.KindFloat:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case ir.KindDouble:
		return toFloat64(v)
	case ir.KindString:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)
	case ir.KindBytes:
		switch x := v.(type) {
		case []byte:
			return append([]byte{}, x...), nil
		case string:
			b, err := base64.StdEncoding.DecodeString(x)
			if err != nil {
				return nil, fmt.Errorf("bytes must be base64: %w", err)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected bytes, got %T", v)
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case json.Number:
		return strconv.ParseInt(x.String(), 0, 64)
	case string:
		return strconv.ParseInt(x, 0, 64)
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is not an int64", f)
	}
	return int64(f), nil
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case float64:
		if x < 0 || x != math.Trunc(x) || x >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not a uint64", x)
		}
		return uint64(x), nil
	case json.Number:
		return strconv.ParseUint(x.String(), 0, 64)
	case string:
		return strconv.ParseUint(x, 0, 64)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return uint64(n), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	case uint64:
		return float64(x), nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return float64(n), nil
}

// asMap accepts the map shapes produced by the supported decoders: string
// keys from JSON and YAML, arbitrary keys from CBOR.
func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
