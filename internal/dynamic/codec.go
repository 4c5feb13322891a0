package dynamic

import (
	"math"

	"github.com/jptrs93/pbgen/internal/ir"
	"github.com/jptrs93/pbgen/wire"
)

// Encode returns the wire encoding: plain fields in declaration order, then
// oneof members. Scalars at their zero value are left out unless they are
// optional or oneof members; inline sub-messages that encode to nothing are
// left out too.
func (m *Message) Encode() []byte {
	return m.appendTo(make([]byte, 0, m.Size()))
}

func (m *Message) appendTo(b []byte) []byte {
	for _, f := range m.desc.AllFields() {
		v, ok := m.values[f.Number]
		if !ok {
			continue
		}
		b = appendField(b, f, v)
	}
	return b
}

func appendField(b []byte, f *ir.Field, v any) []byte {
	num := wire.Number(f.Number)
	switch {
	case f.Repeated:
		list := v.([]any)
		if len(list) == 0 {
			return b
		}
		if f.IsPacked() {
			var payload []byte
			for _, item := range list {
				payload = appendValue(payload, f.Kind, item)
			}
			b = wire.AppendLengthHeader(b, num, len(payload))
			return append(b, payload...)
		}
		for _, item := range list {
			b = appendSingle(b, f, item)
		}
		return b
	case f.TypeKind == ir.TypeMessage:
		sub, _ := v.(*Message)
		if sub == nil {
			return b
		}
		if f.IsInline() && len(sub.Encode()) == 0 {
			return b
		}
		return appendSingle(b, f, sub)
	case f.Oneof != nil, f.Optional:
		return appendSingle(b, f, v)
	default:
		if isZero(v) {
			return b
		}
		return appendSingle(b, f, v)
	}
}

func appendSingle(b []byte, f *ir.Field, v any) []byte {
	num := wire.Number(f.Number)
	switch f.Kind {
	case ir.KindMessage:
		var payload []byte
		if sub, _ := v.(*Message); sub != nil {
			payload = sub.Encode()
		}
		b = wire.AppendLengthHeader(b, num, len(payload))
		return append(b, payload...)
	case ir.KindString:
		return wire.AppendStringField(b, num, v.(string))
	case ir.KindBytes:
		return wire.AppendBytesField(b, num, v.([]byte))
	}
	b = wire.AppendTag(b, num, wireType(f.Kind))
	return appendValue(b, f.Kind, v)
}

// appendValue appends a scalar without a tag, as inside a packed field.
func appendValue(b []byte, kind ir.Kind, v any) []byte {
	switch kind {
	case ir.KindBool:
		return wire.AppendVarint(b, wire.EncodeBool(v.(bool)))
	case ir.KindInt32, ir.KindEnum:
		return wire.AppendVarint(b, uint64(v.(int32)))
	case ir.KindInt64:
		return wire.AppendVarint(b, uint64(v.(int64)))
	case ir.KindUint32:
		return wire.AppendVarint(b, uint64(v.(uint32)))
	case ir.KindUint64:
		return wire.AppendVarint(b, v.(uint64))
	case ir.KindSint32:
		return wire.AppendVarint(b, wire.EncodeZigZag32(v.(int32)))
	case ir.KindSint64:
		return wire.AppendVarint(b, wire.EncodeZigZag64(v.(int64)))
	case ir.KindFixed32:
		return wire.AppendFixed32(b, v.(uint32))
	case ir.KindSfixed32:
		return wire.AppendFixed32(b, uint32(v.(int32)))
	case ir.KindFloat:
		return wire.AppendFixed32(b, math.Float32bits(v.(float32)))
	case ir.KindFixed64:
		return wire.AppendFixed64(b, v.(uint64))
	case ir.KindSfixed64:
		return wire.AppendFixed64(b, uint64(v.(int64)))
	case ir.KindDouble:
		return wire.AppendFixed64(b, math.Float64bits(v.(float64)))
	}
	return b
}

func wireType(kind ir.Kind) wire.Type {
	switch kind {
	case ir.KindFixed32, ir.KindSfixed32, ir.KindFloat:
		return wire.Fixed32Type
	case ir.KindFixed64, ir.KindSfixed64, ir.KindDouble:
		return wire.Fixed64Type
	case ir.KindString, ir.KindBytes, ir.KindMessage:
		return wire.BytesType
	default:
		return wire.VarintType
	}
}

// Decode replaces the contents of m with the decoded payload.
func (m *Message) Decode(b []byte) error {
	m.values = make(map[int]any)
	d := wire.NewDecoder(b)
	m.DecodeFrom(d)
	return d.Err()
}

// DecodeFrom merges the fields read from d into m. Unknown fields and fields
// with an unexpected wire type are skipped. A repeated sub-message field is
// merged into the existing value; a later map entry replaces an earlier entry
// with the same key.
func (m *Message) DecodeFrom(d *wire.Decoder) {
	for d.More() {
		num, typ := d.ReadTag()
		if d.Err() != nil {
			return
		}
		f, ok := m.desc.FieldByNumber(int(num))
		if !ok {
			d.Skip(num, typ)
			continue
		}
		m.decodeField(d, f, num, typ)
	}
}

func (m *Message) decodeField(d *wire.Decoder, f *ir.Field, num wire.Number, typ wire.Type) {
	if f.Repeated && f.Kind.Packable() && typ == wire.BytesType {
		packed := d.ReadPacked()
		list, _ := m.values[f.Number].([]any)
		for packed.More() {
			v := readValue(packed, f.Kind)
			if d.Err() != nil {
				return
			}
			list = wire.Append(d, list, v)
		}
		m.values[f.Number] = list
		return
	}
	if !d.Expect(num, typ, wireType(f.Kind)) {
		return
	}
	if f.Kind == ir.KindMessage {
		m.decodeMessage(d, f)
		return
	}
	v := readValue(d, f.Kind)
	if d.Err() != nil {
		return
	}
	if f.Repeated {
		list, _ := m.values[f.Number].([]any)
		m.values[f.Number] = wire.Append(d, list, v)
		return
	}
	m.set(f, v)
}

func (m *Message) decodeMessage(d *wire.Decoder, f *ir.Field) {
	desc, err := m.reg.fieldMessage(f)
	if err != nil {
		d.Fail(err)
		return
	}
	payload := d.ReadMessage()
	if f.Repeated {
		if !d.Reserve(1) {
			return
		}
		item := m.reg.newMessage(desc)
		item.DecodeFrom(payload)
		list, _ := m.values[f.Number].([]any)
		if desc.MapEntry {
			key := desc.Fields[0]
			m.values[f.Number] = wire.AppendEntry(d, list, any(item), func(e any) any {
				k, _ := e.(*Message).Get(key.Name)
				return k
			})
			return
		}
		m.values[f.Number] = wire.Append(d, list, any(item))
		return
	}
	sub, _ := m.values[f.Number].(*Message)
	if sub == nil {
		if !d.Reserve(1) {
			return
		}
		sub = m.reg.newMessage(desc)
	}
	sub.DecodeFrom(payload)
	m.set(f, sub)
}

func readValue(d *wire.Decoder, kind ir.Kind) any {
	switch kind {
	case ir.KindBool:
		return d.ReadVarint() != 0
	case ir.KindInt32, ir.KindEnum:
		return int32(d.ReadVarint())
	case ir.KindInt64:
		return int64(d.ReadVarint())
	case ir.KindUint32:
		return uint32(d.ReadVarint())
	case ir.KindUint64:
		return d.ReadVarint()
	case ir.KindSint32:
		return wire.DecodeZigZag32(d.ReadVarint())
	case ir.KindSint64:
		return wire.DecodeZigZag64(d.ReadVarint())
	case ir.KindFixed32:
		return d.ReadFixed32()
	case ir.KindSfixed32:
		return int32(d.ReadFixed32())
	case ir.KindFloat:
		return math.Float32frombits(d.ReadFixed32())
	case ir.KindFixed64:
		return d.ReadFixed64()
	case ir.KindSfixed64:
		return int64(d.ReadFixed64())
	case ir.KindDouble:
		return math.Float64frombits(d.ReadFixed64())
	case ir.KindString:
		return d.ReadString()
	case ir.KindBytes:
		return d.ReadBytes()
	}
	return nil
}

// Size returns the length of the wire encoding.
func (m *Message) Size() int {
	return len(m.Encode())
}
