// Package wire is the runtime used by generated codecs: protobuf wire format
// primitives for encoding and a Decoder for reading fields back.
package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

type (
	Number = protowire.Number
	Type   = protowire.Type
)

const (
	VarintType     = protowire.VarintType
	Fixed32Type    = protowire.Fixed32Type
	Fixed64Type    = protowire.Fixed64Type
	BytesType      = protowire.BytesType
	StartGroupType = protowire.StartGroupType
	EndGroupType   = protowire.EndGroupType
)

func AppendTag(b []byte, num Number, typ Type) []byte {
	return protowire.AppendTag(b, num, typ)
}

func AppendVarint(b []byte, v uint64) []byte {
	return protowire.AppendVarint(b, v)
}

// AppendFixed32 appends v little-endian.
func AppendFixed32(b []byte, v uint32) []byte {
	return protowire.AppendFixed32(b, v)
}

// AppendFixed64 appends v little-endian.
func AppendFixed64(b []byte, v uint64) []byte {
	return protowire.AppendFixed64(b, v)
}

func AppendVarintField(b []byte, num Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func AppendFixed32Field(b []byte, num Number, v uint32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, v)
}

func AppendFixed64Field(b []byte, num Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, v)
}

func AppendStringField(b []byte, num Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func AppendBytesField(b []byte, num Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendLengthHeader appends the tag and length prefix of a length-delimited
// field whose payload of size bytes follows: an embedded message, a map entry
// or a packed repeated field.
func AppendLengthHeader(b []byte, num Number, size int) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendVarint(b, uint64(size))
}

func SizeTag(num Number) int {
	return protowire.SizeTag(num)
}

func SizeVarint(v uint64) int {
	return protowire.SizeVarint(v)
}

func SizeVarintField(num Number, v uint64) int {
	return protowire.SizeTag(num) + protowire.SizeVarint(v)
}

func SizeFixed32Field(num Number) int {
	return protowire.SizeTag(num) + protowire.SizeFixed32()
}

func SizeFixed64Field(num Number) int {
	return protowire.SizeTag(num) + protowire.SizeFixed64()
}

// SizeBytesField is the size of a length-delimited field with an n byte
// payload.
func SizeBytesField(num Number, n int) int {
	return protowire.SizeTag(num) + protowire.SizeBytes(n)
}

// EncodeZigZag32 maps a sint32 onto the unsigned varint space: 0, -1, 1, -2
// become 0, 1, 2, 3.
func EncodeZigZag32(v int32) uint64 {
	return protowire.EncodeZigZag(int64(v))
}

func DecodeZigZag32(v uint64) int32 {
	return int32(protowire.DecodeZigZag(v & math.MaxUint32))
}

func EncodeZigZag64(v int64) uint64 {
	return protowire.EncodeZigZag(v)
}

func DecodeZigZag64(v uint64) int64 {
	return protowire.DecodeZigZag(v)
}

func EncodeBool(v bool) uint64 {
	return protowire.EncodeBool(v)
}
