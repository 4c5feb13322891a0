package wire

import (
	"io/fs"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonBytes(t *testing.T) {
	var b []byte
	b = AppendStringField(b, 1, "Ann")
	b = AppendVarintField(b, 2, uint64(int32(7)))
	assert.Equal(t, []byte{0x0A, 0x03, 0x41, 0x6E, 0x6E, 0x10, 0x07}, b)
	assert.Equal(t, len(b), SizeBytesField(1, 3)+SizeVarintField(2, 7))

	d := NewDecoder(b)
	var name string
	var id int32
	for d.More() {
		num, typ := d.ReadTag()
		switch num {
		case 1:
			if d.Expect(num, typ, BytesType) {
				name = d.ReadString()
			}
		case 2:
			if d.Expect(num, typ, VarintType) {
				id = int32(d.ReadVarint())
			}
		default:
			d.Skip(num, typ)
		}
	}
	require.NoError(t, d.Err())
	assert.Equal(t, "Ann", name)
	assert.Equal(t, int32(7), id)
}

func TestZigZag(t *testing.T) {
	assert.Equal(t, []byte{0x01}, AppendVarint(nil, EncodeZigZag32(-1)))
	assert.Equal(t, []byte{0x02}, AppendVarint(nil, EncodeZigZag32(1)))
	assert.Equal(t, uint64(0), EncodeZigZag32(0))
	assert.Equal(t, uint64(math.MaxUint32), EncodeZigZag32(math.MinInt32))
	assert.Equal(t, uint64(math.MaxUint32-1), EncodeZigZag32(math.MaxInt32))
	assert.Equal(t, uint64(math.MaxUint64), EncodeZigZag64(math.MinInt64))

	for _, v := range []int32{0, -1, 1, math.MinInt32, math.MaxInt32, 123456} {
		assert.Equal(t, v, DecodeZigZag32(EncodeZigZag32(v)))
	}
	for _, v := range []int64{0, -1, 1, math.MinInt64, math.MaxInt64, -987654321} {
		assert.Equal(t, v, DecodeZigZag64(EncodeZigZag64(v)))
	}
}

func TestNegativeInt32UsesTenBytes(t *testing.T) {
	var v int32 = -1
	b := AppendVarint(nil, uint64(v))
	assert.Len(t, b, 10)
	assert.Equal(t, 11, SizeVarintField(1, uint64(v)))

	d := NewDecoder(b)
	assert.Equal(t, int32(-1), int32(d.ReadVarint()))
	require.NoError(t, d.Err())
}

func TestFixedLittleEndian(t *testing.T) {
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, AppendFixed32(nil, 0x01020304))
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, AppendFixed64(nil, 0x0102030405060708))
	assert.Equal(t, []byte{0x0D, 0x00, 0x00, 0x80, 0x3F}, AppendFixed32Field(nil, 1, math.Float32bits(1)))
	assert.Equal(t, 9, SizeFixed64Field(1))
	assert.Equal(t, 5, SizeFixed32Field(15))
	assert.Equal(t, 6, SizeFixed32Field(16))
}

func TestDecoderErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{name: "truncated varint", in: []byte{0x08, 0x80}, want: ErrTruncated},
		{name: "overlong varint", in: []byte{0x08, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}, want: ErrMalformedVarint},
		{name: "truncated bytes", in: []byte{0x0A, 0x05, 0x41}, want: ErrTruncated},
		{name: "truncated fixed", in: []byte{0x0D, 0x01, 0x02}, want: ErrTruncated},
		{name: "field zero", in: []byte{0x00, 0x01}, want: ErrInvalidTag},
		{name: "reserved wire type", in: []byte{0x0E}, want: ErrInvalidTag},
		{name: "truncated skip", in: []byte{0x1A, 0x04, 0x00}, want: ErrTruncated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDecoder(tc.in)
			for d.More() {
				num, typ := d.ReadTag()
				switch num {
				case 1:
					switch typ {
					case VarintType:
						d.ReadVarint()
					case BytesType:
						d.ReadBytes()
					case Fixed32Type:
						d.ReadFixed32()
					default:
						d.Skip(num, typ)
					}
				default:
					d.Skip(num, typ)
				}
			}
			assert.ErrorIs(t, d.Err(), tc.want)
			assert.False(t, d.More())
		})
	}
}

func TestDecoderSkipsUnknownAndMismatched(t *testing.T) {
	var b []byte
	b = AppendFixed64Field(b, 9, 42)
	b = AppendStringField(b, 1, "wrong type for field 2")
	b = AppendVarintField(b, 2, 5)
	b = AppendBytesField(b, 2, []byte("mismatch"))
	b = AppendFixed32Field(b, 10, 1)

	d := NewDecoder(b)
	var got []uint64
	for d.More() {
		num, typ := d.ReadTag()
		switch num {
		case 2:
			if d.Expect(num, typ, VarintType) {
				got = append(got, d.ReadVarint())
			}
		default:
			d.Skip(num, typ)
		}
	}
	require.NoError(t, d.Err())
	assert.Equal(t, []uint64{5}, got)
}

func TestDecoderSubMessageSharesState(t *testing.T) {
	inner := AppendStringField(nil, 1, "abcdef")
	b := AppendLengthHeader(nil, 3, len(inner))
	b = append(b, inner...)

	d := NewDecoder(b)
	d.SetLimit(3)
	num, typ := d.ReadTag()
	require.Equal(t, Number(3), num)
	require.Equal(t, BytesType, typ)
	sub := d.ReadMessage()
	sub.ReadTag()
	assert.Empty(t, sub.ReadString())
	assert.ErrorIs(t, d.Err(), ErrOutOfMemory)
	assert.False(t, d.More())
}

func TestDecoderBudget(t *testing.T) {
	d := NewDecoder(nil)
	d.SetLimit(2)
	var s []int
	s = Append(d, s, 1)
	s = Append(d, s, 2)
	s = Append(d, s, 3)
	assert.Equal(t, []int{1, 2}, s)
	assert.ErrorIs(t, d.Err(), ErrOutOfMemory)

	d = NewDecoder(nil)
	for i := 0; i < 1000; i++ {
		s = Append(d, s, i)
	}
	assert.NoError(t, d.Err())
}

func TestAppendEntryLastWins(t *testing.T) {
	type entry struct {
		key   string
		value int
	}
	key := func(e entry) string { return e.key }
	d := NewDecoder(nil)
	var s []entry
	s = AppendEntry(d, s, entry{"a", 1}, key)
	s = AppendEntry(d, s, entry{"b", 2}, key)
	s = AppendEntry(d, s, entry{"a", 3}, key)
	assert.Equal(t, []entry{{"a", 3}, {"b", 2}}, s)
}

func TestReadBytesCopies(t *testing.T) {
	b := AppendBytesField(nil, 1, []byte{1, 2, 3})
	d := NewDecoder(b)
	d.ReadTag()
	got := d.ReadBytes()
	b[2] = 9
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestSourceEmbedded(t *testing.T) {
	names, err := fs.Glob(Source, "*.go")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"wire.go", "decoder.go", "errors.go"}, names)
}
