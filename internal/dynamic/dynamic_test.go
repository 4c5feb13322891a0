package dynamic

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/bufbuild/protocompile"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/jptrs93/pbgen/internal/compiler"
	"github.com/jptrs93/pbgen/wire"
)

const testSchema = `
syntax = "proto3";
package test;

enum Color {
  RED = 0;
  GREEN = 1;
  BLUE = 2;
}

message Person {
  string name = 1;
  int32 id = 2;
}

message Inner {
  int32 v = 1;
  string s = 2;
}

message Scalars {
  bool b = 1;
  int32 i32 = 2;
  int64 i64 = 3;
  uint32 u32 = 4;
  uint64 u64 = 5;
  sint32 s32 = 6;
  sint64 s64 = 7;
  fixed32 f32 = 8;
  fixed64 f64 = 9;
  sfixed32 sf32 = 10;
  sfixed64 sf64 = 11;
  float fl = 12;
  double db = 13;
  string str = 14;
  bytes bs = 15;
  Color color = 16;
}

message Lists {
  repeated int32 ints = 1;
  repeated sint64 zigzags = 2;
  repeated double doubles = 3;
  repeated int32 unpacked = 4 [packed = false];
  repeated string strs = 5;
  repeated Inner inners = 6;
  repeated Color colors = 7;
  repeated fixed32 fixeds = 8;
}

message Holder {
  Inner inner = 1;
  map<string, int32> counts = 2;
  map<int64, Inner> by_id = 3;
  optional int32 maybe = 4;
  oneof choice {
    string name = 5;
    Inner detail = 6;
    int32 code = 7;
  }
}
`

type schemas struct {
	reg *Registry
	ref protoreflect.FileDescriptor
}

func loadSchemas(t *testing.T) schemas {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/schema/test.proto", []byte(testSchema), 0o644))
	c := &compiler.Compiler{Fs: fs, ImportPaths: []string{"/schema"}}
	files, err := c.Compile(context.Background(), []string{"test.proto"})
	require.NoError(t, err)

	pc := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{"test.proto": testSchema}),
		},
	}
	linked, err := pc.Compile(context.Background(), "test.proto")
	require.NoError(t, err)
	return schemas{reg: NewRegistry(files...), ref: linked[0]}
}

// fromJSON builds the same message twice: with this package and with
// protobuf-go's dynamic messages.
func (s schemas) fromJSON(t *testing.T, typ, doc string) (*Message, *dynamicpb.Message) {
	t.Helper()
	md := s.ref.Messages().ByName(protoreflect.Name(typ))
	require.NotNil(t, md, typ)
	ref := dynamicpb.NewMessage(md)
	require.NoError(t, protojson.Unmarshal([]byte(doc), ref))

	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.UseNumber()
	var values map[string]any
	require.NoError(t, dec.Decode(&values))
	msg, err := s.reg.New("test." + typ)
	require.NoError(t, err)
	require.NoError(t, msg.FromMap(values))
	return msg, ref
}

func TestEncodeMatchesReference(t *testing.T) {
	s := loadSchemas(t)
	tests := []struct {
		name string
		typ  string
		doc  string
	}{
		{name: "person", typ: "Person", doc: `{"name": "Ann", "id": 7}`},
		{name: "empty", typ: "Scalars", doc: `{}`},
		{name: "zero values", typ: "Scalars", doc: `{"b": false, "i32": 0, "str": "", "color": "RED"}`},
		{name: "minimums", typ: "Scalars", doc: `{
			"i32": -2147483648, "i64": "-9223372036854775808", "s32": -2147483648,
			"s64": "-9223372036854775808", "sf32": -2147483648, "sf64": "-9223372036854775808"}`},
		{name: "maximums", typ: "Scalars", doc: `{
			"b": true, "i32": 2147483647, "i64": "9223372036854775807", "u32": 4294967295,
			"u64": "18446744073709551615", "s32": 2147483647, "s64": "9223372036854775807",
			"f32": 4294967295, "f64": "18446744073709551615", "sf32": 2147483647,
			"sf64": "9223372036854775807"}`},
		{name: "negative one", typ: "Scalars", doc: `{"i32": -1, "i64": "-1", "s32": -1, "s64": "-1", "sf32": -1, "sf64": "-1"}`},
		{name: "floats and text", typ: "Scalars", doc: `{
			"fl": 1.5, "db": -2.25, "str": "héllo", "bs": "AAEC/w==", "color": "BLUE"}`},
		{name: "packed lists", typ: "Lists", doc: `{
			"ints": [1, -1, 300], "zigzags": ["-1", "1", "-9223372036854775808"],
			"doubles": [0.5, 0], "colors": ["GREEN", "RED"], "fixeds": [1, 4294967295]}`},
		{name: "unpacked and strings", typ: "Lists", doc: `{
			"unpacked": [0, 5, -3], "strs": ["a", "", "c"], "inners": [{"v": 1}, {"s": "x"}]}`},
		{name: "sub message and maps", typ: "Holder", doc: `{
			"inner": {"v": 3, "s": "in"}, "counts": {"a": 1, "b": 2},
			"by_id": {"1": {"v": 10}, "2": {"s": "two"}}}`},
		{name: "optional zero", typ: "Holder", doc: `{"maybe": 0}`},
		{name: "oneof string", typ: "Holder", doc: `{"name": "n"}`},
		{name: "oneof zero", typ: "Holder", doc: `{"code": 0}`},
		{name: "oneof message", typ: "Holder", doc: `{"inner": {"v": 1}, "maybe": -4, "detail": {"v": 2}}`},
	}
	opts := proto.MarshalOptions{Deterministic: true}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, ref := s.fromJSON(t, tc.typ, tc.doc)
			want, err := opts.Marshal(ref)
			require.NoError(t, err)

			got := msg.Encode()
			assert.Equal(t, want, got)
			assert.Equal(t, len(want), msg.Size())

			decoded, err := s.reg.New("test." + tc.typ)
			require.NoError(t, err)
			require.NoError(t, decoded.Decode(want))
			assert.Equal(t, want, decoded.Encode())
		})
	}
}

func TestPersonBytes(t *testing.T) {
	s := loadSchemas(t)
	msg, _ := s.fromJSON(t, "Person", `{"name": "Ann", "id": 7}`)
	assert.Equal(t, []byte{0x0A, 0x03, 0x41, 0x6E, 0x6E, 0x10, 0x07}, msg.Encode())
}

func TestZigZagBytes(t *testing.T) {
	s := loadSchemas(t)
	msg, _ := s.fromJSON(t, "Scalars", `{"s32": -1}`)
	assert.Equal(t, []byte{0x30, 0x01}, msg.Encode())
	msg, _ = s.fromJSON(t, "Scalars", `{"s32": 1}`)
	assert.Equal(t, []byte{0x30, 0x02}, msg.Encode())
}

func TestNegativeZeroIsEncoded(t *testing.T) {
	s := loadSchemas(t)
	msg, err := s.reg.New("test.Scalars")
	require.NoError(t, err)
	require.NoError(t, msg.Set("db", math.Copysign(0, -1)))
	assert.True(t, msg.Has("db"))
	assert.Equal(t, []byte{0x69, 0, 0, 0, 0, 0, 0, 0, 0x80}, msg.Encode())

	require.NoError(t, msg.Set("db", 0.0))
	assert.False(t, msg.Has("db"))
	assert.Empty(t, msg.Encode())
}

func TestEmptyInlineMessageOmitted(t *testing.T) {
	s := loadSchemas(t)
	msg, err := s.reg.New("test.Holder")
	require.NoError(t, err)
	require.NoError(t, msg.Set("inner", map[string]any{}))
	assert.Empty(t, msg.Encode())

	require.NoError(t, msg.Set("detail", map[string]any{}))
	assert.Equal(t, []byte{0x32, 0x00}, msg.Encode())
}

func TestEncodeZeroValuesIsEmptyNotNil(t *testing.T) {
	s := loadSchemas(t)
	msg, err := s.reg.New("test.Scalars")
	require.NoError(t, err)
	assert.Equal(t, []byte{}, msg.Encode())

	for _, name := range []string{"i32", "str", "bs", "b", "db"} {
		v, err := msg.Get(name)
		require.NoError(t, err)
		require.NoError(t, msg.Set(name, v))
	}
	got := msg.Encode()
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, msg.Size())
}

func TestDecodeEmptyInput(t *testing.T) {
	s := loadSchemas(t)
	msg, err := s.reg.New("test.Scalars")
	require.NoError(t, err)
	require.NoError(t, msg.Decode(nil))
	assert.Empty(t, msg.ToMap())
	v, err := msg.Get("i64")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	s := loadSchemas(t)
	var b []byte
	b = wire.AppendStringField(b, 1, "Ann")
	b = wire.AppendFixed64Field(b, 99, 1)
	b = wire.AppendVarintField(b, 2, 7)
	b = wire.AppendStringField(b, 2, "wrong wire type")

	msg, err := s.reg.New("test.Person")
	require.NoError(t, err)
	require.NoError(t, msg.Decode(b))
	assert.Equal(t, map[string]any{"name": "Ann", "id": int32(7)}, msg.ToMap())
}

func TestDecodePackedAndUnpacked(t *testing.T) {
	s := loadSchemas(t)
	var b []byte
	b = wire.AppendVarintField(b, 1, 1)
	b = wire.AppendVarintField(b, 1, 2)
	packed := wire.AppendVarint(wire.AppendVarint(nil, 3), 4)
	b = wire.AppendLengthHeader(b, 4, len(packed))
	b = append(b, packed...)

	msg, err := s.reg.New("test.Lists")
	require.NoError(t, err)
	require.NoError(t, msg.Decode(b))
	ints, _ := msg.Get("ints")
	assert.Equal(t, []any{int32(1), int32(2)}, ints)
	unpacked, _ := msg.Get("unpacked")
	assert.Equal(t, []any{int32(3), int32(4)}, unpacked)
}

func TestDecodeMergesRepeatedSubMessage(t *testing.T) {
	s := loadSchemas(t)
	first := wire.AppendVarintField(nil, 1, 5)
	second := wire.AppendStringField(nil, 2, "x")
	var b []byte
	b = wire.AppendLengthHeader(b, 1, len(first))
	b = append(b, first...)
	b = wire.AppendLengthHeader(b, 1, len(second))
	b = append(b, second...)

	msg, err := s.reg.New("test.Holder")
	require.NoError(t, err)
	require.NoError(t, msg.Decode(b))
	assert.Equal(t, map[string]any{"inner": map[string]any{"v": int32(5), "s": "x"}}, msg.ToMap())
}

func TestDecodeMapLastWins(t *testing.T) {
	s := loadSchemas(t)
	entry := func(key string, value uint64) []byte {
		e := wire.AppendStringField(nil, 1, key)
		return wire.AppendVarintField(e, 2, value)
	}
	var b []byte
	for _, e := range [][]byte{entry("a", 1), entry("b", 2), entry("a", 3)} {
		b = wire.AppendLengthHeader(b, 2, len(e))
		b = append(b, e...)
	}

	msg, err := s.reg.New("test.Holder")
	require.NoError(t, err)
	require.NoError(t, msg.Decode(b))
	assert.Equal(t, map[string]any{"a": int32(3), "b": int32(2)}, msg.ToMap()["counts"])
	counts, _ := msg.Get("counts")
	assert.Len(t, counts, 2)
}

func TestDecodeOneofLastMemberWins(t *testing.T) {
	s := loadSchemas(t)
	var b []byte
	b = wire.AppendStringField(b, 5, "n")
	b = wire.AppendVarintField(b, 7, 9)

	msg, err := s.reg.New("test.Holder")
	require.NoError(t, err)
	require.NoError(t, msg.Decode(b))
	assert.Equal(t, "code", msg.WhichOneof("choice"))
	assert.False(t, msg.Has("name"))
}

func TestDecodeErrors(t *testing.T) {
	s := loadSchemas(t)
	msg, err := s.reg.New("test.Person")
	require.NoError(t, err)
	assert.ErrorIs(t, msg.Decode([]byte{0x0A, 0x05, 0x41}), wire.ErrTruncated)
	assert.ErrorIs(t, msg.Decode([]byte{0x10, 0x80}), wire.ErrTruncated)

	lists, err := s.reg.New("test.Lists")
	require.NoError(t, err)
	d := wire.NewDecoder([]byte{0x0A, 0x03, 0x01, 0x02, 0x03})
	d.SetLimit(2)
	lists.DecodeFrom(d)
	assert.ErrorIs(t, d.Err(), wire.ErrOutOfMemory)
}

func TestSetAndToMap(t *testing.T) {
	s := loadSchemas(t)
	msg, err := s.reg.New("test.Lists")
	require.NoError(t, err)
	require.NoError(t, msg.Set("colors", []string{"BLUE", "GREEN"}))
	require.NoError(t, msg.Set("ints", []int{1, 2}))
	assert.Equal(t, map[string]any{
		"colors": []any{"BLUE", "GREEN"},
		"ints":   []any{int32(1), int32(2)},
	}, msg.ToMap())

	assert.Error(t, msg.Set("colors", []string{"PURPLE"}))
	assert.Error(t, msg.Set("ints", []int64{math.MaxInt64}))
	assert.Error(t, msg.Set("missing", 1))
}

func TestFromMapRejectsTwoOneofMembers(t *testing.T) {
	s := loadSchemas(t)
	msg, err := s.reg.New("test.Holder")
	require.NoError(t, err)
	err = msg.FromMap(map[string]any{"name": "n", "code": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof 'choice'")
}

func TestSetOneofClearsOtherMembers(t *testing.T) {
	s := loadSchemas(t)
	msg, err := s.reg.New("test.Holder")
	require.NoError(t, err)
	require.NoError(t, msg.Set("name", "n"))
	require.NoError(t, msg.Set("code", 3))
	assert.Equal(t, "code", msg.WhichOneof("choice"))
	msg.Clear("code")
	assert.Empty(t, msg.WhichOneof("choice"))
}

func TestRegistryUnknownType(t *testing.T) {
	s := loadSchemas(t)
	_, err := s.reg.New("test.Nope")
	assert.EqualError(t, err, "unknown message type 'test.Nope'")
	_, ok := s.reg.Enum("test.Color")
	assert.True(t, ok)
}
