package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Decoder reads fields from an encoded message. The first error is sticky:
// once set every read returns a zero value and More reports false. Decoders
// returned by ReadMessage share the error and the allocation budget of their
// parent.
type Decoder struct {
	buf []byte
	st  *decodeState
}

type decodeState struct {
	err    error
	budget int64
	capped bool
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b, st: &decodeState{}}
}

// SetLimit caps the allocations made while decoding: one unit per byte of
// string or bytes data and one per element appended or message allocated.
// Exceeding it fails the decode with ErrOutOfMemory. A negative n removes the
// cap.
func (d *Decoder) SetLimit(n int) {
	d.st.budget = int64(n)
	d.st.capped = n >= 0
}

func (d *Decoder) Err() error {
	return d.st.err
}

// Fail records err unless an earlier error is already recorded.
func (d *Decoder) Fail(err error) {
	if d.st.err == nil {
		d.st.err = err
	}
	d.buf = nil
}

// More reports whether there is input left and no error has occurred.
func (d *Decoder) More() bool {
	return d.st.err == nil && len(d.buf) > 0
}

// Reserve charges n units against the allocation budget.
func (d *Decoder) Reserve(n int) bool {
	if d.st.err != nil {
		return false
	}
	if !d.st.capped {
		return true
	}
	if int64(n) > d.st.budget {
		d.Fail(ErrOutOfMemory)
		return false
	}
	d.st.budget -= int64(n)
	return true
}

func (d *Decoder) ReadTag() (Number, Type) {
	v := d.ReadVarint()
	if d.st.err != nil {
		return 0, 0
	}
	num, typ := protowire.DecodeTag(v)
	if num < protowire.MinValidNumber || num > protowire.MaxValidNumber || typ > protowire.Fixed32Type {
		d.Fail(ErrInvalidTag)
		return 0, 0
	}
	return num, typ
}

// Expect reports whether typ is the wire type want. A field of any other
// type is skipped.
func (d *Decoder) Expect(num Number, typ, want Type) bool {
	if typ == want {
		return true
	}
	d.Skip(num, typ)
	return false
}

// Skip discards the value of a field that has already had its tag read.
func (d *Decoder) Skip(num Number, typ Type) {
	if d.st.err != nil {
		return
	}
	n := protowire.ConsumeFieldValue(num, typ, d.buf)
	if n < 0 {
		d.Fail(parseError(n, ErrMalformed))
		return
	}
	d.buf = d.buf[n:]
}

func (d *Decoder) ReadVarint() uint64 {
	if d.st.err != nil {
		return 0
	}
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		d.Fail(parseError(n, ErrMalformedVarint))
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *Decoder) ReadFixed32() uint32 {
	if d.st.err != nil {
		return 0
	}
	v, n := protowire.ConsumeFixed32(d.buf)
	if n < 0 {
		d.Fail(parseError(n, ErrMalformed))
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *Decoder) ReadFixed64() uint64 {
	if d.st.err != nil {
		return 0
	}
	v, n := protowire.ConsumeFixed64(d.buf)
	if n < 0 {
		d.Fail(parseError(n, ErrMalformed))
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *Decoder) readRaw() []byte {
	if d.st.err != nil {
		return nil
	}
	v, n := protowire.ConsumeBytes(d.buf)
	if n < 0 {
		d.Fail(parseError(n, ErrMalformedVarint))
		return nil
	}
	d.buf = d.buf[n:]
	return v
}

func (d *Decoder) ReadString() string {
	raw := d.readRaw()
	if !d.Reserve(len(raw)) {
		return ""
	}
	return string(raw)
}

// ReadBytes returns a copy of a length-delimited value.
func (d *Decoder) ReadBytes() []byte {
	raw := d.readRaw()
	if !d.Reserve(len(raw)) {
		return nil
	}
	return append([]byte{}, raw...)
}

// ReadMessage returns a decoder over the payload of a length-delimited field.
func (d *Decoder) ReadMessage() *Decoder {
	return &Decoder{buf: d.readRaw(), st: d.st}
}

// ReadPacked returns a decoder over the elements of a packed repeated field.
func (d *Decoder) ReadPacked() *Decoder {
	return d.ReadMessage()
}

// Append appends v to s after charging one unit of the budget.
func Append[T any](d *Decoder, s []T, v T) []T {
	if !d.Reserve(1) {
		return s
	}
	return append(s, v)
}

// AppendEntry adds a decoded map entry. An entry whose key equals that of an
// earlier entry replaces it in place, so the last occurrence wins.
func AppendEntry[E any, K comparable](d *Decoder, s []E, e E, key func(E) K) []E {
	k := key(e)
	for i := range s {
		if key(s[i]) == k {
			s[i] = e
			return s
		}
	}
	return Append(d, s, e)
}
