package gogen

import (
	"fmt"
	"strings"

	"github.com/jptrs93/pbgen/internal/ir"
)

type goFileData struct {
	Source       string
	Package      string
	TypeImports  []string
	CodecImports []string
	Enums        []goEnum
	Messages     []goMessage
}

type goEnum struct {
	Name     string
	Proto    string
	Values   []goEnumValue
	Distinct []goEnumValue
}

type goEnumValue struct {
	Name   string
	Type   string
	Proto  string
	Number int32
}

type goMessage struct {
	Name        string
	Proto       string
	Fields      []goField
	Oneofs      []goOneof
	SizeLines   []string
	EncodeLines []string
	DecodeCases []goDecodeCase
}

type goField struct {
	Name string
	Type string
	Tag  string
}

type goOneof struct {
	Name    string
	Proto   string
	Choice  string
	Field   string
	Members []goOneofMember
}

type goOneofMember struct {
	Proto  string
	Holder string
	Choice string
	Const  string
	Name   string
	Type   string
	Number int
}

type goDecodeCase struct {
	Number int
	Lines  []string
}

type fieldCode struct {
	size   []string
	encode []string
	decode []string
}

var (
	messageMethods = map[string]bool{"Size": true, "Encode": true, "EncodeTo": true, "Decode": true, "DecodeFrom": true}
	oneofMethods   = map[string]bool{"Choice": true, "Clear": true}
)

type builder struct {
	pkg      string
	runtime  string
	noPrefix bool
	messages map[string]*ir.Message

	// declared maps package level Go identifiers to what declared them.
	declared map[string]string
}

func (b *builder) file(file *ir.File) (goFileData, error) {
	data := goFileData{Source: file.Path, Package: b.pkg}
	for _, e := range file.Enums {
		data.Enums = append(data.Enums, b.enum(file, e))
	}

	usesMath := false
	var walk func(msg *ir.Message) error
	walk = func(msg *ir.Message) error {
		for _, e := range msg.Enums {
			data.Enums = append(data.Enums, b.enum(file, e))
		}
		// Nested messages first so inline dependencies precede their users.
		for _, sub := range msg.Messages {
			if err := walk(sub); err != nil {
				return err
			}
		}
		m, err := b.message(file, msg)
		if err != nil {
			return fmt.Errorf("%s: message '%s': %w", file.Path, msg.FullName(), err)
		}
		data.Messages = append(data.Messages, m)
		for _, f := range msg.AllFields() {
			if f.Kind == ir.KindFloat || f.Kind == ir.KindDouble {
				usesMath = true
			}
		}
		return nil
	}
	for _, msg := range file.Messages {
		if err := walk(msg); err != nil {
			return goFileData{}, err
		}
	}
	if err := b.declare(data); err != nil {
		return goFileData{}, err
	}

	if len(data.Enums) > 0 {
		data.TypeImports = []string{`"strconv"`}
	}
	if len(data.Messages) > 0 {
		if usesMath {
			data.CodecImports = append(data.CodecImports, `"math"`)
		}
		data.CodecImports = append(data.CodecImports, importSpec(b.runtime))
	}
	return data, nil
}

func (b *builder) prefix(file *ir.File) string {
	if b.noPrefix {
		return ""
	}
	return ir.GoName(ir.SnakeCase(baseName(file.Path)))
}

// typeName is the Go name of an enum or message: the file prefix followed by
// the nesting path below the package.
func (b *builder) typeName(file *ir.File, namespace []string, name string) string {
	var sb strings.Builder
	if file != nil {
		sb.WriteString(b.prefix(file))
		namespace = namespace[min(len(file.BaseNamespace()), len(namespace)):]
	}
	for _, part := range namespace {
		sb.WriteString(ir.GoName(part))
	}
	sb.WriteString(ir.GoName(name))
	return sb.String()
}

// declare claims the package level identifiers of data. Nesting is
// flattened, so Foo.Bar and FooBar would both be named FooBar.
func (b *builder) declare(data goFileData) error {
	claim := func(ident, what string) error {
		if other, ok := b.declared[ident]; ok {
			return fmt.Errorf("%s and %s both generate the Go identifier %s", other, what, ident)
		}
		b.declared[ident] = what
		return nil
	}
	in := " in " + data.Source
	for _, e := range data.Enums {
		if err := claim(e.Name, "enum '"+e.Proto+"'"+in); err != nil {
			return err
		}
		for _, v := range e.Values {
			if err := claim(v.Name, "enum value '"+e.Proto+"."+v.Proto+"'"+in); err != nil {
				return err
			}
		}
	}
	for _, m := range data.Messages {
		what := "message '" + m.Proto + "'" + in
		if err := claim(m.Name, what); err != nil {
			return err
		}
		if err := claim("Decode"+m.Name, "the decode function of "+what); err != nil {
			return err
		}
		for _, o := range m.Oneofs {
			what := "oneof '" + m.Proto + "." + o.Proto + "'" + in
			for _, ident := range []string{o.Name, o.Choice, o.Choice + "None"} {
				if err := claim(ident, what); err != nil {
					return err
				}
			}
			for _, member := range o.Members {
				if err := claim(member.Const, "oneof member '"+m.Proto+"."+member.Proto+"'"+in); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func fieldName(name string, reserved map[string]bool) string {
	n := ir.GoName(name)
	if reserved[n] {
		n += "_"
	}
	return n
}

func (b *builder) enum(file *ir.File, e *ir.Enum) goEnum {
	name := b.typeName(file, e.Namespace, e.Name)
	out := goEnum{Name: name, Proto: e.FullName()}
	seen := make(map[int32]bool)
	for _, v := range e.Values {
		value := goEnumValue{
			Name:   name + ir.EnumValueGoName(v.Name),
			Type:   name,
			Proto:  v.Name,
			Number: v.Number,
		}
		out.Values = append(out.Values, value)
		if !seen[v.Number] {
			seen[v.Number] = true
			out.Distinct = append(out.Distinct, value)
		}
	}
	return out
}

func (b *builder) message(file *ir.File, msg *ir.Message) (goMessage, error) {
	name := b.typeName(file, msg.Namespace, msg.Name)
	out := goMessage{Name: name, Proto: msg.FullName()}
	fields := make(map[string]string)
	claim := func(goName, protoName string) error {
		if other, ok := fields[goName]; ok {
			return fmt.Errorf("'%s' and '%s' both generate the Go field %s", other, protoName, goName)
		}
		fields[goName] = protoName
		return nil
	}
	for _, f := range msg.Fields {
		typ, err := b.fieldType(f)
		if err != nil {
			return goMessage{}, err
		}
		goName := fieldName(f.Name, messageMethods)
		if err := claim(goName, f.Name); err != nil {
			return goMessage{}, err
		}
		out.Fields = append(out.Fields, goField{
			Name: goName,
			Type: typ,
			Tag:  fmt.Sprintf(`json:"%s,omitempty"`, f.Name),
		})
		code, err := b.field(f, "m."+goName)
		if err != nil {
			return goMessage{}, err
		}
		out.SizeLines = append(out.SizeLines, code.size...)
		out.EncodeLines = append(out.EncodeLines, code.encode...)
		out.DecodeCases = append(out.DecodeCases, goDecodeCase{Number: f.Number, Lines: code.decode})
	}
	for _, o := range msg.Oneofs {
		oneof, code, cases, err := b.oneof(name, o)
		if err != nil {
			return goMessage{}, err
		}
		if err := claim(oneof.Field, o.Name); err != nil {
			return goMessage{}, err
		}
		out.Oneofs = append(out.Oneofs, oneof)
		out.SizeLines = append(out.SizeLines, code.size...)
		out.EncodeLines = append(out.EncodeLines, code.encode...)
		out.DecodeCases = append(out.DecodeCases, cases...)
	}
	return out, nil
}

func (b *builder) elemType(f *ir.Field) (string, error) {
	switch f.TypeKind {
	case ir.TypeScalar:
		return goScalarType(f.Kind)
	case ir.TypeEnum, ir.TypeMessage:
		if f.Origin == nil {
			return "", fmt.Errorf("field '%s': no source file for type '%s'", f.Name, f.FullType())
		}
		return b.typeName(f.Origin, f.Namespace, f.Type), nil
	}
	return "", fmt.Errorf("field '%s' is not resolved", f.Name)
}

func (b *builder) fieldType(f *ir.Field) (string, error) {
	elem, err := b.elemType(f)
	if err != nil {
		return "", err
	}
	switch {
	case f.Repeated:
		return "[]" + elem, nil
	case f.TypeKind == ir.TypeMessage && f.Pointer:
		return "*" + elem, nil
	case f.TypeKind != ir.TypeMessage && f.Optional:
		return "*" + elem, nil
	}
	return elem, nil
}

func (b *builder) field(f *ir.Field, name string) (fieldCode, error) {
	elem, err := b.elemType(f)
	if err != nil {
		return fieldCode{}, err
	}
	num := f.Number
	var c fieldCode
	switch {
	case f.Repeated && f.TypeKind == ir.TypeMessage:
		c.size = []string{
			fmt.Sprintf("for i := range %s {", name),
			fmt.Sprintf("n += wire.SizeBytesField(%d, %s[i].Size())", num, name),
			"}",
		}
		c.encode = []string{
			fmt.Sprintf("for i := range %s {", name),
			fmt.Sprintf("b = wire.AppendLengthHeader(b, %d, %s[i].Size())", num, name),
			fmt.Sprintf("b = %s[i].appendTo(b)", name),
			"}",
		}
		appendLine := fmt.Sprintf("%s = wire.Append(d, %s, v)", name, name)
		if entry := b.messages[f.FullType()]; entry != nil && entry.MapEntry {
			keyType, err := goScalarType(entry.Fields[0].Kind)
			if err != nil {
				return fieldCode{}, err
			}
			appendLine = fmt.Sprintf("%s = wire.AppendEntry(d, %s, v, func(e %s) %s { return e.Key })", name, name, elem, keyType)
		}
		c.decode = []string{
			"if d.Expect(num, typ, wire.BytesType) {",
			fmt.Sprintf("var v %s", elem),
			"v.DecodeFrom(d.ReadMessage())",
			appendLine,
			"}",
		}
	case f.Repeated:
		c.size, c.encode = repeatedScalar(f, name)
		c.decode = repeatedScalarDecode(f, name, elem)
	case f.TypeKind == ir.TypeMessage && f.Pointer:
		c.size = []string{
			fmt.Sprintf("if %s != nil {", name),
			fmt.Sprintf("n += wire.SizeBytesField(%d, %s.Size())", num, name),
			"}",
		}
		c.encode = []string{
			fmt.Sprintf("if %s != nil {", name),
			fmt.Sprintf("b = wire.AppendLengthHeader(b, %d, %s.Size())", num, name),
			fmt.Sprintf("b = %s.appendTo(b)", name),
			"}",
		}
		c.decode = []string{
			fmt.Sprintf("if d.Expect(num, typ, wire.BytesType) && (%s != nil || d.Reserve(1)) {", name),
			fmt.Sprintf("if %s == nil {", name),
			fmt.Sprintf("%s = &%s{}", name, elem),
			"}",
			fmt.Sprintf("%s.DecodeFrom(d.ReadMessage())", name),
			"}",
		}
	case f.TypeKind == ir.TypeMessage:
		c.size = []string{
			fmt.Sprintf("if s := %s.Size(); s > 0 {", name),
			fmt.Sprintf("n += wire.SizeBytesField(%d, s)", num),
			"}",
		}
		c.encode = []string{
			fmt.Sprintf("if s := %s.Size(); s > 0 {", name),
			fmt.Sprintf("b = wire.AppendLengthHeader(b, %d, s)", num),
			fmt.Sprintf("b = %s.appendTo(b)", name),
			"}",
		}
		c.decode = []string{
			"if d.Expect(num, typ, wire.BytesType) {",
			fmt.Sprintf("%s.DecodeFrom(d.ReadMessage())", name),
			"}",
		}
	case f.Optional:
		c.size = []string{
			fmt.Sprintf("if %s != nil {", name),
			"n += " + sizeField(f.Kind, num, "*"+name),
			"}",
		}
		c.encode = []string{
			fmt.Sprintf("if %s != nil {", name),
			"b = " + appendField(f.Kind, num, "*"+name),
			"}",
		}
		c.decode = []string{
			fmt.Sprintf("if d.Expect(num, typ, %s) {", wireType(f.Kind)),
			"v := " + readExpr(f.Kind, "d", elem),
			fmt.Sprintf("%s = &v", name),
			"}",
		}
	default:
		c.size = []string{
			fmt.Sprintf("if %s {", nonZero(f.Kind, name)),
			"n += " + sizeField(f.Kind, num, name),
			"}",
		}
		c.encode = []string{
			fmt.Sprintf("if %s {", nonZero(f.Kind, name)),
			"b = " + appendField(f.Kind, num, name),
			"}",
		}
		c.decode = []string{
			fmt.Sprintf("if d.Expect(num, typ, %s) {", wireType(f.Kind)),
			fmt.Sprintf("%s = %s", name, readExpr(f.Kind, "d", elem)),
			"}",
		}
	}
	return c, nil
}

func repeatedScalar(f *ir.Field, name string) (size, encode []string) {
	num := f.Number
	if f.IsPacked() {
		var payload []string
		if w := fixedWidth(f.Kind); w > 0 {
			payload = []string{fmt.Sprintf("s := %d * len(%s)", w, name)}
		} else {
			payload = []string{
				"s := 0",
				fmt.Sprintf("for _, v := range %s {", name),
				"s += " + sizeValue(f.Kind, "v"),
				"}",
			}
		}
		size = []string{fmt.Sprintf("if len(%s) > 0 {", name)}
		size = append(size, payload...)
		size = append(size, fmt.Sprintf("n += wire.SizeBytesField(%d, s)", num), "}")

		encode = []string{fmt.Sprintf("if len(%s) > 0 {", name)}
		encode = append(encode, payload...)
		encode = append(encode,
			fmt.Sprintf("b = wire.AppendLengthHeader(b, %d, s)", num),
			fmt.Sprintf("for _, v := range %s {", name),
			"b = "+appendValue(f.Kind, "v"),
			"}",
			"}",
		)
		return size, encode
	}
	if fixedWidth(f.Kind) > 0 {
		size = []string{fmt.Sprintf("n += len(%s) * %s", name, sizeField(f.Kind, num, ""))}
	} else {
		size = []string{
			fmt.Sprintf("for _, v := range %s {", name),
			"n += " + sizeField(f.Kind, num, "v"),
			"}",
		}
	}
	encode = []string{
		fmt.Sprintf("for _, v := range %s {", name),
		"b = " + appendField(f.Kind, num, "v"),
		"}",
	}
	return size, encode
}

// repeatedScalarDecode accepts both the packed and the unpacked form of
// packable kinds.
func repeatedScalarDecode(f *ir.Field, name, elem string) []string {
	if !f.Kind.Packable() {
		return []string{
			fmt.Sprintf("if d.Expect(num, typ, %s) {", wireType(f.Kind)),
			fmt.Sprintf("%s = wire.Append(d, %s, %s)", name, name, readExpr(f.Kind, "d", elem)),
			"}",
		}
	}
	return []string{
		"if typ == wire.BytesType {",
		"p := d.ReadPacked()",
		"for p.More() {",
		fmt.Sprintf("%s = wire.Append(d, %s, %s)", name, name, readExpr(f.Kind, "p", elem)),
		"}",
		fmt.Sprintf("} else if d.Expect(num, typ, %s) {", wireType(f.Kind)),
		fmt.Sprintf("%s = wire.Append(d, %s, %s)", name, name, readExpr(f.Kind, "d", elem)),
		"}",
	}
}

func (b *builder) oneof(msgName string, o *ir.Oneof) (goOneof, fieldCode, []goDecodeCase, error) {
	holder := msgName + ir.GoName(o.Name) + "Oneof"
	choice := msgName + ir.GoName(o.Name) + "Choice"
	out := goOneof{Name: holder, Proto: o.Name, Choice: choice, Field: fieldName(o.Name, messageMethods)}
	ref := "m." + out.Field

	c := fieldCode{
		size:   []string{fmt.Sprintf("switch %s.choice {", ref)},
		encode: []string{fmt.Sprintf("switch %s.choice {", ref)},
	}
	var cases []goDecodeCase
	for _, f := range o.Fields {
		elem, err := b.elemType(f)
		if err != nil {
			return goOneof{}, fieldCode{}, nil, err
		}
		typ := elem
		if f.TypeKind == ir.TypeMessage {
			typ = "*" + elem
		}
		member := goOneofMember{
			Proto:  f.Name,
			Holder: holder,
			Choice: choice,
			Const:  choice + ir.GoName(f.Name),
			Name:   fieldName(f.Name, oneofMethods),
			Type:   typ,
			Number: f.Number,
		}
		out.Members = append(out.Members, member)

		value := fmt.Sprintf("%s.value.(%s)", ref, typ)
		c.size = append(c.size, fmt.Sprintf("case %s:", member.Const))
		c.encode = append(c.encode, fmt.Sprintf("case %s:", member.Const))
		var decode []string
		if f.TypeKind == ir.TypeMessage {
			c.size = append(c.size,
				fmt.Sprintf("if v, _ := %s; v != nil {", value),
				fmt.Sprintf("n += wire.SizeBytesField(%d, v.Size())", f.Number),
				"}",
			)
			c.encode = append(c.encode,
				fmt.Sprintf("if v, _ := %s; v != nil {", value),
				fmt.Sprintf("b = wire.AppendLengthHeader(b, %d, v.Size())", f.Number),
				"b = v.appendTo(b)",
				"}",
			)
			decode = []string{
				"if d.Expect(num, typ, wire.BytesType) {",
				fmt.Sprintf("v, _ := %s.%s()", ref, member.Name),
				"if v == nil {",
				fmt.Sprintf("v = &%s{}", elem),
				"}",
				"v.DecodeFrom(d.ReadMessage())",
				fmt.Sprintf("%s.Set%s(v)", ref, member.Name),
				"}",
			}
		} else {
			c.size = append(c.size, "n += "+sizeField(f.Kind, f.Number, value))
			c.encode = append(c.encode, "b = "+appendField(f.Kind, f.Number, value))
			decode = []string{
				fmt.Sprintf("if d.Expect(num, typ, %s) {", wireType(f.Kind)),
				fmt.Sprintf("%s.Set%s(%s)", ref, member.Name, readExpr(f.Kind, "d", elem)),
				"}",
			}
		}
		cases = append(cases, goDecodeCase{Number: f.Number, Lines: decode})
	}
	c.size = append(c.size, "}")
	c.encode = append(c.encode, "}")
	return out, c, cases, nil
}
