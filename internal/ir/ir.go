package ir

import (
	"fmt"
	"strings"
)

type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// File is one compiled proto file. Messages holds the dependency ordered
// top level messages once the compiler has finished with it.
type File struct {
	Path     string
	AbsPath  string
	Package  string
	Imports  []*Import
	Options  []Option
	Messages []*Message
	Enums    []*Enum
	Services []*Service
}

// BaseNamespace is [package], or empty when the file declares no package.
func (f *File) BaseNamespace() []string {
	if f.Package == "" {
		return nil
	}
	return []string{f.Package}
}

// TypeNames lists the top level enum and message names, enums first.
func (f *File) TypeNames() []string {
	var names []string
	for _, e := range f.Enums {
		names = append(names, e.Name)
	}
	for _, m := range f.Messages {
		names = append(names, m.Name)
	}
	return names
}

func (f *File) Option(name string) (Option, bool) {
	return findOption(f.Options, name)
}

// Import is an imported proto as seen by the importer: its package and the
// names of its top level types. Nested types are not exported.
type Import struct {
	Path     string
	AbsPath  string
	Package  string
	Public   bool
	Weak     bool
	Enums    []string
	Messages []string
	File     *File
	Pos      Position
}

func (i *Import) TypeNames() []string {
	names := append([]string(nil), i.Enums...)
	return append(names, i.Messages...)
}

func (i *Import) HasEnum(name string) bool {
	return contains(i.Enums, name)
}

func (i *Import) HasMessage(name string) bool {
	return contains(i.Messages, name)
}

type Option struct {
	Name  string
	Kind  OptionKind
	Value string
	Pos   Position
}

type OptionKind int

const (
	OptionString OptionKind = iota
	OptionInt
	OptionFloat
	OptionBool
	OptionIdent
	OptionAggregate
)

func (o Option) Bool() bool {
	return o.Kind == OptionBool && o.Value == "true"
}

type Enum struct {
	Name      string
	Values    []*EnumValue
	Namespace []string
	Options   []Option
	Pos       Position
}

func (e *Enum) FullName() string {
	return FullName(e.Namespace, e.Name)
}

type EnumValue struct {
	Name    string
	Number  int32
	Options []Option
	Pos     Position
}

type Message struct {
	Name      string
	Fields    []*Field
	Enums     []*Enum
	Messages  []*Message
	Oneofs    []*Oneof
	Namespace []string
	MapEntry  bool
	Reserved  []Reserved
	Options   []Option
	Pos       Position
}

func (m *Message) FullName() string {
	return FullName(m.Namespace, m.Name)
}

// Scope is the namespace seen by types declared inside the message.
func (m *Message) Scope() []string {
	scope := append([]string(nil), m.Namespace...)
	return append(scope, m.Name)
}

func (m *Message) TypeNames() []string {
	var names []string
	for _, e := range m.Enums {
		names = append(names, e.Name)
	}
	for _, sub := range m.Messages {
		names = append(names, sub.Name)
	}
	return names
}

// AllFields returns the plain fields followed by the fields of every oneof.
func (m *Message) AllFields() []*Field {
	fields := append([]*Field(nil), m.Fields...)
	for _, o := range m.Oneofs {
		fields = append(fields, o.Fields...)
	}
	return fields
}

// Field returns the plain or oneof field with the given name.
func (m *Message) Field(name string) (*Field, bool) {
	for _, f := range m.AllFields() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (m *Message) FieldByNumber(number int) (*Field, bool) {
	for _, f := range m.AllFields() {
		if f.Number == number {
			return f, true
		}
	}
	return nil, false
}

// InlineDeps lists the full names of messages embedded by value, directly or
// through nested messages. Repeated, pointer and oneof fields are excluded.
func (m *Message) InlineDeps() []string {
	var deps []string
	seen := make(map[string]bool)
	var walk func(msg *Message)
	walk = func(msg *Message) {
		for _, f := range msg.Fields {
			if !f.IsInline() {
				continue
			}
			name := f.FullType()
			if !seen[name] {
				seen[name] = true
				deps = append(deps, name)
			}
		}
		for _, sub := range msg.Messages {
			walk(sub)
		}
	}
	walk(m)
	return deps
}

type Reserved struct {
	Start int
	End   int
	Name  string
}

type Oneof struct {
	Name      string
	Fields    []*Field
	Namespace []string
	Options   []Option
	Pos       Position
}

func (o *Oneof) FullName() string {
	return FullName(o.Namespace, o.Name)
}

// Field is a message or oneof member. Type is the last segment of the type
// name as written and Qualifier the segments before it; a leading empty
// qualifier segment marks a fully qualified name such as .pkg.Msg.
type Field struct {
	Type      string
	Qualifier []string
	Name      string
	Number    int
	Repeated  bool
	Optional  bool
	Options   []Option
	Oneof     *Oneof

	// Set by the resolver.
	Namespace []string
	Package   string
	TypeKind  TypeKind
	Kind      Kind
	Origin    *File

	// Set by the compiler.
	Pointer bool

	Pos Position
}

// TypeName is the type name as written in the source.
func (f *Field) TypeName() string {
	return FullName(f.Qualifier, f.Type)
}

// FullType is the dotted path of the bound type, or the scalar keyword.
func (f *Field) FullType() string {
	if f.TypeKind == TypeScalar {
		return f.Type
	}
	return FullName(f.Namespace, f.Type)
}

// IsInline reports whether the field embeds a message by value.
func (f *Field) IsInline() bool {
	return f.TypeKind == TypeMessage && !f.Repeated && !f.Pointer && f.Oneof == nil
}

// IsPacked reports whether a repeated field uses the packed encoding.
func (f *Field) IsPacked() bool {
	if !f.Repeated || !f.Kind.Packable() {
		return false
	}
	if opt, ok := findOption(f.Options, "packed"); ok {
		return opt.Bool()
	}
	return true
}

func (f *Field) Option(name string) (Option, bool) {
	return findOption(f.Options, name)
}

type TypeKind int

const (
	TypeUnresolved TypeKind = iota
	TypeScalar
	TypeEnum
	TypeMessage
)

func (k TypeKind) String() string {
	switch k {
	case TypeScalar:
		return "scalar"
	case TypeEnum:
		return "enum"
	case TypeMessage:
		return "message"
	default:
		return "unresolved"
	}
}

type Service struct {
	Name    string
	Rpcs    []*Rpc
	Options []Option
	Pos     Position
}

type Rpc struct {
	Name             string
	RequestType      string
	RequestStream    bool
	ResponseType     string
	ResponseStream   bool
	Options          []Option
	RequestFullName  string
	ResponseFullName string
	Pos              Position
}

type Kind int

const (
	KindBool Kind = iota
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindSint32
	KindSint64
	KindFixed32
	KindFixed64
	KindSfixed32
	KindSfixed64
	KindFloat
	KindDouble
	KindString
	KindBytes
	KindMessage
	KindEnum
)

var scalarKinds = map[string]Kind{
	"bool":     KindBool,
	"int32":    KindInt32,
	"int64":    KindInt64,
	"uint32":   KindUint32,
	"uint64":   KindUint64,
	"sint32":   KindSint32,
	"sint64":   KindSint64,
	"fixed32":  KindFixed32,
	"fixed64":  KindFixed64,
	"sfixed32": KindSfixed32,
	"sfixed64": KindSfixed64,
	"float":    KindFloat,
	"double":   KindDouble,
	"string":   KindString,
	"bytes":    KindBytes,
}

// ScalarKind maps a scalar type keyword to its Kind.
func ScalarKind(name string) (Kind, bool) {
	k, ok := scalarKinds[name]
	return k, ok
}

func IsScalar(name string) bool {
	_, ok := scalarKinds[name]
	return ok
}

func (k Kind) String() string {
	for name, kind := range scalarKinds {
		if kind == k {
			return name
		}
	}
	switch k {
	case KindMessage:
		return "message"
	case KindEnum:
		return "enum"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Packable reports whether repeated values of the kind may be packed.
func (k Kind) Packable() bool {
	switch k {
	case KindString, KindBytes, KindMessage:
		return false
	default:
		return true
	}
}

// ValidMapKey reports whether the kind may be used as a map key.
func (k Kind) ValidMapKey() bool {
	switch k {
	case KindFloat, KindDouble, KindBytes, KindMessage, KindEnum:
		return false
	default:
		return true
	}
}

// FullName joins a namespace and a name with dots.
func FullName(namespace []string, name string) string {
	if len(namespace) == 0 {
		return name
	}
	return strings.Join(namespace, ".") + "." + name
}

func findOption(options []Option, name string) (Option, bool) {
	for _, o := range options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
