package parser

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/jptrs93/pbgen/internal/ir"
)

const (
	maxFieldNumber      = 1<<29 - 1
	firstReservedNumber = 19000
	lastReservedNumber  = 19999
)

type builder struct {
	filename string
}

func (b *builder) pos(p lexer.Position) ir.Position {
	return ir.Position{Filename: b.filename, Line: p.Line, Column: p.Column}
}

func (b *builder) file(tree *protoFile) (*ir.File, error) {
	syntax, err := unquote(tree.Syntax.Value)
	if err != nil || syntax != "proto3" {
		return nil, syntaxErrorf(b.pos(tree.Syntax.Pos), "unsupported syntax %s, only \"proto3\" is supported", tree.Syntax.Value)
	}
	file := &ir.File{Path: b.filename}

	// The package applies to every declaration regardless of where it appears.
	var pkgPos *ir.Position
	for _, e := range tree.Entries {
		if e.Package == nil {
			continue
		}
		pos := b.pos(e.Package.Pos)
		if pkgPos != nil {
			return nil, syntaxErrorf(pos, "multiple package declarations, first at %s", pkgPos)
		}
		pkgPos = &pos
		file.Package = e.Package.Name
	}
	namespace := file.BaseNamespace()

	for _, e := range tree.Entries {
		switch {
		case e.Import != nil:
			path, err := unquote(e.Import.Path)
			if err != nil {
				return nil, syntaxErrorf(b.pos(e.Import.Pos), "invalid import path %s", e.Import.Path)
			}
			file.Imports = append(file.Imports, &ir.Import{
				Path:   path,
				Public: e.Import.Modifier == "public",
				Weak:   e.Import.Modifier == "weak",
				Pos:    b.pos(e.Import.Pos),
			})
		case e.Option != nil:
			opt, err := b.option(e.Option.Option)
			if err != nil {
				return nil, err
			}
			file.Options = append(file.Options, opt)
		case e.Message != nil:
			msg, err := b.message(e.Message, namespace)
			if err != nil {
				return nil, err
			}
			file.Messages = append(file.Messages, msg)
		case e.Enum != nil:
			enum, err := b.enum(e.Enum, namespace)
			if err != nil {
				return nil, err
			}
			file.Enums = append(file.Enums, enum)
		case e.Service != nil:
			svc, err := b.service(e.Service)
			if err != nil {
				return nil, err
			}
			file.Services = append(file.Services, svc)
		}
	}
	if err := checkTypeNames(file.Package, file.Enums, file.Messages); err != nil {
		return nil, err
	}
	return file, nil
}

func (b *builder) message(decl *messageDecl, namespace []string) (*ir.Message, error) {
	msg := &ir.Message{
		Name:      decl.Name,
		Namespace: namespace,
		Pos:       b.pos(decl.Pos),
	}
	scope := msg.Scope()
	for _, e := range decl.Entries {
		switch {
		case e.Enum != nil:
			enum, err := b.enum(e.Enum, scope)
			if err != nil {
				return nil, err
			}
			msg.Enums = append(msg.Enums, enum)
		case e.Message != nil:
			sub, err := b.message(e.Message, scope)
			if err != nil {
				return nil, err
			}
			msg.Messages = append(msg.Messages, sub)
		case e.Oneof != nil:
			oneof, err := b.oneof(e.Oneof, scope)
			if err != nil {
				return nil, err
			}
			msg.Oneofs = append(msg.Oneofs, oneof)
		case e.Map != nil:
			entry, field, err := b.mapField(e.Map, scope)
			if err != nil {
				return nil, err
			}
			msg.Messages = append(msg.Messages, entry)
			msg.Fields = append(msg.Fields, field)
		case e.Reserved != nil:
			reserved, err := b.reserved(e.Reserved)
			if err != nil {
				return nil, err
			}
			msg.Reserved = append(msg.Reserved, reserved...)
		case e.Option != nil:
			opt, err := b.option(e.Option.Option)
			if err != nil {
				return nil, err
			}
			msg.Options = append(msg.Options, opt)
		case e.Field != nil:
			field, err := b.field(e.Field, nil)
			if err != nil {
				return nil, err
			}
			msg.Fields = append(msg.Fields, field)
		}
	}
	if err := checkFields(msg); err != nil {
		return nil, err
	}
	if err := checkTypeNames(msg.FullName(), msg.Enums, msg.Messages); err != nil {
		return nil, err
	}
	return msg, nil
}

func (b *builder) field(decl *fieldDecl, oneof *ir.Oneof) (*ir.Field, error) {
	pos := b.pos(decl.Pos)
	if oneof != nil && decl.Label != "" {
		return nil, syntaxErrorf(pos, "field '%s' in oneof '%s' must not have a label", decl.Name, oneof.Name)
	}
	if decl.Label == "required" {
		return nil, syntaxErrorf(pos, "required field '%s' is not allowed in proto3", decl.Name)
	}
	number, err := b.fieldNumber(decl.Number, decl.Name, pos)
	if err != nil {
		return nil, err
	}
	options, err := b.options(decl.Options)
	if err != nil {
		return nil, err
	}
	typeName, qualifier := splitTypeName(decl.Type.Name)
	return &ir.Field{
		Type:      typeName,
		Qualifier: qualifier,
		Name:      decl.Name,
		Number:    number,
		Repeated:  decl.Label == "repeated",
		Optional:  decl.Label == "optional",
		Options:   options,
		Oneof:     oneof,
		Pos:       pos,
	}, nil
}

// mapField desugars map<K, V> name = N into a nested <Name>Entry message with
// key = 1 and value = 2 plus a repeated field of that message.
func (b *builder) mapField(decl *mapField, scope []string) (*ir.Message, *ir.Field, error) {
	pos := b.pos(decl.Pos)
	keyKind, ok := ir.ScalarKind(decl.Key)
	if !ok || !keyKind.ValidMapKey() {
		return nil, nil, syntaxErrorf(pos, "invalid map key type '%s'", decl.Key)
	}
	number, err := b.fieldNumber(decl.Number, decl.Name, pos)
	if err != nil {
		return nil, nil, err
	}
	options, err := b.options(decl.Options)
	if err != nil {
		return nil, nil, err
	}
	valueType, valueQualifier := splitTypeName(decl.Value.Name)
	entry := &ir.Message{
		Name:      ir.CamelCase(decl.Name) + "Entry",
		Namespace: scope,
		MapEntry:  true,
		Pos:       pos,
	}
	entry.Fields = []*ir.Field{
		{Type: decl.Key, Name: "key", Number: 1, Pos: pos},
		{Type: valueType, Qualifier: valueQualifier, Name: "value", Number: 2, Pos: b.pos(decl.Value.Pos)},
	}
	field := &ir.Field{
		Type:     entry.Name,
		Name:     decl.Name,
		Number:   number,
		Repeated: true,
		Options:  options,
		Pos:      pos,
	}
	return entry, field, nil
}

func (b *builder) oneof(decl *oneofDecl, scope []string) (*ir.Oneof, error) {
	oneof := &ir.Oneof{
		Name:      decl.Name,
		Namespace: scope,
		Pos:       b.pos(decl.Pos),
	}
	for _, e := range decl.Entries {
		switch {
		case e.Option != nil:
			opt, err := b.option(e.Option.Option)
			if err != nil {
				return nil, err
			}
			oneof.Options = append(oneof.Options, opt)
		case e.Field != nil:
			field, err := b.field(e.Field, oneof)
			if err != nil {
				return nil, err
			}
			oneof.Fields = append(oneof.Fields, field)
		}
	}
	if len(oneof.Fields) == 0 {
		return nil, syntaxErrorf(oneof.Pos, "oneof '%s' must have at least one field", oneof.Name)
	}
	return oneof, nil
}

func (b *builder) enum(decl *enumDecl, namespace []string) (*ir.Enum, error) {
	enum := &ir.Enum{
		Name:      decl.Name,
		Namespace: namespace,
		Pos:       b.pos(decl.Pos),
	}
	var reserved []ir.Reserved
	for _, e := range decl.Entries {
		switch {
		case e.Option != nil:
			opt, err := b.option(e.Option.Option)
			if err != nil {
				return nil, err
			}
			enum.Options = append(enum.Options, opt)
		case e.Reserved != nil:
			r, err := b.reserved(e.Reserved)
			if err != nil {
				return nil, err
			}
			reserved = append(reserved, r...)
		case e.Value != nil:
			pos := b.pos(e.Value.Pos)
			n, err := strconv.ParseInt(e.Value.Number, 0, 32)
			if err != nil {
				return nil, syntaxErrorf(pos, "invalid enum value number %s", e.Value.Number)
			}
			options, err := b.options(e.Value.Options)
			if err != nil {
				return nil, err
			}
			enum.Values = append(enum.Values, &ir.EnumValue{
				Name:    e.Value.Name,
				Number:  int32(n),
				Options: options,
				Pos:     pos,
			})
		}
	}
	if len(enum.Values) == 0 {
		return nil, syntaxErrorf(enum.Pos, "enum '%s' must have at least one value", enum.Name)
	}
	allowAlias := false
	if opt, ok := findOption(enum.Options, "allow_alias"); ok {
		allowAlias = opt.Bool()
	}
	names := make(map[string]bool)
	numbers := make(map[int32]bool)
	for _, v := range enum.Values {
		if names[v.Name] {
			return nil, &DuplicateDefinitionError{Scope: enum.FullName(), Kind: "enum value", Name: v.Name, Pos: v.Pos}
		}
		names[v.Name] = true
		if numbers[v.Number] && !allowAlias {
			return nil, &DuplicateDefinitionError{Scope: enum.FullName(), Kind: "enum value", Number: int(v.Number), Pos: v.Pos}
		}
		numbers[v.Number] = true
		for _, r := range reserved {
			if r.Name == v.Name || (r.Name == "" && int(v.Number) >= r.Start && int(v.Number) <= r.End) {
				return nil, syntaxErrorf(v.Pos, "enum value '%s' uses a reserved name or number", v.Name)
			}
		}
	}
	return enum, nil
}

func (b *builder) service(decl *serviceDecl) (*ir.Service, error) {
	svc := &ir.Service{Name: decl.Name, Pos: b.pos(decl.Pos)}
	for _, e := range decl.Entries {
		switch {
		case e.Option != nil:
			opt, err := b.option(e.Option.Option)
			if err != nil {
				return nil, err
			}
			svc.Options = append(svc.Options, opt)
		case e.Rpc != nil:
			rpc := &ir.Rpc{
				Name:           e.Rpc.Name,
				RequestType:    e.Rpc.Request.Name,
				RequestStream:  e.Rpc.RequestStream,
				ResponseType:   e.Rpc.Response.Name,
				ResponseStream: e.Rpc.ResponseStream,
				Pos:            b.pos(e.Rpc.Pos),
			}
			for _, o := range e.Rpc.Options {
				opt, err := b.option(o.Option)
				if err != nil {
					return nil, err
				}
				rpc.Options = append(rpc.Options, opt)
			}
			svc.Rpcs = append(svc.Rpcs, rpc)
		}
	}
	return svc, nil
}

func (b *builder) reserved(decl *reservedDecl) ([]ir.Reserved, error) {
	pos := b.pos(decl.Pos)
	var out []ir.Reserved
	for _, r := range decl.Ranges {
		start, err := strconv.ParseInt(r.Start, 0, 64)
		if err != nil {
			return nil, syntaxErrorf(pos, "invalid reserved number %s", r.Start)
		}
		end := start
		switch r.End {
		case "":
		case "max":
			end = maxFieldNumber
		default:
			end, err = strconv.ParseInt(r.End, 0, 64)
			if err != nil {
				return nil, syntaxErrorf(pos, "invalid reserved number %s", r.End)
			}
		}
		if end < start {
			return nil, syntaxErrorf(pos, "reserved range %d to %d is empty", start, end)
		}
		out = append(out, ir.Reserved{Start: int(start), End: int(end)})
	}
	for _, raw := range decl.Names {
		name, err := unquote(raw)
		if err != nil {
			return nil, syntaxErrorf(pos, "invalid reserved name %s", raw)
		}
		out = append(out, ir.Reserved{Name: name})
	}
	return out, nil
}

func (b *builder) fieldNumber(raw, name string, pos ir.Position) (int, error) {
	n, err := strconv.ParseInt(raw, 0, 64)
	if err != nil {
		return 0, syntaxErrorf(pos, "invalid field number %s for '%s'", raw, name)
	}
	if n < 1 || n > maxFieldNumber {
		return 0, syntaxErrorf(pos, "field number %d for '%s' is out of range 1 to %d", n, name, maxFieldNumber)
	}
	if n >= firstReservedNumber && n <= lastReservedNumber {
		return 0, syntaxErrorf(pos, "field number %d for '%s' is reserved for the protobuf implementation", n, name)
	}
	return int(n), nil
}

// checkFields rejects duplicate field names and numbers. Oneof members share
// the number space of their message.
func checkFields(msg *ir.Message) error {
	names := make(map[string]bool)
	numbers := make(map[int]bool)
	for _, f := range msg.AllFields() {
		if names[f.Name] {
			return &DuplicateDefinitionError{Scope: msg.FullName(), Kind: "field", Name: f.Name, Pos: f.Pos}
		}
		names[f.Name] = true
		if numbers[f.Number] {
			return &DuplicateDefinitionError{Scope: msg.FullName(), Kind: "field", Number: f.Number, Pos: f.Pos}
		}
		numbers[f.Number] = true
		for _, r := range msg.Reserved {
			if r.Name == f.Name || (r.Name == "" && f.Number >= r.Start && f.Number <= r.End) {
				return syntaxErrorf(f.Pos, "field '%s' uses a reserved name or number", f.Name)
			}
		}
	}
	return nil
}

func checkTypeNames(scope string, enums []*ir.Enum, messages []*ir.Message) error {
	seen := make(map[string]bool)
	for _, e := range enums {
		if seen[e.Name] {
			return &DuplicateDefinitionError{Scope: scope, Kind: "type", Name: e.Name, Pos: e.Pos}
		}
		seen[e.Name] = true
	}
	for _, m := range messages {
		if seen[m.Name] {
			return &DuplicateDefinitionError{Scope: scope, Kind: "type", Name: m.Name, Pos: m.Pos}
		}
		seen[m.Name] = true
	}
	return nil
}

// splitTypeName splits pkg.Outer.Inner into Inner and [pkg Outer]. A leading
// dot is kept as an empty first qualifier segment.
func splitTypeName(name string) (string, []string) {
	parts := strings.Split(name, ".")
	if len(parts) == 1 {
		return name, nil
	}
	return parts[len(parts)-1], parts[:len(parts)-1]
}

func unquote(s string) (string, error) {
	if strings.HasPrefix(s, "'") && len(s) >= 2 {
		inner := s[1 : len(s)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		s = `"` + inner + `"`
	}
	return strconv.Unquote(s)
}
