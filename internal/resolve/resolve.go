// Package resolve binds field and rpc type names to the enums and messages
// they refer to.
//
// Unqualified names are looked up in the enclosing messages from the
// innermost outward, then among the top level types of the file, then among
// the top level types of imports that share the file's package. Qualified
// names are looked up relative to each enclosing scope, then relative to the
// package and its parents, then as fully qualified names.
package resolve

import (
	"fmt"
	"strings"

	"github.com/jptrs93/pbgen/internal/ir"
)

// UnresolvedTypeError reports a type name with no binding.
type UnresolvedTypeError struct {
	Type  string
	Field string
	Scope string
	Pos   ir.Position
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("%s: '%s' is not defined.", e.Pos, e.Type)
}

type symbol struct {
	namespace []string
	kind      ir.TypeKind
	file      *ir.File
}

type resolver struct {
	file    *ir.File
	imports []*ir.Import
	symbols map[string]symbol
	scopes  []*ir.Message
}

// File resolves every field of every message in file, and the request and
// response types of its rpcs. Imported files must be loaded, but need not be
// resolved. An import whose File is unset contributes no types.
func File(file *ir.File) error {
	r := &resolver{
		file:    file,
		imports: VisibleImports(file),
		symbols: make(map[string]symbol),
	}
	r.addFile(file)
	for _, imp := range r.imports {
		if imp.File != nil {
			r.addFile(imp.File)
		}
	}

	for _, msg := range file.Messages {
		if err := r.message(msg); err != nil {
			return err
		}
	}
	for _, svc := range file.Services {
		for _, rpc := range svc.Rpcs {
			req, err := r.rpcType(rpc, rpc.RequestType)
			if err != nil {
				return err
			}
			resp, err := r.rpcType(rpc, rpc.ResponseType)
			if err != nil {
				return err
			}
			rpc.RequestFullName = req
			rpc.ResponseFullName = resp
		}
	}
	return nil
}

// VisibleImports returns the direct imports of file followed by everything
// they re-export through import public, transitively.
func VisibleImports(file *ir.File) []*ir.Import {
	var out []*ir.Import
	seen := make(map[*ir.Import]bool)
	var add func(imp *ir.Import)
	add = func(imp *ir.Import) {
		if seen[imp] {
			return
		}
		seen[imp] = true
		out = append(out, imp)
		if imp.File == nil {
			return
		}
		for _, sub := range imp.File.Imports {
			if sub.Public {
				add(sub)
			}
		}
	}
	for _, imp := range file.Imports {
		add(imp)
	}
	return out
}

func (r *resolver) addFile(file *ir.File) {
	var addMessage func(msg *ir.Message)
	addMessage = func(msg *ir.Message) {
		r.symbols[msg.FullName()] = symbol{namespace: msg.Namespace, kind: ir.TypeMessage, file: file}
		for _, e := range msg.Enums {
			r.symbols[e.FullName()] = symbol{namespace: e.Namespace, kind: ir.TypeEnum, file: file}
		}
		for _, sub := range msg.Messages {
			addMessage(sub)
		}
	}
	for _, e := range file.Enums {
		r.symbols[e.FullName()] = symbol{namespace: e.Namespace, kind: ir.TypeEnum, file: file}
	}
	for _, msg := range file.Messages {
		addMessage(msg)
	}
}

func (r *resolver) message(msg *ir.Message) error {
	r.scopes = append(r.scopes, msg)
	defer func() { r.scopes = r.scopes[:len(r.scopes)-1] }()

	for _, field := range msg.AllFields() {
		if err := r.field(msg, field); err != nil {
			return err
		}
	}
	for _, sub := range msg.Messages {
		if err := r.message(sub); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) field(msg *ir.Message, field *ir.Field) error {
	if len(field.Qualifier) == 0 {
		if kind, ok := ir.ScalarKind(field.Type); ok {
			field.TypeKind = ir.TypeScalar
			field.Kind = kind
			field.Namespace = nil
			field.Package = ""
			return nil
		}
	}
	var sym symbol
	var ok bool
	if len(field.Qualifier) == 0 {
		sym, ok = r.lookupName(field.Type)
	} else {
		sym, ok = r.lookupQualified(field.TypeName())
	}
	if !ok {
		return &UnresolvedTypeError{
			Type:  field.TypeName(),
			Field: field.Name,
			Scope: msg.FullName(),
			Pos:   field.Pos,
		}
	}
	field.Namespace = sym.namespace
	field.TypeKind = sym.kind
	field.Kind = ir.KindMessage
	if sym.kind == ir.TypeEnum {
		field.Kind = ir.KindEnum
	}
	field.Origin = sym.file
	field.Package = sym.file.Package
	return nil
}

// lookupName binds an unqualified type name.
func (r *resolver) lookupName(name string) (symbol, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if sym, ok := r.symbols[ir.FullName(r.scopes[i].Scope(), name)]; ok {
			return sym, true
		}
	}
	base := r.file.BaseNamespace()
	for _, e := range r.file.Enums {
		if e.Name == name {
			return symbol{namespace: base, kind: ir.TypeEnum, file: r.file}, true
		}
	}
	for _, m := range r.file.Messages {
		if m.Name == name {
			return symbol{namespace: base, kind: ir.TypeMessage, file: r.file}, true
		}
	}
	for _, imp := range r.imports {
		if imp.File == nil || imp.Package != r.file.Package {
			continue
		}
		switch {
		case imp.HasEnum(name):
			return symbol{namespace: base, kind: ir.TypeEnum, file: imp.File}, true
		case imp.HasMessage(name):
			return symbol{namespace: base, kind: ir.TypeMessage, file: imp.File}, true
		}
	}
	return symbol{}, false
}

// lookupQualified binds a dotted type name. A leading dot makes it fully
// qualified.
func (r *resolver) lookupQualified(name string) (symbol, bool) {
	if strings.HasPrefix(name, ".") {
		sym, ok := r.symbols[name[1:]]
		return sym, ok
	}
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if sym, ok := r.symbols[r.scopes[i].FullName()+"."+name]; ok {
			return sym, true
		}
	}
	pkg := r.file.Package
	for pkg != "" {
		if sym, ok := r.symbols[pkg+"."+name]; ok {
			return sym, true
		}
		idx := strings.LastIndex(pkg, ".")
		if idx < 0 {
			break
		}
		pkg = pkg[:idx]
	}
	sym, ok := r.symbols[name]
	return sym, ok
}

func (r *resolver) rpcType(rpc *ir.Rpc, name string) (string, error) {
	var sym symbol
	var ok bool
	typeName, qualified := name, strings.Contains(name, ".")
	if qualified {
		sym, ok = r.lookupQualified(typeName)
		if ok {
			typeName = typeName[strings.LastIndex(typeName, ".")+1:]
		}
	} else {
		sym, ok = r.lookupName(typeName)
	}
	if !ok || sym.kind != ir.TypeMessage {
		return "", &UnresolvedTypeError{Type: name, Field: rpc.Name, Pos: rpc.Pos}
	}
	return ir.FullName(sym.namespace, typeName), nil
}
