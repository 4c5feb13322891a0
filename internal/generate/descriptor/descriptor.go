// Package descriptor exports compiled files as a google.protobuf.FileDescriptorSet,
// the same artifact protoc writes with --descriptor_set_out.
package descriptor

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/jptrs93/pbgen/internal/compiler"
	"github.com/jptrs93/pbgen/internal/generate"
	"github.com/jptrs93/pbgen/internal/ir"
)

type Generator struct {
	Logger *slog.Logger
}

func (g Generator) Name() string {
	return "descriptor"
}

// Generate writes one FileDescriptorSet holding the roots and their imports
// to options.DescriptorSetOut. Nothing is produced when no path is set.
func (g Generator) Generate(files []*ir.File, options generate.Options) ([]generate.OutputFile, error) {
	if options.DescriptorSetOut == "" || len(files) == 0 {
		return nil, nil
	}
	set, err := Build(files)
	if err != nil {
		return nil, err
	}
	content, err := proto.MarshalOptions{Deterministic: true}.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor set: %w", err)
	}
	if g.Logger != nil {
		g.Logger.Debug("generated descriptor set", "path", options.DescriptorSetOut, "files", len(set.File))
	}
	return []generate.OutputFile{{Path: options.DescriptorSetOut, Content: content}}, nil
}

// Build converts the roots and everything they import, imports first.
func Build(files []*ir.File) (*descriptorpb.FileDescriptorSet, error) {
	set := &descriptorpb.FileDescriptorSet{}
	for _, file := range compiler.Closure(files) {
		fd, err := File(file)
		if err != nil {
			return nil, err
		}
		set.File = append(set.File, fd)
	}
	return set, nil
}

// File converts one compiled file. Types are listed in declaration order,
// not in the dependency order the compiler leaves them in.
func File(file *ir.File) (*descriptorpb.FileDescriptorProto, error) {
	fd := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(file.Path),
		Syntax:  proto.String("proto3"),
		Options: fileOptions(file.Options),
	}
	if file.Package != "" {
		fd.Package = proto.String(file.Package)
	}
	for i, imp := range file.Imports {
		fd.Dependency = append(fd.Dependency, imp.Path)
		if imp.Public {
			fd.PublicDependency = append(fd.PublicDependency, int32(i))
		}
		if imp.Weak {
			fd.WeakDependency = append(fd.WeakDependency, int32(i))
		}
	}
	for _, e := range file.Enums {
		fd.EnumType = append(fd.EnumType, enum(e))
	}
	for _, msg := range byPosition(file.Messages, func(m *ir.Message) ir.Position { return m.Pos }) {
		d, err := message(msg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Path, err)
		}
		fd.MessageType = append(fd.MessageType, d)
	}
	for _, s := range file.Services {
		fd.Service = append(fd.Service, service(s))
	}
	return fd, nil
}

func message(msg *ir.Message) (*descriptorpb.DescriptorProto, error) {
	d := &descriptorpb.DescriptorProto{Name: proto.String(msg.Name)}
	if msg.MapEntry {
		d.Options = &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)}
	} else if opt, ok := findOption(msg.Options, "deprecated"); ok {
		d.Options = &descriptorpb.MessageOptions{Deprecated: proto.Bool(opt.Bool())}
	}

	oneofIndex := make(map[*ir.Oneof]int32)
	for i, o := range msg.Oneofs {
		oneofIndex[o] = int32(i)
		d.OneofDecl = append(d.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: proto.String(o.Name)})
	}
	for _, f := range byPosition(msg.AllFields(), func(f *ir.Field) ir.Position { return f.Pos }) {
		fd, err := field(f)
		if err != nil {
			return nil, fmt.Errorf("message '%s': %w", msg.FullName(), err)
		}
		if f.Oneof != nil {
			fd.OneofIndex = proto.Int32(oneofIndex[f.Oneof])
		}
		d.Field = append(d.Field, fd)
	}
	// Synthetic oneofs of proto3 optional fields follow the real ones.
	for _, fd := range d.Field {
		if fd.GetProto3Optional() {
			fd.OneofIndex = proto.Int32(int32(len(d.OneofDecl)))
			d.OneofDecl = append(d.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: proto.String("_" + fd.GetName())})
		}
	}

	for _, e := range msg.Enums {
		d.EnumType = append(d.EnumType, enum(e))
	}
	for _, sub := range byPosition(msg.Messages, func(m *ir.Message) ir.Position { return m.Pos }) {
		nested, err := message(sub)
		if err != nil {
			return nil, err
		}
		d.NestedType = append(d.NestedType, nested)
	}
	for _, r := range msg.Reserved {
		if r.Name != "" {
			d.ReservedName = append(d.ReservedName, r.Name)
			continue
		}
		// Descriptor ranges are end exclusive.
		d.ReservedRange = append(d.ReservedRange, &descriptorpb.DescriptorProto_ReservedRange{
			Start: proto.Int32(int32(r.Start)),
			End:   proto.Int32(int32(r.End) + 1),
		})
	}
	return d, nil
}

func field(f *ir.Field) (*descriptorpb.FieldDescriptorProto, error) {
	typ, ok := fieldTypes[f.Kind]
	if !ok {
		return nil, fmt.Errorf("field '%s' has no descriptor type for %v", f.Name, f.Kind)
	}
	fd := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(f.Name),
		Number:   proto.Int32(int32(f.Number)),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
		JsonName: proto.String(jsonName(f.Name)),
	}
	if f.Repeated {
		fd.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	}
	if f.Optional {
		fd.Proto3Optional = proto.Bool(true)
	}
	switch f.TypeKind {
	case ir.TypeEnum, ir.TypeMessage:
		fd.TypeName = proto.String("." + f.FullType())
	case ir.TypeUnresolved:
		return nil, fmt.Errorf("field '%s' is not resolved", f.Name)
	}

	var opts descriptorpb.FieldOptions
	set := false
	if opt, ok := f.Option("packed"); ok {
		opts.Packed = proto.Bool(opt.Bool())
		set = true
	}
	if opt, ok := f.Option("deprecated"); ok {
		opts.Deprecated = proto.Bool(opt.Bool())
		set = true
	}
	if set {
		fd.Options = &opts
	}
	if opt, ok := f.Option("json_name"); ok && opt.Kind == ir.OptionString {
		fd.JsonName = proto.String(opt.Value)
	}
	return fd, nil
}

var fieldTypes = map[ir.Kind]descriptorpb.FieldDescriptorProto_Type{
	ir.KindBool:     descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	ir.KindInt32:    descriptorpb.FieldDescriptorProto_TYPE_INT32,
	ir.KindInt64:    descriptorpb.FieldDescriptorProto_TYPE_INT64,
	ir.KindUint32:   descriptorpb.FieldDescriptorProto_TYPE_UINT32,
	ir.KindUint64:   descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	ir.KindSint32:   descriptorpb.FieldDescriptorProto_TYPE_SINT32,
	ir.KindSint64:   descriptorpb.FieldDescriptorProto_TYPE_SINT64,
	ir.KindFixed32:  descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
	ir.KindFixed64:  descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
	ir.KindSfixed32: descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
	ir.KindSfixed64: descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
	ir.KindFloat:    descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	ir.KindDouble:   descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	ir.KindString:   descriptorpb.FieldDescriptorProto_TYPE_STRING,
	ir.KindBytes:    descriptorpb.FieldDescriptorProto_TYPE_BYTES,
	ir.KindMessage:  descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
	ir.KindEnum:     descriptorpb.FieldDescriptorProto_TYPE_ENUM,
}

func enum(e *ir.Enum) *descriptorpb.EnumDescriptorProto {
	d := &descriptorpb.EnumDescriptorProto{Name: proto.String(e.Name)}
	var opts descriptorpb.EnumOptions
	set := false
	if opt, ok := findOption(e.Options, "allow_alias"); ok {
		opts.AllowAlias = proto.Bool(opt.Bool())
		set = true
	}
	if opt, ok := findOption(e.Options, "deprecated"); ok {
		opts.Deprecated = proto.Bool(opt.Bool())
		set = true
	}
	if set {
		d.Options = &opts
	}
	for _, v := range e.Values {
		value := &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v.Name),
			Number: proto.Int32(v.Number),
		}
		if opt, ok := findOption(v.Options, "deprecated"); ok {
			value.Options = &descriptorpb.EnumValueOptions{Deprecated: proto.Bool(opt.Bool())}
		}
		d.Value = append(d.Value, value)
	}
	return d
}

func service(s *ir.Service) *descriptorpb.ServiceDescriptorProto {
	d := &descriptorpb.ServiceDescriptorProto{Name: proto.String(s.Name)}
	for _, rpc := range s.Rpcs {
		m := &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(rpc.Name),
			InputType:  proto.String("." + rpc.RequestFullName),
			OutputType: proto.String("." + rpc.ResponseFullName),
		}
		if rpc.RequestStream {
			m.ClientStreaming = proto.Bool(true)
		}
		if rpc.ResponseStream {
			m.ServerStreaming = proto.Bool(true)
		}
		d.Method = append(d.Method, m)
	}
	return d
}

// fileOptions keeps the standard file options; custom options have no
// descriptor to be checked against and are dropped.
func fileOptions(options []ir.Option) *descriptorpb.FileOptions {
	var opts descriptorpb.FileOptions
	set := false
	for _, o := range options {
		switch o.Name {
		case "go_package":
			opts.GoPackage = proto.String(o.Value)
		case "java_package":
			opts.JavaPackage = proto.String(o.Value)
		case "java_outer_classname":
			opts.JavaOuterClassname = proto.String(o.Value)
		case "java_multiple_files":
			opts.JavaMultipleFiles = proto.Bool(o.Bool())
		case "csharp_namespace":
			opts.CsharpNamespace = proto.String(o.Value)
		case "objc_class_prefix":
			opts.ObjcClassPrefix = proto.String(o.Value)
		case "deprecated":
			opts.Deprecated = proto.Bool(o.Bool())
		case "optimize_for":
			mode, ok := descriptorpb.FileOptions_OptimizeMode_value[o.Value]
			if !ok {
				continue
			}
			opts.OptimizeFor = descriptorpb.FileOptions_OptimizeMode(mode).Enum()
		default:
			continue
		}
		set = true
	}
	if !set {
		return nil
	}
	return &opts
}

// jsonName follows protoc: underscores are dropped and the letter after one
// is upper cased.
func jsonName(name string) string {
	out := make([]byte, 0, len(name))
	upper := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_':
			upper = true
		case upper && 'a' <= c && c <= 'z':
			out = append(out, c-'a'+'A')
			upper = false
		default:
			out = append(out, c)
			upper = false
		}
	}
	return string(out)
}

func byPosition[T any](items []T, pos func(T) ir.Position) []T {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		pa, pb := pos(a), pos(b)
		return cmp.Or(cmp.Compare(pa.Line, pb.Line), cmp.Compare(pa.Column, pb.Column))
	})
	return sorted
}

func findOption(options []ir.Option, name string) (ir.Option, bool) {
	for _, o := range options {
		if o.Name == name {
			return o, true
		}
	}
	return ir.Option{}, false
}
