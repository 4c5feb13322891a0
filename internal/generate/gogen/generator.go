// Package gogen generates Go types and wire codecs for compiled proto files.
// Each file becomes <base>.pb.go with the declarations and
// <base>_codec.pb.go with Size, Encode and Decode for every message.
package gogen

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/jptrs93/pbgen/internal/compiler"
	"github.com/jptrs93/pbgen/internal/generate"
	"github.com/jptrs93/pbgen/internal/generate/templates"
	"github.com/jptrs93/pbgen/internal/ir"
	"github.com/jptrs93/pbgen/internal/parser"
	"github.com/jptrs93/pbgen/wire"
)

type Generator struct {
	Logger *slog.Logger
}

func (g Generator) Name() string {
	return "go"
}

// Generate renders the root files and everything they import into one Go
// package in options.OutputDirectory.
func (g Generator) Generate(files []*ir.File, options generate.Options) ([]generate.OutputFile, error) {
	if len(files) == 0 {
		return nil, nil
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tmpl, err := template.ParseFS(templates.FS, "go_types.tmpl", "go_codec.tmpl")
	if err != nil {
		return nil, err
	}

	all := compiler.Closure(files)
	b := &builder{
		pkg:      packageName(files[0], options.GoPackage),
		runtime:  options.RuntimeImport,
		noPrefix: options.NoPrefix,
		messages: indexMessages(all),
		declared: make(map[string]string),
	}
	if b.runtime == "" {
		b.runtime = generate.DefaultRuntimeImport
	}

	var outputs []generate.OutputFile
	sources := make(map[string]string)
	for _, file := range all {
		base := baseName(file.Path)
		if other, ok := sources[base]; ok {
			return nil, fmt.Errorf("%s and %s would both generate %s.pb.go", other, file.Path, base)
		}
		sources[base] = file.Path

		data, err := b.file(file)
		if err != nil {
			return nil, err
		}
		for _, out := range []struct{ tmpl, name string }{
			{tmpl: "go_types.tmpl", name: base + ".pb.go"},
			{tmpl: "go_codec.tmpl", name: base + "_codec.pb.go"},
		} {
			content, err := render(tmpl, out.tmpl, out.name, data)
			if err != nil {
				return nil, err
			}
			p := filepath.Join(options.OutputDirectory, out.name)
			outputs = append(outputs, generate.OutputFile{Path: p, Content: content})
			logger.Debug("generated go source", "path", p, "source", file.Path)
		}
	}

	if options.CopyRuntime {
		runtime, err := runtimeFiles(filepath.Join(options.OutputDirectory, "wire"))
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, runtime...)
	}
	return outputs, nil
}

func render(tmpl *template.Template, name, filename string, data goFileData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	out, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", filename, err)
	}
	return out, nil
}

// runtimeFiles returns the sources of the wire package, to be placed in dir.
func runtimeFiles(dir string) ([]generate.OutputFile, error) {
	names, err := fs.Glob(wire.Source, "*.go")
	if err != nil {
		return nil, err
	}
	var outputs []generate.OutputFile
	for _, name := range names {
		content, err := fs.ReadFile(wire.Source, name)
		if err != nil {
			return nil, fmt.Errorf("read runtime source %s: %w", name, err)
		}
		outputs = append(outputs, generate.OutputFile{Path: filepath.Join(dir, name), Content: content})
	}
	return outputs, nil
}

// packageName picks the Go package of the output: the explicit name, the
// go_package option of the first root, the last segment of its proto package
// or finally its base name.
func packageName(root *ir.File, explicit string) string {
	name := explicit
	if name == "" {
		name = parser.GoPackage(root)
	}
	if name == "" && root.Package != "" {
		segments := strings.Split(root.Package, ".")
		name = segments[len(segments)-1]
	}
	if name == "" {
		name = ir.SnakeCase(baseName(root.Path))
	}
	return strings.ToLower(ir.Canonical(name))
}

func baseName(p string) string {
	return strings.TrimSuffix(filepath.Base(p), ".proto")
}

func indexMessages(files []*ir.File) map[string]*ir.Message {
	index := make(map[string]*ir.Message)
	var add func(msg *ir.Message)
	add = func(msg *ir.Message) {
		index[msg.FullName()] = msg
		for _, sub := range msg.Messages {
			add(sub)
		}
	}
	for _, file := range files {
		for _, msg := range file.Messages {
			add(msg)
		}
	}
	return index
}

func importSpec(importPath string) string {
	if path.Base(importPath) == "wire" {
		return strconv.Quote(importPath)
	}
	return "wire " + strconv.Quote(importPath)
}
