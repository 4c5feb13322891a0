// Package compiler runs the front end pipeline: parse, load imports, resolve,
// choose indirections and order messages.
package compiler

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/jptrs93/pbgen/internal/ir"
	"github.com/jptrs93/pbgen/internal/loader"
	"github.com/jptrs93/pbgen/internal/order"
	"github.com/jptrs93/pbgen/internal/resolve"
)

type Compiler struct {
	Fs                 afero.Fs
	ImportPaths        []string
	SubMessagePointers bool
	Logger             *slog.Logger
}

// Compile compiles the given root files and returns them in the same order.
// Imports are loaded and resolved along the way and are reachable through
// ir.Import.File. Each call starts from scratch; nothing is cached between
// calls. The first error aborts the compilation and is returned unchanged.
func (c *Compiler) Compile(ctx context.Context, paths []string) ([]*ir.File, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fs := c.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	l := loader.New(fs, c.ImportPaths, logger)

	var roots []*ir.File
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		roots = append(roots, file)
	}

	files := Closure(roots)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := resolve.File(file); err != nil {
			return nil, err
		}
		logger.Debug("resolved proto", "path", file.Path, "messages", len(file.Messages))
	}

	order.MarkIndirections(files, c.SubMessagePointers)
	for _, file := range files {
		file.Messages = order.SortMessages(file.Messages)
	}
	return roots, nil
}

// Closure returns the files and everything they import, each once, imports
// before importers.
func Closure(roots []*ir.File) []*ir.File {
	var out []*ir.File
	seen := make(map[*ir.File]bool)
	var visit func(file *ir.File)
	visit = func(file *ir.File) {
		if seen[file] {
			return
		}
		seen[file] = true
		for _, imp := range file.Imports {
			if imp.File != nil {
				visit(imp.File)
			}
		}
		out = append(out, file)
	}
	for _, root := range roots {
		visit(root)
	}
	return out
}
