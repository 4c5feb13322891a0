package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jptrs93/pbgen/internal/ir"
	"github.com/jptrs93/pbgen/internal/parser"
)

// Loader locates and parses proto files and, recursively, their imports.
// Parsed files are memoized by absolute path for the lifetime of the Loader,
// so a Loader belongs to a single compilation.
type Loader struct {
	fs          afero.Fs
	importPaths []string
	logger      *slog.Logger

	files   map[string]*ir.File
	loading []pending
}

type pending struct {
	path    string
	absPath string
}

func New(fs afero.Fs, importPaths []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		fs:          fs,
		importPaths: importPaths,
		logger:      logger,
		files:       make(map[string]*ir.File),
	}
}

// Locate tries each search directory in order, then the literal path, and
// returns the cleaned absolute path of the first regular file found.
func (l *Loader) Locate(path string) (string, error) {
	for _, dir := range l.importPaths {
		candidate := filepath.Join(dir, path)
		if l.isFile(candidate) {
			return filepath.Abs(candidate)
		}
	}
	if l.isFile(path) {
		return filepath.Abs(path)
	}
	return "", &ImportNotFoundError{Path: path, SearchPaths: l.importPaths}
}

// LoadFile parses a root file. The literal path is tried before the search
// directories.
func (l *Loader) LoadFile(path string) (*ir.File, error) {
	var absPath string
	var err error
	if l.isFile(path) {
		absPath, err = filepath.Abs(path)
	} else {
		absPath, err = l.Locate(path)
	}
	if err != nil {
		return nil, err
	}
	return l.parse(path, absPath)
}

// Load locates and parses an imported file and returns what an importer sees
// of it: its package and top level type names.
func (l *Loader) Load(path string) (*ir.Import, error) {
	absPath, err := l.Locate(path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("import located", "path", path, "abspath", absPath)
	file, err := l.parse(path, absPath)
	if err != nil {
		return nil, err
	}
	imp := &ir.Import{
		Path:    path,
		AbsPath: absPath,
		Package: file.Package,
		File:    file,
	}
	for _, e := range file.Enums {
		imp.Enums = append(imp.Enums, e.Name)
	}
	for _, m := range file.Messages {
		imp.Messages = append(imp.Messages, m.Name)
	}
	return imp, nil
}

func (l *Loader) parse(path, absPath string) (*ir.File, error) {
	if file, ok := l.files[absPath]; ok {
		return file, nil
	}
	for i, p := range l.loading {
		if p.absPath != absPath {
			continue
		}
		var chain []string
		for _, q := range l.loading[i:] {
			chain = append(chain, q.path)
		}
		return nil, &ImportCycleError{Chain: append(chain, path)}
	}

	src, err := afero.ReadFile(l.fs, absPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	file, err := parser.Parse(path, src)
	if err != nil {
		return nil, err
	}
	file.AbsPath = absPath
	l.logger.Debug("parsed proto", "path", path, "imports", len(file.Imports))

	l.loading = append(l.loading, pending{path: path, absPath: absPath})
	defer func() { l.loading = l.loading[:len(l.loading)-1] }()
	for _, imp := range file.Imports {
		loaded, err := l.Load(imp.Path)
		if err != nil {
			var notFound *ImportNotFoundError
			if errors.As(err, &notFound) && notFound.Path == imp.Path {
				return nil, fmt.Errorf("%s: %w", imp.Pos, err)
			}
			return nil, err
		}
		imp.AbsPath = loaded.AbsPath
		imp.Package = loaded.Package
		imp.Enums = loaded.Enums
		imp.Messages = loaded.Messages
		imp.File = loaded.File
	}
	l.files[absPath] = file
	return file, nil
}

func (l *Loader) isFile(path string) bool {
	info, err := l.fs.Stat(path)
	return err == nil && !info.IsDir()
}
