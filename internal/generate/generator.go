// Package generate holds what the code generators share: their options, the
// files they produce and writing those files out.
package generate

import "github.com/jptrs93/pbgen/internal/ir"

// DefaultRuntimeImport is the import path of the runtime used by generated
// codecs.
const DefaultRuntimeImport = "github.com/jptrs93/pbgen/wire"

type OutputFile struct {
	Path    string
	Content []byte
}

type Options struct {
	OutputDirectory string
	GoPackage       string
	RuntimeImport   string
	NoPrefix        bool
	CopyRuntime     bool

	// DescriptorSetOut is the path of the FileDescriptorSet to write, if any.
	DescriptorSetOut string
}

// Generator turns compiled root files into output files. Files reachable
// through imports are available via ir.Import.File.
type Generator interface {
	Name() string
	Generate(files []*ir.File, options Options) ([]OutputFile, error)
}
