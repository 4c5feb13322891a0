package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jptrs93/pbgen/internal/compiler"
	"github.com/jptrs93/pbgen/internal/generate"
	"github.com/jptrs93/pbgen/internal/generate/descriptor"
	"github.com/jptrs93/pbgen/internal/generate/gogen"
)

func (a *App) generateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate_go_source [flags] infiles...",
		Aliases: []string{"generate", "gen"},
		Short:   "Generate Go types and codecs from proto files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.config.GetBool("watch") {
				return a.watch(cmd.Context(), func() ([]string, error) {
					return a.generate(cmd.Context(), args)
				})
			}
			_, err := a.generate(cmd.Context(), args)
			return err
		},
	}
	f := cmd.Flags()
	f.StringSliceP("import-path", "I", nil, "directory searched for imports (repeatable, default .)")
	f.StringP("output-directory", "o", ".", "directory the generated files are written to")
	f.Bool("sub-message-pointers", false, "use pointers for all non-repeated sub-message fields")
	f.String("go-package", "", "package name of the generated code (default from go_package or the proto package)")
	f.String("runtime-import", generate.DefaultRuntimeImport, "import path of the wire runtime")
	f.Bool("copy-runtime", false, "write the wire runtime to <output-directory>/wire")
	f.Bool("no-prefix", false, "do not prefix type names with the proto file name")
	f.String("descriptor-set-out", "", "also write a FileDescriptorSet to this file")
	f.Bool("check", false, "fail when the generated files differ from the ones on disk instead of writing")
	f.Bool("watch", false, "regenerate whenever a proto file changes")
	return cmd
}

// generate compiles infiles and writes, or with check compares, everything
// the generators produce. It returns the directories holding the compiled
// files.
func (a *App) generate(ctx context.Context, infiles []string) ([]string, error) {
	importPaths, err := a.importPaths()
	if err != nil {
		return nil, err
	}
	outDir, err := a.path("output_directory")
	if err != nil {
		return nil, err
	}
	descriptorOut, err := a.path("descriptor_set_out")
	if err != nil {
		return nil, err
	}
	options := generate.Options{
		OutputDirectory:  filepath.Clean(outDir),
		GoPackage:        a.config.GetString("go_package"),
		RuntimeImport:    a.config.GetString("runtime_import"),
		NoPrefix:         a.config.GetBool("no_prefix"),
		CopyRuntime:      a.config.GetBool("copy_runtime"),
		DescriptorSetOut: descriptorOut,
	}

	c := &compiler.Compiler{
		Fs:                 a.Fs,
		ImportPaths:        importPaths,
		SubMessagePointers: a.config.GetBool("sub_message_pointers"),
		Logger:             a.logger,
	}
	files, err := c.Compile(ctx, infiles)
	if err != nil {
		return nil, err
	}
	var dirs []string
	seen := make(map[string]bool)
	for _, file := range compiler.Closure(files) {
		dir := filepath.Dir(file.AbsPath)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	generators := []generate.Generator{
		gogen.Generator{Logger: a.logger},
		descriptor.Generator{Logger: a.logger},
	}
	var outputs []generate.OutputFile
	for _, gen := range generators {
		out, err := gen.Generate(files, options)
		if err != nil {
			return nil, fmt.Errorf("%s generator: %w", gen.Name(), err)
		}
		outputs = append(outputs, out...)
	}

	if a.config.GetBool("check") {
		stale, err := generate.CheckFiles(a.Fs, outputs)
		if err != nil {
			return nil, err
		}
		if len(stale) > 0 {
			for _, p := range stale {
				fmt.Fprintf(a.Err, "out of date: %s\n", p)
			}
			return nil, fmt.Errorf("%d of %d generated files are out of date", len(stale), len(outputs))
		}
		fmt.Fprintf(a.Out, "%d generated files are up to date\n", len(outputs))
		return dirs, nil
	}

	if err := generate.WriteFiles(a.Fs, outputs); err != nil {
		return nil, err
	}
	return dirs, a.report(outputs)
}

func (a *App) report(outputs []generate.OutputFile) error {
	data := pterm.TableData{{"File", "Bytes"}}
	for _, out := range outputs {
		data = append(data, []string{out.Path, strconv.Itoa(len(out.Content))})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.Out, table)
	return err
}
