package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jptrs93/pbgen/internal/compiler"
	"github.com/jptrs93/pbgen/internal/dynamic"
)

func (a *App) decodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [flags] schema.proto [payload]",
		Short: "Decode a binary message and print it",
		Long: "Decode reads a wire encoded message from the payload file, or stdin when it\n" +
			"is omitted or -, and prints it as YAML, JSON or CBOR.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.newMessage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			payload, err := a.readInput(args[1:])
			if err != nil {
				return err
			}
			if err := msg.Decode(payload); err != nil {
				return fmt.Errorf("decode %s: %w", msg.Descriptor().FullName(), err)
			}
			out, err := marshalFormat(a.config.GetString("format"), msg.ToMap())
			if err != nil {
				return err
			}
			_, err = a.Out.Write(out)
			return err
		},
	}
	codecFlags(cmd)
	return cmd
}

func (a *App) encodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [flags] schema.proto [input]",
		Short: "Encode a message given as YAML, JSON or CBOR",
		Long: "Encode reads a message from the input file, or stdin when it is omitted\n" +
			"or -, and writes its wire encoding to stdout.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.newMessage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			input, err := a.readInput(args[1:])
			if err != nil {
				return err
			}
			values, err := unmarshalFormat(a.config.GetString("format"), input)
			if err != nil {
				return err
			}
			if err := msg.FromMap(values); err != nil {
				return err
			}
			_, err = a.Out.Write(msg.Encode())
			return err
		},
	}
	codecFlags(cmd)
	return cmd
}

func codecFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceP("import-path", "I", nil, "directory searched for imports (repeatable, default .)")
	f.StringP("type", "t", "", "full name of the message type, such as pkg.Msg")
	f.StringP("format", "f", formatYAML, "text format: yaml, json or cbor")
}

// newMessage compiles the schema and returns an empty message of the type
// selected with --type.
func (a *App) newMessage(ctx context.Context, schema string) (*dynamic.Message, error) {
	typeName := strings.TrimPrefix(a.config.GetString("type"), ".")
	if typeName == "" {
		return nil, errors.New("--type is required")
	}
	importPaths, err := a.importPaths()
	if err != nil {
		return nil, err
	}
	c := &compiler.Compiler{Fs: a.Fs, ImportPaths: importPaths, Logger: a.logger}
	files, err := c.Compile(ctx, []string{schema})
	if err != nil {
		return nil, err
	}
	return dynamic.NewRegistry(files...).New(typeName)
}

func (a *App) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(a.In)
	}
	return afero.ReadFile(a.Fs, args[0])
}
