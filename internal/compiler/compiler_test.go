package compiler

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jptrs93/pbgen/internal/ir"
	"github.com/jptrs93/pbgen/internal/loader"
	"github.com/jptrs93/pbgen/internal/parser"
	"github.com/jptrs93/pbgen/internal/resolve"
)

func compile(t *testing.T, files map[string]string, pointers bool, roots ...string) ([]*ir.File, error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, src := range files {
		require.NoError(t, afero.WriteFile(fs, "/src/"+path, []byte(src), 0o644))
	}
	c := &Compiler{Fs: fs, ImportPaths: []string{"/src"}, SubMessagePointers: pointers}
	return c.Compile(context.Background(), roots)
}

func messageNames(messages []*ir.Message) []string {
	var out []string
	for _, m := range messages {
		out = append(out, m.Name)
	}
	return out
}

func TestCompileOrdersAndMarksPointers(t *testing.T) {
	files, err := compile(t, map[string]string{"tree.proto": `
syntax = "proto3";
package tree;
message Forest {
  Tree main = 1;
  repeated Tree others = 2;
}
message Tree {
  Node root = 1;
  Meta meta = 2;
}
message Node {
  repeated Node children = 1;
  Node parent = 2;
  oneof payload {
    Meta meta = 3;
    string text = 4;
  }
}
message Meta {
  string name = 1;
}
`}, false, "tree.proto")
	require.NoError(t, err)
	require.Len(t, files, 1)
	file := files[0]
	assert.Equal(t, []string{"Node", "Meta", "Tree", "Forest"}, messageNames(file.Messages))

	var node *ir.Message
	for _, m := range file.Messages {
		if m.Name == "Node" {
			node = m
		}
	}
	parent, _ := node.Field("parent")
	assert.True(t, parent.Pointer)
	children, _ := node.Field("children")
	assert.False(t, children.Pointer)

	tree := file.Messages[2]
	root, _ := tree.Field("root")
	assert.False(t, root.Pointer)
	assert.True(t, root.IsInline())
}

func TestCompileSubMessagePointers(t *testing.T) {
	files, err := compile(t, map[string]string{"a.proto": `
syntax = "proto3";
message A { B b = 1; }
message B { int32 x = 1; }
`}, true, "a.proto")
	require.NoError(t, err)
	// With every embedding a pointer nothing constrains the order.
	require.Equal(t, []string{"A", "B"}, messageNames(files[0].Messages))
	b, ok := files[0].Messages[0].Field("b")
	require.True(t, ok)
	assert.True(t, b.Pointer)
}

func TestCompileResolvesImportsFirst(t *testing.T) {
	files, err := compile(t, map[string]string{
		"base.proto": `syntax = "proto3"; package base; message Id { string value = 1; }`,
		"mid.proto":  `syntax = "proto3"; package mid; import "base.proto"; message Ref { base.Id id = 1; }`,
		"top.proto":  `syntax = "proto3"; package top; import "mid.proto"; import "base.proto"; message Doc { mid.Ref ref = 1; base.Id id = 2; }`,
	}, false, "top.proto", "mid.proto")
	require.NoError(t, err)
	require.Len(t, files, 2)
	top, mid := files[0], files[1]
	assert.Same(t, mid, top.Imports[0].File)

	ref, _ := mid.Messages[0].Field("id")
	assert.Equal(t, ir.TypeMessage, ref.TypeKind)
	assert.Equal(t, "base.Id", ref.FullType())

	all := Closure(files)
	var paths []string
	for _, f := range all {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"base.proto", "mid.proto", "top.proto"}, paths)
}

func TestCompileErrorsPropagateUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		check func(t *testing.T, err error)
	}{
		{
			name:  "syntax",
			files: map[string]string{"a.proto": `syntax = "proto3"; message {`},
			check: func(t *testing.T, err error) {
				var target *parser.SyntaxError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:  "duplicate",
			files: map[string]string{"a.proto": `syntax = "proto3"; message A { int32 x = 1; int32 y = 1; }`},
			check: func(t *testing.T, err error) {
				var target *parser.DuplicateDefinitionError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:  "import not found",
			files: map[string]string{"a.proto": `syntax = "proto3"; import "gone.proto";`},
			check: func(t *testing.T, err error) {
				var target *loader.ImportNotFoundError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name: "import cycle",
			files: map[string]string{
				"a.proto": `syntax = "proto3"; import "b.proto";`,
				"b.proto": `syntax = "proto3"; import "a.proto";`,
			},
			check: func(t *testing.T, err error) {
				var target *loader.ImportCycleError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name: "unresolved in import",
			files: map[string]string{
				"a.proto": `syntax = "proto3"; import "b.proto";`,
				"b.proto": `syntax = "proto3"; message B { Nope n = 1; }`,
			},
			check: func(t *testing.T, err error) {
				var target *resolve.UnresolvedTypeError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "Nope", target.Type)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			files, err := compile(t, tc.files, false, "a.proto")
			require.Error(t, err)
			assert.Nil(t, files)
			tc.check(t, err)
		})
	}
}

func TestCompileCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.proto", []byte(`syntax = "proto3";`), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Compiler{Fs: fs}).Compile(ctx, []string{"/a.proto"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompileIsFreshPerCall(t *testing.T) {
	src := map[string]string{"a.proto": `syntax = "proto3"; message A { int32 x = 1; }`}
	first, err := compile(t, src, false, "a.proto")
	require.NoError(t, err)
	second, err := compile(t, src, false, "a.proto")
	require.NoError(t, err)
	assert.NotSame(t, first[0], second[0])
	assert.Equal(t, first[0].Messages[0].FullName(), second[0].Messages[0].FullName())
}
