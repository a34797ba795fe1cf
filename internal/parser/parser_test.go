package parser

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zouzou-2006/algovision/internal/ir"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"python", "python"},
		{"py", "python"},
		{"Python", "python"},
		{"csharp", "csharp"},
		{"c#", "csharp"},
		{"cs", "csharp"},
		{"c_sharp", "csharp"},
		{"ruby", ""},
	}
	for _, tt := range tests {
		got, ok := Canonical(tt.in)
		assert.Equal(t, tt.want, got, "Canonical(%q)", tt.in)
		assert.Equal(t, tt.want != "", ok, "Canonical(%q) ok", tt.in)
	}
}

func TestLanguageForFile(t *testing.T) {
	lang, ok := LanguageForFile("pkg/main.py")
	require.True(t, ok)
	assert.Equal(t, "python", lang)

	lang, ok = LanguageForFile("Service.cs")
	require.True(t, ok)
	assert.Equal(t, "csharp", lang)

	_, ok = LanguageForFile("main.go")
	assert.False(t, ok)
}

func TestSupported(t *testing.T) {
	assert.Equal(t, []string{"csharp", "python"}, Supported())
}

func TestWarmup(t *testing.T) {
	require.NoError(t, Warmup(context.Background()))
	require.NoError(t, Warmup(context.Background()), "warmup is idempotent")
}

func TestParse_Python(t *testing.T) {
	tree, err := Parse(context.Background(), "python", []byte("def f():\n    pass\n"), nil)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "module", root.Type())
	assert.False(t, root.HasError())
}

func TestParse_CSharp(t *testing.T) {
	tree, err := Parse(context.Background(), "csharp", []byte("class C { void M() { } }"), nil)
	require.NoError(t, err)
	defer tree.Close()
	assert.False(t, tree.RootNode().HasError())
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	_, err := Parse(context.Background(), "cobol", []byte(""), nil)
	assert.Error(t, err)
}

func TestParse_IncrementalMatchesFresh(t *testing.T) {
	ctx := context.Background()
	oldSrc := []byte("def f():\n    return 1\n")
	newSrc := []byte("def f():\n    return 2\n")

	prev, err := Parse(ctx, "python", oldSrc, nil)
	require.NoError(t, err)
	defer prev.Close()

	// Replace the "1" with "2" (byte 20).
	prev.Edit(sitter.EditInput{
		StartIndex:  20,
		OldEndIndex: 21,
		NewEndIndex: 21,
		StartPoint:  sitter.Point{Row: 1, Column: 11},
		OldEndPoint: sitter.Point{Row: 1, Column: 12},
		NewEndPoint: sitter.Point{Row: 1, Column: 12},
	})

	incr, err := Parse(ctx, "python", newSrc, prev)
	require.NoError(t, err)
	defer incr.Close()

	fresh, err := Parse(ctx, "python", newSrc, nil)
	require.NoError(t, err)
	defer fresh.Close()

	assert.Equal(t, fresh.RootNode().String(), incr.RootNode().String())
}

func TestFirstErrorNode(t *testing.T) {
	ctx := context.Background()

	clean, err := Parse(ctx, "python", []byte("x = 1\n"), nil)
	require.NoError(t, err)
	defer clean.Close()
	assert.Nil(t, FirstErrorNode(clean.RootNode()))

	broken, err := Parse(ctx, "python", []byte("def f(:\n"), nil)
	require.NoError(t, err)
	defer broken.Close()
	assert.NotNil(t, FirstErrorNode(broken.RootNode()))
}

func TestSource_TextAndRange(t *testing.T) {
	ctx := context.Background()
	code := "def f():\n    pass\n"
	tree, err := Parse(ctx, "python", []byte(code), nil)
	require.NoError(t, err)
	defer tree.Close()

	src := NewSource([]byte(code))
	fn := tree.RootNode().NamedChild(0)
	require.Equal(t, "function_definition", fn.Type())

	assert.Equal(t, "def f():\n    pass", src.Text(fn))
	rng := src.RangeOf(fn)
	assert.Equal(t, ir.Position{Line: 1, Column: 1}, rng.Start)
	assert.Equal(t, ir.Position{Line: 2, Column: 9}, rng.End)
}

func TestSource_PositionMultiByte(t *testing.T) {
	// é is two bytes; 1-based columns count characters.
	src := NewSource([]byte("x = \"é\"\ny = 1\n"))
	pos := src.Position(sitter.Point{Row: 0, Column: 5})
	assert.Equal(t, ir.Position{Line: 1, Column: 6}, pos)
	pos = src.Position(sitter.Point{Row: 1, Column: 0})
	assert.Equal(t, ir.Position{Line: 2, Column: 1}, pos)
}
