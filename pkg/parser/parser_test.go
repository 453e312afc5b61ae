package parser

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *ParserManager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	manager := NewParserManager(logger)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestParseTSX(t *testing.T) {
	manager := newTestManager(t)

	source := []byte(`const App = () => <Button variant="primary">Go</Button>;`)
	tree, err := manager.Parse(source, LanguageTypeScript, true)
	require.NoError(t, err)
	require.NotNil(t, tree)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "program", root.Kind())
	assert.Contains(t, root.ToSexp(), "jsx_element")
}

func TestParseJSXWithJavaScriptGrammar(t *testing.T) {
	manager := newTestManager(t)

	source := []byte(`export default function Page() { return <Card title="x" />; }`)
	tree, err := manager.ParseFile(source, "src/Page.jsx")
	require.NoError(t, err)
	defer tree.Close()

	assert.False(t, tree.RootNode().HasError())
	assert.Contains(t, tree.RootNode().ToSexp(), "jsx_self_closing_element")
}

func TestParseModernSyntax(t *testing.T) {
	manager := newTestManager(t)

	source := []byte(`
class Store {
  count = 1_000;
  #secret = null;
}
const v = a?.b ?? c;
const o = { ...rest };
`)
	tree, err := manager.ParseFile(source, "store.js")
	require.NoError(t, err)
	defer tree.Close()

	assert.False(t, tree.RootNode().HasError())
}

func TestParseFile(t *testing.T) {
	manager := newTestManager(t)

	testCases := []struct {
		fileName string
		source   string
	}{
		{"a.ts", "const x: number = 1;"},
		{"a.tsx", "const x = <div />;"},
		{"a.js", "const x = 1;"},
		{"a.jsx", "const x = <div />;"},
	}

	for _, tc := range testCases {
		t.Run(tc.fileName, func(t *testing.T) {
			tree, err := manager.ParseFile([]byte(tc.source), tc.fileName)
			require.NoError(t, err)
			defer tree.Close()
			assert.Equal(t, "program", tree.RootNode().Kind())
		})
	}
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	manager := newTestManager(t)

	tree, err := manager.ParseFile([]byte("body {}"), "style.css")
	assert.Error(t, err)
	assert.Nil(t, tree)
}

func TestLazyInitialization(t *testing.T) {
	manager := newTestManager(t)

	assert.Equal(t, 0, manager.GetStats().ParsersCreated)

	source := []byte("const x = 1;")
	for i := 0; i < 2; i++ {
		tree, err := manager.Parse(source, LanguageJavaScript, false)
		require.NoError(t, err)
		tree.Close()
	}

	stats := manager.GetStats()
	assert.Equal(t, 1, stats.ParsersCreated, "sequential parses reuse one parser")
	assert.Equal(t, 2, stats.ParsesCalled)
}

func TestParseUnknownLanguage(t *testing.T) {
	manager := newTestManager(t)

	tree, err := manager.Parse([]byte("x"), LanguageUnknown, false)
	assert.Error(t, err)
	assert.Nil(t, tree)
}

func TestParseInvalidSyntaxStillReturnsTree(t *testing.T) {
	manager := newTestManager(t)

	tree, err := manager.Parse([]byte("const x = <Button"), LanguageJavaScript, false)
	require.NoError(t, err)
	defer tree.Close()
	assert.True(t, tree.RootNode().HasError())
}

func TestLanguageDetection(t *testing.T) {
	testCases := []struct {
		filePath string
		expected Language
	}{
		{"file.ts", LanguageTypeScript},
		{"file.tsx", LanguageTypeScript},
		{"file.js", LanguageJavaScript},
		{"file.jsx", LanguageJavaScript},
		{"file.mjs", LanguageJavaScript},
		{"file.d.ts", LanguageUnknown},
		{"file.md", LanguageUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.filePath, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectLanguage(tc.filePath))
		})
	}
}

func TestIsTSXFile(t *testing.T) {
	assert.True(t, IsTSXFile("file.tsx"))
	assert.True(t, IsTSXFile("file.TSX"))
	assert.False(t, IsTSXFile("file.ts"))
	assert.False(t, IsTSXFile("file.jsx"))
}

func TestCloseClearsPools(t *testing.T) {
	manager := NewParserManager(nil)

	for _, lang := range SupportedLanguages() {
		tree, err := manager.Parse([]byte("const x = 1;"), lang, false)
		require.NoError(t, err)
		tree.Close()
	}

	require.NoError(t, manager.Close())
	assert.Empty(t, manager.pools)
}
