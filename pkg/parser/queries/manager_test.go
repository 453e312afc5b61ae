package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/mrcusage/pkg/parser"
)

func setupManagers(t *testing.T) (*parser.ParserManager, *QueryManager) {
	t.Helper()
	pm := parser.NewParserManager(nil)
	qm := NewQueryManager(pm, nil)
	t.Cleanup(func() {
		qm.Close()
		pm.Close()
	})
	return pm, qm
}

func TestReexportQueryCompilesForAllGrammars(t *testing.T) {
	_, qm := setupManagers(t)

	for _, tc := range []struct {
		lang  parser.Language
		isTSX bool
	}{
		{parser.LanguageJavaScript, false},
		{parser.LanguageTypeScript, false},
		{parser.LanguageTypeScript, true},
	} {
		query, err := qm.GetQuery(tc.lang, tc.isTSX, QueryTypeReexports)
		require.NoError(t, err, "%s tsx=%v", tc.lang, tc.isTSX)
		assert.NotNil(t, query)
	}
}

func TestGetQueryIsCached(t *testing.T) {
	_, qm := setupManagers(t)

	q1, err := qm.GetQuery(parser.LanguageJavaScript, false, QueryTypeReexports)
	require.NoError(t, err)
	q2, err := qm.GetQuery(parser.LanguageJavaScript, true, QueryTypeReexports)
	require.NoError(t, err)

	assert.Same(t, q1, q2, "isTSX is ignored for JavaScript")
}

func TestExecuteReexportQuery(t *testing.T) {
	pm, qm := setupManagers(t)

	source := []byte(`
export { default as Button } from "./Button";
export { Card, CardHeader } from './Card';
export const local = 1;
`)
	tree, err := pm.Parse(source, parser.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	query, err := qm.GetQuery(parser.LanguageTypeScript, false, QueryTypeReexports)
	require.NoError(t, err)

	matches, err := qm.ExecuteQuery(tree, query, source)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	src := matches[0].Capture("source")
	require.NotNil(t, src)
	assert.Equal(t, `"./Button"`, src.Text)
	assert.Equal(t, uint32(2), src.Line)
	assert.Equal(t, "'./Card'", matches[1].Capture("source").Text)
}

func TestExecuteQueryNilInputs(t *testing.T) {
	_, qm := setupManagers(t)

	_, err := qm.ExecuteQuery(nil, nil, nil)
	assert.Error(t, err)
}

func TestParseCaptureName(t *testing.T) {
	category, field := parseCaptureName("reexport.clause")
	assert.Equal(t, "reexport", category)
	assert.Equal(t, "clause", field)

	category, field = parseCaptureName("plain")
	assert.Equal(t, "plain", category)
	assert.Equal(t, "", field)
}
