package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_BothDirections(t *testing.T) {
	r := Build([]Definition{
		{ExportedName: "Widget", Path: "src/components/Widget.tsx"},
		{ExportedName: "MrcButton", Path: "src/components/Button/Button.jsx"},
	})

	assert.Equal(t, 2, r.Len())

	file, ok := r.FileOf("MrcButton")
	assert.True(t, ok)
	assert.Equal(t, "Button", file)

	name, ok := r.NameOf("Button")
	assert.True(t, ok)
	assert.Equal(t, "MrcButton", name)

	_, ok = r.FileOf("Missing")
	assert.False(t, ok)
}

func TestResolve_ExportThenFileName(t *testing.T) {
	r := Build([]Definition{{ExportedName: "MrcButton", Path: "Button.tsx"}})

	name, ok := r.Resolve("MrcButton")
	assert.True(t, ok)
	assert.Equal(t, "MrcButton", name)

	name, ok = r.Resolve("Button")
	assert.True(t, ok)
	assert.Equal(t, "MrcButton", name)

	_, ok = r.Resolve("Unknown")
	assert.False(t, ok)
}

func TestBuild_CollisionLastWriteWins(t *testing.T) {
	r := Build([]Definition{
		{ExportedName: "Card", Path: "a/Card.tsx"},
		{ExportedName: "Card", Path: "b/CardV2.tsx"},
	})

	assert.Equal(t, 1, r.Len())
	file, _ := r.FileOf("Card")
	assert.Equal(t, "CardV2", file)
	assert.Equal(t, []Entry{{ExportedName: "Card", DefinitionFileBaseName: "CardV2"}}, r.Entries())

	// The stale reverse mapping stays: the model never crashes on collisions.
	name, ok := r.NameOf("Card")
	assert.True(t, ok)
	assert.Equal(t, "Card", name)
}

func TestBuild_SkipsEmptyNames(t *testing.T) {
	r := Build([]Definition{{ExportedName: "", Path: "x.tsx"}})
	assert.Equal(t, 0, r.Len())
}

func TestFileBaseName(t *testing.T) {
	cases := map[string]string{
		"src/Button.tsx":        "Button",
		"Button":                "Button",
		"./Button":              "Button",
		"Button/index.tsx":      "Button",
		`src\Dialog\Dialog.jsx`: "Dialog",
		"index.js":              "index",
		"":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileBaseName(in), in)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	r := Build([]Definition{{ExportedName: "Widget", Path: "Widget.tsx"}})
	entries := r.Entries()
	entries[0].ExportedName = "Mutated"
	assert.Equal(t, "Widget", r.Entries()[0].ExportedName)
}
