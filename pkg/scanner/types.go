// Package scanner finds the source files of each scanned group (a logical
// code area, such as one micro-frontend) and the groups available under a
// groups root.
package scanner

// ScanConfig configures file discovery.
type ScanConfig struct {
	// Include glob patterns for file matching, relative to the group root.
	Include []string
	// Exclude glob patterns. A matching directory is skipped entirely.
	Exclude []string
}

// DefaultScanConfig returns the default configuration: JavaScript and
// TypeScript sources, excluding dependencies, build output, declaration
// files, and test/story/mock files.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Include: []string{
			"**/*.ts",
			"**/*.tsx",
			"**/*.js",
			"**/*.jsx",
			"**/*.mjs",
			"**/*.cjs",
		},
		Exclude: []string{
			"**/node_modules/**",
			"**/.git/**",
			"**/dist/**",
			"**/build/**",
			"**/.next/**",
			"**/coverage/**",
			"**/out/**",
			"**/storybook-static/**",
			".mrcusage/**",
			"**/*.d.ts",
			"**/*.test.*",
			"**/*.spec.*",
			"**/*.stories.*",
			"**/*.story.*",
			"**/__tests__/**",
			"**/__mocks__/**",
			"**/__snapshots__/**",
		},
	}
}

// Group is one scanned code area.
type Group struct {
	Name string `json:"name" yaml:"name"`
	Root string `json:"root" yaml:"root"`
}

// SourceFile is a discovered file tagged with its owning group.
type SourceFile struct {
	// Path is absolute.
	Path  string
	Group string
}

// DiscoveryStats counts discovery results per group.
type DiscoveryStats struct {
	FilesPerGroup map[string]int
	MissingGroups []string
	Duplicates    int
}
