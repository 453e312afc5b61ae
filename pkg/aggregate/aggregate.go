// Package aggregate turns the flat list of usage records into report
// statistics.
package aggregate

import (
	"sort"
	"time"

	"github.com/gnana997/mrcusage/pkg/registry"
	"github.com/gnana997/mrcusage/pkg/usage"
)

// TopN caps every ranked list in the report.
const TopN = 10

// Input is everything Aggregate needs.
type Input struct {
	Records []usage.Record
	// Groups are the scanned groups, in scan order.
	Groups   []string
	Registry *registry.Registry
	// LibraryVersions maps group → version or manifest sentinel.
	LibraryVersions map[string]string
	// Config is copied verbatim into the report.
	Config      any
	GeneratedAt time.Time
}

// NameCount is a ranked (name, count) pair.
type NameCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// CustomizationTotals sums customization flags over a component's usages.
type CustomizationTotals struct {
	StyledWrapperCount       int            `json:"styled_wrapper_count" yaml:"styled_wrapper_count"`
	InlineStyleCount         int            `json:"inline_style_count" yaml:"inline_style_count"`
	OverriddenStyleKeyCounts map[string]int `json:"overridden_style_key_counts" yaml:"overridden_style_key_counts"`
}

// ComponentStatistics aggregates every record of one component.
type ComponentStatistics struct {
	ComponentName     string              `json:"component" yaml:"component"`
	TotalUsageCount   int                 `json:"total_usage_count" yaml:"total_usage_count"`
	UsageCountByGroup map[string]int      `json:"usage_count_by_group" yaml:"usage_count_by_group"`
	TopAttributes     []NameCount         `json:"top_attributes" yaml:"top_attributes"`
	DistinctFiles     []string            `json:"distinct_files" yaml:"distinct_files"`
	Customization     CustomizationTotals `json:"customization" yaml:"customization"`
	Usages            []usage.Record      `json:"usages" yaml:"usages"`
}

// Overall holds run-wide statistics.
type Overall struct {
	TotalUsages          int            `json:"total_usages" yaml:"total_usages"`
	ComponentsRegistered int            `json:"components_registered" yaml:"components_registered"`
	ComponentsUsed       int            `json:"components_used" yaml:"components_used"`
	FilesWithUsages      int            `json:"files_with_usages" yaml:"files_with_usages"`
	MostUsedComponents   []NameCount    `json:"most_used_components" yaml:"most_used_components"`
	MostUsedProps        []NameCount    `json:"most_used_props" yaml:"most_used_props"`
	GroupUsages          map[string]int `json:"group_usages" yaml:"group_usages"`
}

// Report is the root document handed to the renderer. It is never mutated
// after Aggregate returns.
type Report struct {
	GeneratedAt              time.Time             `json:"generated_at" yaml:"generated_at"`
	Config                   any                   `json:"config" yaml:"config"`
	Groups                   []string              `json:"groups" yaml:"groups"`
	LibraryVersions          map[string]string     `json:"library_versions" yaml:"library_versions"`
	Components               []ComponentStatistics `json:"components" yaml:"components"`
	UnusedComponents         []registry.Entry      `json:"unused_components" yaml:"unused_components"`
	UnusedComponentsPerGroup map[string][]string   `json:"unused_components_per_group" yaml:"unused_components_per_group"`
	Overall                  Overall               `json:"overall" yaml:"overall"`
}

// counter counts names and remembers first-seen order for tie-breaking.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(name string, n int) {
	if _, ok := c.counts[name]; !ok {
		c.order = append(c.order, name)
	}
	c.counts[name] += n
}

// top returns the n highest counts, ties in first-seen order.
func (c *counter) top(n int) []NameCount {
	out := make([]NameCount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, NameCount{Name: name, Count: c.counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Aggregate builds the report. It is pure: the same input, including record
// order, always produces the same report.
func Aggregate(in Input) *Report {
	byName := make(map[string]*ComponentStatistics)
	var order []string
	attrCounters := make(map[string]*counter)
	files := make(map[string]map[string]bool)

	props := newCounter()
	groupUsages := make(map[string]int, len(in.Groups))
	for _, g := range in.Groups {
		groupUsages[g] = 0
	}
	allFiles := make(map[string]bool)

	for _, rec := range in.Records {
		stats, ok := byName[rec.ComponentName]
		if !ok {
			stats = &ComponentStatistics{
				ComponentName:     rec.ComponentName,
				UsageCountByGroup: make(map[string]int),
				Customization: CustomizationTotals{
					OverriddenStyleKeyCounts: make(map[string]int),
				},
			}
			byName[rec.ComponentName] = stats
			order = append(order, rec.ComponentName)
			attrCounters[rec.ComponentName] = newCounter()
			files[rec.ComponentName] = make(map[string]bool)
		}

		stats.TotalUsageCount++
		stats.UsageCountByGroup[rec.Group]++
		stats.Usages = append(stats.Usages, rec)
		files[rec.ComponentName][rec.SourceFile] = true
		allFiles[rec.SourceFile] = true
		groupUsages[rec.Group]++

		for _, attr := range rec.Attributes {
			attrCounters[rec.ComponentName].add(attr.Name, 1)
			props.add(attr.Name, 1)
		}

		if rec.Customization.IsWrappedInStyledWrapper {
			stats.Customization.StyledWrapperCount++
		}
		if rec.Customization.HasInlineStyleOverride {
			stats.Customization.InlineStyleCount++
		}
		for _, key := range rec.Customization.OverriddenStyleKeys {
			stats.Customization.OverriddenStyleKeyCounts[key]++
		}
	}

	components := make([]ComponentStatistics, 0, len(order))
	for _, name := range order {
		stats := byName[name]
		stats.TopAttributes = attrCounters[name].top(TopN)
		stats.DistinctFiles = sortedKeys(files[name])
		components = append(components, *stats)
	}
	sort.SliceStable(components, func(i, j int) bool {
		return components[i].TotalUsageCount > components[j].TotalUsageCount
	})

	mostUsed := make([]NameCount, 0, TopN)
	for i := 0; i < len(components) && i < TopN; i++ {
		mostUsed = append(mostUsed, NameCount{Name: components[i].ComponentName, Count: components[i].TotalUsageCount})
	}

	var entries []registry.Entry
	if in.Registry != nil {
		entries = in.Registry.Entries()
	}

	unused := []registry.Entry{}
	for _, e := range entries {
		if _, used := byName[e.ExportedName]; !used {
			unused = append(unused, e)
		}
	}

	unusedPerGroup := make(map[string][]string, len(in.Groups))
	for _, g := range in.Groups {
		names := []string{}
		for _, e := range entries {
			if stats, ok := byName[e.ExportedName]; !ok || stats.UsageCountByGroup[g] == 0 {
				names = append(names, e.ExportedName)
			}
		}
		unusedPerGroup[g] = names
	}

	versions := make(map[string]string, len(in.LibraryVersions))
	for g, v := range in.LibraryVersions {
		versions[g] = v
	}

	groups := make([]string, len(in.Groups))
	copy(groups, in.Groups)

	return &Report{
		GeneratedAt:              in.GeneratedAt,
		Config:                   in.Config,
		Groups:                   groups,
		LibraryVersions:          versions,
		Components:               components,
		UnusedComponents:         unused,
		UnusedComponentsPerGroup: unusedPerGroup,
		Overall: Overall{
			TotalUsages:          len(in.Records),
			ComponentsRegistered: len(entries),
			ComponentsUsed:       len(components),
			FilesWithUsages:      len(allFiles),
			MostUsedComponents:   mostUsed,
			MostUsedProps:        props.top(TopN),
			GroupUsages:          groupUsages,
		},
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
