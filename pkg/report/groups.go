package report

import (
	"sort"
	"strings"

	"vavmerge/pkg/engine"
)

// statusRank orders statuses from best to worst.
var statusRank = map[engine.Status]int{
	engine.StatusPass:     0,
	engine.StatusWarning:  1,
	engine.StatusNotFound: 2,
	engine.StatusFail:     3,
}

// Group collects the results of units sharing a tag prefix, usually one
// floor or zone: V-1-01 and V-1-12 both belong to V-1.
type Group struct {
	Prefix  string         `json:"prefix" yaml:"prefix"`
	Worst   engine.Status  `json:"worst_status" yaml:"worst_status"`
	Summary engine.Summary `json:"summary" yaml:"summary"`
	Units   []string       `json:"units" yaml:"units"`
}

// TagPrefix is the tag without its last dash-separated segment.
func TagPrefix(tag string) string {
	if i := strings.LastIndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}

// GroupResults groups comparison results by tag prefix, sorted by prefix.
// Each group carries its own status counts and its worst status.
func GroupResults(results []engine.Result) []Group {
	byPrefix := make(map[string]*Group)
	for _, r := range results {
		tag := r.NormalizedTag
		if tag == "" {
			tag = r.RawTag
		}
		prefix := TagPrefix(tag)
		g, ok := byPrefix[prefix]
		if !ok {
			g = &Group{Prefix: prefix, Worst: engine.StatusPass}
			byPrefix[prefix] = g
		}
		g.Units = append(g.Units, r.UnitTag)
		addStatus(&g.Summary, r.Status)
		if statusRank[r.Status] > statusRank[g.Worst] {
			g.Worst = r.Status
		}
	}

	groups := make([]Group, 0, len(byPrefix))
	for _, g := range byPrefix {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Prefix < groups[j].Prefix })
	return groups
}

func addStatus(s *engine.Summary, status engine.Status) {
	s.Total++
	switch status {
	case engine.StatusPass:
		s.Pass++
	case engine.StatusWarning:
		s.Warning++
	case engine.StatusFail:
		s.Fail++
	case engine.StatusNotFound:
		s.NotFound++
	}
}
