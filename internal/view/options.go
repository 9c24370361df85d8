package view

import (
	"sort"
	"strings"

	"calibboard/internal"
)

// Options are the values offered by the subsystem and location filters.
type Options struct {
	Subsystems []string `json:"subsystems"`
	Locations  []string `json:"locations"`
}

func BuildOptions(records []internal.CanonicalRecord) Options {
	subsystems := map[string]struct{}{}
	locations := map[string]struct{}{}
	for _, r := range records {
		if s := strings.TrimSpace(r.Subsystem); s != "" {
			subsystems[s] = struct{}{}
		}
		if l := strings.TrimSpace(r.Location); l != "" {
			locations[l] = struct{}{}
		}
	}
	return Options{Subsystems: sortedKeys(subsystems), Locations: sortedKeys(locations)}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
