package feature

import (
	"sort"

	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
)

// Feature is one paid capability: its credit cost and the account flags it
// requires before the eligibility gate lets it run.
type Feature struct {
	Key      string        `json:"key"`
	Name     string        `json:"name"`
	Cost     int64         `json:"cost"`
	Requires []ledger.Flag `json:"requires,omitempty"`
}

var catalog = map[string]Feature{
	"script": {
		Key:      "script",
		Name:     "Script generation",
		Cost:     1,
		Requires: []ledger.Flag{ledger.FlagAITrained},
	},
	"research": {
		Key:      "research",
		Name:     "Topic research",
		Cost:     1,
		Requires: []ledger.Flag{ledger.FlagAITrained},
	},
	"thumbnail": {
		Key:  "thumbnail",
		Name: "Thumbnail concepts",
		Cost: 1,
	},
	"subtitles": {
		Key:      "subtitles",
		Name:     "Subtitle generation",
		Cost:     1,
		Requires: []ledger.Flag{ledger.FlagPlatformConnected},
	},
	"dubbing": {
		Key:      "dubbing",
		Name:     "Voice dubbing",
		Cost:     2,
		Requires: []ledger.Flag{ledger.FlagPlatformConnected},
	},
}

// Lookup resolves a feature by key.
func Lookup(key string) (Feature, bool) {
	f, ok := catalog[key]
	return f, ok
}

// All lists the catalog in stable key order.
func All() []Feature {
	out := make([]Feature, 0, len(catalog))
	for _, f := range catalog {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
