package extract

import (
	"sort"
	"strings"

	"github.com/reliefops/relief-coordinator/pkg/geo"
)

// Entry is one named place the gazetteer can resolve.
type Entry struct {
	Name     string
	Location geo.Location
}

// wncLandmarks are the towns and landmarks of the operating region.
// Shelters are deliberately absent: they are destinations, never
// origins.
var wncLandmarks = []Entry{
	{"Asheville Regional Airport", geo.Location{Lat: 35.4363, Lon: -82.5418}},
	{"Asheville Downtown", geo.Location{Lat: 35.5951, Lon: -82.5515}},
	{"Hendersonville", geo.Location{Lat: 35.4368, Lon: -82.4573}},
	{"Black Mountain", geo.Location{Lat: 35.6178, Lon: -82.3215}},
	{"Brevard", geo.Location{Lat: 35.2334, Lon: -82.7343}},
	{"Boone", geo.Location{Lat: 36.2168, Lon: -81.6746}},
	{"Cherokee", geo.Location{Lat: 35.4743, Lon: -83.3146}},
	{"Mars Hill", geo.Location{Lat: 35.7965, Lon: -82.5493}},
	{"Waynesville", geo.Location{Lat: 35.4887, Lon: -82.9887}},
	{"Weaverville", geo.Location{Lat: 35.6973, Lon: -82.5607}},
	{"Swannanoa", geo.Location{Lat: 35.5982, Lon: -82.3990}},
	{"Canton", geo.Location{Lat: 35.5329, Lon: -82.8373}},
	{"Marion", geo.Location{Lat: 35.6840, Lon: -82.0093}},
	{"Burnsville", geo.Location{Lat: 35.9174, Lon: -82.2929}},
	{"Spruce Pine", geo.Location{Lat: 35.9154, Lon: -82.0646}},
	{"Sylva", geo.Location{Lat: 35.3734, Lon: -83.2257}},
	{"Bryson City", geo.Location{Lat: 35.4312, Lon: -83.4496}},
	{"Old Fort", geo.Location{Lat: 35.6276, Lon: -82.1735}},
	{"Linville Falls", geo.Location{Lat: 35.9503, Lon: -81.9285}},
	{"Fletcher", geo.Location{Lat: 35.4307, Lon: -82.5010}},
	{"Arden", geo.Location{Lat: 35.4698, Lon: -82.5151}},
	{"Enka", geo.Location{Lat: 35.5373, Lon: -82.6413}},
	{"West Asheville", geo.Location{Lat: 35.5780, Lon: -82.5860}},
	{"Biltmore Village", geo.Location{Lat: 35.5707, Lon: -82.5430}},
	{"River Arts District", geo.Location{Lat: 35.5750, Lon: -82.5680}},
}

type gazetteerEntry struct {
	keywords []string
	maxLen   int
	entry    Entry
}

// Gazetteer resolves origin mentions in free text against depots and
// landmarks.
type Gazetteer struct {
	entries []gazetteerEntry
}

// NewGazetteer builds a gazetteer from the region's landmarks plus any
// extra entries, typically the supply depots from the shelter roster.
func NewGazetteer(extra []Entry) *Gazetteer {
	g := &Gazetteer{}
	for _, e := range extra {
		g.add(e)
	}
	for _, e := range wncLandmarks {
		g.add(e)
	}
	// Longest keyword first, so "Asheville Regional Airport" beats
	// "Asheville".
	sort.SliceStable(g.entries, func(i, j int) bool {
		return g.entries[i].maxLen > g.entries[j].maxLen
	})
	return g
}

func (g *Gazetteer) add(e Entry) {
	if e.Name == "" || !e.Location.Valid() {
		return
	}
	name := strings.ToLower(e.Name)
	keywords := []string{name}
	for _, word := range strings.Fields(name) {
		if len(word) >= 4 {
			keywords = append(keywords, word)
		}
	}
	maxLen := 0
	for _, k := range keywords {
		if len(k) > maxLen {
			maxLen = len(k)
		}
	}
	g.entries = append(g.entries, gazetteerEntry{
		keywords: keywords,
		maxLen:   maxLen,
		entry:    e,
	})
}

// Match finds the first gazetteer entry whose name or any word of at
// least four letters appears in the text. Returns false when nothing
// matches; callers must not substitute a default.
func (g *Gazetteer) Match(text string) (geo.Location, bool) {
	lower := strings.ToLower(text)
	for _, ge := range g.entries {
		for _, kw := range ge.keywords {
			if strings.Contains(lower, kw) {
				loc := ge.entry.Location
				loc.Address = ge.entry.Name
				return loc, true
			}
		}
	}
	return geo.Location{}, false
}
