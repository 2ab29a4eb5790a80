package homeaccess

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// District identifies one Home Access Center installation. Database is the
// value of the portal's district <select> on shared installations, empty
// when the installation serves a single district.
type District struct {
	Name     string
	BaseUrl  string
	Database string
}

// DefaultDistrict is the district assumed when none is given, matching the
// original single-district deployment.
const DefaultDistrict = "Bentonville School District"

// knownDistricts is the table of portal installations this scraper knows how
// to log into. Districts sharing an installation are told apart by their
// Database code.
var knownDistricts = []District{
	{
		Name:     "Bentonville School District",
		BaseUrl:  "https://hac23.esp.k12.ar.us",
		Database: "10",
	},
	{
		Name:     "Rogers School District",
		BaseUrl:  "https://hac23.esp.k12.ar.us",
		Database: "20",
	},
	{
		Name:     "Springdale School District",
		BaseUrl:  "https://hac20.esp.k12.ar.us",
		Database: "10",
	},
	{
		Name:     "Fayetteville School District",
		BaseUrl:  "https://hac31.esp.k12.ar.us",
		Database: "10",
	},
}

// a jaro-winkler score below this is not considered the same district name
const districtSimilarityThreshold = 0.9

func normalizeDistrictName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// ResolveDistrict maps a user-supplied district name onto the known district
// table. Exact (case and whitespace insensitive) matches win, otherwise the
// most similar name above the similarity threshold is taken, so that
// "Bentonville Schools" still resolves. Returns ErrUnknownDistrict when
// nothing comes close.
func ResolveDistrict(name string) (District, error) {
	normalized := normalizeDistrictName(name)
	if normalized == "" {
		return District{}, ErrUnknownDistrict
	}

	for _, d := range knownDistricts {
		if normalizeDistrictName(d.Name) == normalized {
			return d, nil
		}
	}

	best := District{}
	bestScore := 0.0
	for _, d := range knownDistricts {
		score := matchr.JaroWinkler(normalizeDistrictName(d.Name), normalized, false)
		if score > bestScore {
			best = d
			bestScore = score
		}
	}
	if bestScore >= districtSimilarityThreshold {
		return best, nil
	}

	return District{}, ErrUnknownDistrict
}

// KnownDistricts returns the district table in declaration order, for
// rendering pickers and CLI help.
func KnownDistricts() []District {
	out := make([]District, len(knownDistricts))
	copy(out, knownDistricts)
	return out
}
