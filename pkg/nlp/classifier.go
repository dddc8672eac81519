package nlp

import (
	"strings"
	"unicode"
)

// Report categories.
const (
	CategoryInfrastructure = "infrastructure"
	CategoryUtility        = "utility"
	CategorySafety         = "safety"
	CategoryEnvironment    = "environment"
	CategoryHealth         = "health"
	CategoryOther          = "other"
)

// Categories lists every category in tie-break order.
var Categories = []string{
	CategoryInfrastructure,
	CategoryUtility,
	CategorySafety,
	CategoryEnvironment,
	CategoryHealth,
	CategoryOther,
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

var categoryKeywords = map[string][]string{
	CategoryInfrastructure: {
		"road", "pothole", "potholes", "bridge", "streetlight", "streetlights", "street light",
		"traffic", "pavement", "sidewalk", "footpath", "drainage", "culvert", "building", "construction",
	},
	CategoryUtility: {
		"water", "pipe", "pipes", "main", "electricity", "power", "outage", "blackout", "transformer",
		"gas", "leak", "leaking", "meter", "sewer", "sewage", "tap", "supply",
	},
	CategorySafety: {
		"crime", "theft", "robbery", "mugging", "assault", "fire", "accident", "violence", "unsafe",
		"security", "attack", "danger", "dangerous", "hazard", "collapsed",
	},
	CategoryEnvironment: {
		"garbage", "waste", "trash", "rubbish", "dumping", "pollution", "polluted", "smoke", "noise",
		"flooding", "flood", "trees", "tree", "river", "littering",
	},
	CategoryHealth: {
		"hospital", "clinic", "disease", "outbreak", "cholera", "sanitation", "medical", "sick",
		"mosquito", "mosquitoes", "toilet", "toilets",
	},
}

// Classification is a category with a confidence in [0,1].
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// KeywordClassifier scores each category by keyword hits.
type KeywordClassifier struct{}

// Classify returns the category with most keyword hits. Text with no hits is "other".
func (KeywordClassifier) Classify(text string) Classification {
	lower := strings.ToLower(text)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}

	best, bestHits := CategoryOther, 0
	for _, category := range Categories {
		hits := 0
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					hits++
				}
				continue
			}
			if words[kw] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = category, hits
		}
	}

	if bestHits == 0 {
		return Classification{Category: CategoryOther, Confidence: 0.3}
	}
	confidence := 0.5 + 0.1*float64(bestHits)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return Classification{Category: best, Confidence: confidence}
}
