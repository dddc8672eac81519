package nlp

import (
	"regexp"
	"strings"
)

// Entities are the named things mentioned in a report.
type Entities struct {
	Organisations []string `json:"organisations"`
	Locations     []string `json:"locations"`
	Persons       []string `json:"persons"`
}

var (
	capitalisedPhrase = regexp.MustCompile(`\b(?:[A-Z][a-zA-Z'&.-]*)(?:\s+(?:of\s+|the\s+)?[A-Z][a-zA-Z'&.-]*)*`)
	personPattern     = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Hon|Prof)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	locationLead      = regexp.MustCompile(`\b(?:in|at|on|near|along|around|outside|opposite)\s+((?:the\s+)?[A-Z][a-zA-Z'-]*(?:\s+[A-Z][a-zA-Z'-]*)*)`)
	acronym           = regexp.MustCompile(`^[A-Z]{2,6}$`)
)

var orgSuffixes = []string{
	"company", "authority", "ltd", "limited", "county", "council", "agency", "ministry",
	"department", "police", "service", "services", "board", "corporation", "commission", "government",
}

var locationSuffixes = []string{
	"street", "st", "road", "rd", "avenue", "ave", "estate", "drive", "lane", "highway", "market",
	"park", "stage", "junction", "roundabout", "town", "city", "village",
}

var stopPhrases = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "There": true, "It": true, "We": true, "I": true,
	"Our": true, "Please": true, "Since": true, "Yesterday": true, "Today": true,
}

// ExtractEntities finds organisations, locations and persons with capitalisation heuristics.
func ExtractEntities(text string) Entities {
	e := Entities{Organisations: []string{}, Locations: []string{}, Persons: []string{}}
	seen := map[string]bool{}
	add := func(list *[]string, v string) {
		v = strings.TrimSpace(strings.TrimPrefix(v, "the "))
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		*list = append(*list, v)
	}

	for _, m := range personPattern.FindAllStringSubmatch(text, -1) {
		add(&e.Persons, m[1])
	}
	for _, m := range locationLead.FindAllStringSubmatch(text, -1) {
		if !isOrganisation(m[1]) {
			add(&e.Locations, m[1])
		}
	}
	for _, phrase := range capitalisedPhrase.FindAllString(text, -1) {
		phrase = strings.TrimRight(phrase, ".")
		if stopPhrases[phrase] {
			continue
		}
		switch {
		case isOrganisation(phrase):
			add(&e.Organisations, phrase)
		case hasSuffix(phrase, locationSuffixes):
			add(&e.Locations, phrase)
		}
	}
	return e
}

func isOrganisation(phrase string) bool {
	if acronym.MatchString(phrase) {
		return true
	}
	return hasSuffix(phrase, orgSuffixes)
}

func hasSuffix(phrase string, suffixes []string) bool {
	fields := strings.Fields(strings.ToLower(phrase))
	if len(fields) == 0 {
		return false
	}
	last := strings.TrimRight(fields[len(fields)-1], ".")
	for _, s := range suffixes {
		if last == s {
			return true
		}
	}
	return false
}
