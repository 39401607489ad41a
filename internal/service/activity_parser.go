package service

import (
	"regexp"
	"strings"
	"unicode"

	"learnlink-server/internal/domain"
)

type activitySection int

const (
	sectionNone activitySection = iota
	sectionDescription
	sectionMaterials
	sectionSteps
	sectionTips
	sectionReflection
)

var sectionHeaders = []struct {
	prefix  string
	section activitySection
}{
	{"Materials:", sectionMaterials},
	{"Materials Needed:", sectionMaterials},
	{"Steps:", sectionSteps},
	{"Tips:", sectionTips},
	{"Reflection Questions:", sectionReflection},
}

// ParseActivities reads the "Title:/Description:/Materials:/Steps:/Tips:/Reflection Questions:"
// format and keeps only activities that pass domain.Activity.Valid.
func ParseActivities(text string) []domain.Activity {
	var (
		activities []domain.Activity
		current    *domain.Activity
		section    = sectionNone
	)

	flush := func() {
		if current != nil && current.Title != "" {
			activities = append(activities, *current)
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(stripEmphasis(raw))
		if line == "" {
			continue
		}

		if rest, ok := cutPrefixFold(line, "Title:"); ok {
			flush()
			current = &domain.Activity{Title: strings.TrimSpace(rest)}
			section = sectionNone
			continue
		}
		if current == nil {
			continue
		}
		if rest, ok := cutPrefixFold(line, "Description:"); ok {
			current.Description = strings.TrimSpace(rest)
			section = sectionDescription
			continue
		}
		if s, ok := headerSection(line); ok {
			section = s
			continue
		}

		if section == sectionDescription {
			current.Description = strings.TrimSpace(current.Description + " " + line)
			continue
		}

		item := listItem(line)
		if item == "" {
			continue
		}
		switch section {
		case sectionMaterials:
			current.Materials = append(current.Materials, item)
		case sectionSteps:
			current.Steps = append(current.Steps, item)
		case sectionTips:
			current.Tips = append(current.Tips, item)
		case sectionReflection:
			current.Reflection = append(current.Reflection, item)
		}
	}
	flush()

	valid := make([]domain.Activity, 0, len(activities))
	for _, a := range activities {
		if a.Valid() {
			valid = append(valid, a)
		}
	}
	return valid
}

func headerSection(line string) (activitySection, bool) {
	for _, h := range sectionHeaders {
		if _, ok := cutPrefixFold(line, h.prefix); ok {
			return h.section, true
		}
	}
	return sectionNone, false
}

// listItem strips a "N. ", "- " or "* " marker; bare markers and numbers yield ""
func listItem(line string) string {
	item := line
	if loc := numberedItem.FindStringIndex(line); loc != nil {
		item = line[loc[1]:]
	} else if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		item = line[2:]
	}
	item = strings.TrimSpace(item)
	if item == "-" || item == "*" || isAllDigits(strings.TrimSuffix(item, ".")) {
		return ""
	}
	return item
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

var numberedItem = regexp.MustCompile(`^\d+\.\s+`)

var suggestionMarker = regexp.MustCompile(`^\d+\.\s*|^-\s*`)

// ParseSuggestions turns a list response into one suggestion per non-empty line
func ParseSuggestions(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		clean := strings.TrimSpace(suggestionMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func stripEmphasis(s string) string {
	return strings.NewReplacer("**", "", "__", "").Replace(s)
}
