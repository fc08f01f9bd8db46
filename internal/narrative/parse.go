package narrative

import (
	"strings"
	"unicode"

	"github.com/costoptimizer/backend/internal/model"
)

// MaxItems caps the number of parsed recommendations.
const MaxItems = 5

// Parse splits free text into recommendations. A line starting with a list
// marker opens a new item; any other non-blank line is appended to the open
// item, or dropped when none is open yet.
func Parse(text string) []model.Recommendation {
	var (
		items   []model.Recommendation
		current *model.Recommendation
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if n := markerLen(line); n > 0 {
			if current != nil {
				items = append(items, *current)
			}
			current = &model.Recommendation{
				Type:        model.RecommendationTypeAI,
				Title:       title(line[n:]),
				Description: line,
				Priority:    "medium",
			}
			continue
		}

		if current != nil {
			current.Description += " " + line
		}
	}
	if current != nil {
		items = append(items, *current)
	}

	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	if items == nil {
		items = []model.Recommendation{}
	}
	return items
}

// markerLen returns the byte length of the "N." or bullet prefix of line,
// or 0 when line does not start with one.
func markerLen(line string) int {
	for _, bullet := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, bullet) {
			return len(bullet)
		}
	}
	digits := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits > 0 && line[digits] == '.' {
		return digits + 1
	}
	return 0
}

// title is the text after the marker up to the first colon.
func title(rest string) string {
	if i := strings.Index(rest, ":"); i >= 0 {
		rest = rest[:i]
	}
	return strings.Trim(strings.TrimSpace(rest), "*")
}
