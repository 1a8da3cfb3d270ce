package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pageza/datemeal/backend/internal/types"
)

// Snippet heuristics used by the web grounder. All of them are pure
// functions over search-result text.

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

	marketingSuffixPattern = regexp.MustCompile(`(?i)\s*[-–|]\s*.*(official|restaurant|menu|reviews|reservations).*`)
	listingSuffixPattern   = regexp.MustCompile(`(?i)\s*[-–|]\s*.*\b(yelp|tripadvisor|opentable)\b.*`)

	decimalRatingPattern = regexp.MustCompile(`(\d\.\d)\s*stars?|\b(\d\.\d)\b`)
	integerRatingPattern = regexp.MustCompile(`(\d)[ -]stars?|\b(\d)[ -]star\b`)

	expensivePattern = regexp.MustCompile(`(?i)\bexpensive\b`)
	moderatePattern  = regexp.MustCompile(`(?i)\bmoderate\b`)
	cheapPattern     = regexp.MustCompile(`(?i)\b(cheap|budget)\b`)
)

// knownLocations is checked in order; the first token found wins
var knownLocations = []string{"Manhattan", "Brooklyn", "Queens", "Bronx", "Staten Island", "NYC", "New York"}

var cuisineVocabulary = []string{
	"Italian", "Japanese", "Thai", "Mexican", "French",
	"Mediterranean", "American", "Chinese", "Indian",
	"Korean", "Vietnamese", "Greek", "Spanish", "Sushi",
	"Pizza", "Burger", "Steakhouse", "Seafood", "Vegetarian",
}

var cuisinePatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(cuisineVocabulary))
	for i, c := range cuisineVocabulary {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(c) + `\b`)
	}
	return patterns
}()

// ExtractJSON pulls the JSON payload out of a model response: a fenced code
// block first, then the outermost {...} span, then the whole body.
func ExtractJSON(content string) string {
	if m := fencedBlockPattern.FindStringSubmatch(content); m != nil {
		if inner := strings.TrimSpace(m[1]); inner != "" {
			return inner
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(content[start : end+1])
	}
	return strings.TrimSpace(content)
}

// CleanRestaurantName strips listing and marketing suffixes such as
// "| Official Site" or "- Yelp" from a search result title.
func CleanRestaurantName(title string) string {
	name := marketingSuffixPattern.ReplaceAllString(title, "")
	name = listingSuffixPattern.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// ExtractLocation returns the first known borough or city mentioned in text
func ExtractLocation(text string) string {
	for _, loc := range knownLocations {
		if strings.Contains(text, loc) {
			return loc
		}
	}
	return ""
}

// ExtractCuisine returns the first cuisine of the fixed vocabulary mentioned in text
func ExtractCuisine(text string) string {
	for i, p := range cuisinePatterns {
		if p.MatchString(text) {
			return cuisineVocabulary[i]
		}
	}
	return ""
}

// ExtractPriceTier infers a price tier, checking $$$, then $$, then $
func ExtractPriceTier(text string) string {
	switch {
	case strings.Contains(text, "$$$") || expensivePattern.MatchString(text):
		return "$$$"
	case strings.Contains(text, "$$") || moderatePattern.MatchString(text):
		return "$$"
	case strings.Contains(text, "$") || cheapPattern.MatchString(text):
		return "$"
	}
	return ""
}

// ExtractRating finds a rating like "4.5 stars", "4.5" or "4-star" in text.
// It returns 0 when nothing in [1, 5] is found.
func ExtractRating(text string) float64 {
	if m := decimalRatingPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(firstNonEmpty(m[1], m[2]), 64); err == nil && validRating(v) {
			return v
		}
	}
	if m := integerRatingPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(firstNonEmpty(m[1], m[2])); err == nil && validRating(float64(v)) {
			return float64(v)
		}
	}
	return 0
}

// NormalizePriceTier maps free-form price text onto $..$$$$, or "" if unknown.
// Ranges such as "$$-$$$" resolve to their upper end.
func NormalizePriceTier(price string) string {
	price = strings.TrimSpace(price)
	if price == "" {
		return ""
	}
	longest, run := 0, 0
	for _, r := range price {
		if r == '$' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	if longest > 0 {
		return types.PriceTiers[min(longest, len(types.PriceTiers))-1]
	}
	return ExtractPriceTier(price)
}

var preferenceKeywords = []struct {
	tag      string
	keywords []string
}{
	{"italian", []string{"italian", "pasta", "pizza"}},
	{"japanese", []string{"japanese", "sushi", "ramen"}},
	{"chinese", []string{"chinese", "dim sum", "szechuan"}},
	{"mexican", []string{"mexican", "tacos", "burritos"}},
	{"indian", []string{"indian", "curry", "tandoori"}},
	{"french", []string{"french", "bistro", "patisserie"}},
	{"thai", []string{"thai", "pad thai", "curry"}},
	{"american", []string{"american", "burgers", "steaks"}},
	{"budget", []string{"cheap", "affordable", "budget", "inexpensive"}},
	{"moderate", []string{"moderate", "reasonable", "mid-range", "mid price"}},
	{"upscale", []string{"upscale", "fancy", "fine dining", "high-end"}},
	{"luxury", []string{"luxury", "expensive", "exclusive", "premium"}},
	{"romantic", []string{"romantic", "date night"}},
	{"quiet", []string{"quiet", "peaceful"}},
	{"vegetarian", []string{"vegetarian"}},
	{"vegan", []string{"vegan"}},
}

// ExtractPreferences pulls preference tags out of a free-text chat message
func ExtractPreferences(message string) []string {
	lower := strings.ToLower(message)
	var prefs []string
	for _, group := range preferenceKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				prefs = append(prefs, group.tag)
				break
			}
		}
	}
	return prefs
}

func validRating(v float64) bool {
	return v >= 1.0 && v <= 5.0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
