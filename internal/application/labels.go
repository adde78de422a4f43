package application

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

// DefaultLabelSimilarity is the minimum similarity for a critic label to be
// matched to a topic it does not spell exactly.
const DefaultLabelSimilarity = 0.8

// labelResolver maps the topic labels written by the critic back to topics.
// Critics echo the delimiters they were given, but occasionally change case,
// spacing, or an ampersand.
type labelResolver struct {
	topics    domain.TopicSet
	threshold float64
}

func newLabelResolver(topics domain.TopicSet, threshold float64) *labelResolver {
	return &labelResolver{topics: topics, threshold: threshold}
}

// resolve returns the topic named by label. Matching is exact first, then
// case- and space-insensitive, then the most similar topic whose similarity
// reaches the threshold. Ties go to the earlier topic.
func (r *labelResolver) resolve(label string) (domain.Topic, bool) {
	if t, ok := r.topics.Lookup(label); ok {
		return t, true
	}

	want := normalizeLabel(label)
	if want == "" {
		return domain.Topic{}, false
	}
	topics := r.topics.Topics()
	for _, t := range topics {
		if normalizeLabel(t.Label) == want {
			return t, true
		}
	}

	var (
		best      domain.Topic
		bestScore float64
	)
	for _, t := range topics {
		if score := similarity(want, normalizeLabel(t.Label)); score > bestScore {
			best, bestScore = t, score
		}
	}
	if bestScore >= r.threshold {
		return best, true
	}
	return domain.Topic{}, false
}

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// similarity returns 1 - distance/maxLen, in [0, 1].
func similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return max(0, 1-float64(distance)/float64(maxLen))
}
