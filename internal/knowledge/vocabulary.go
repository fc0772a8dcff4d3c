package knowledge

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultCollation orders the vocabulary for display. The bundled data set is
// Chinese, so pinyin-aware collation is the default.
var DefaultCollation = language.Chinese

// SuggestThreshold is the minimum Jaro-Winkler similarity for a fuzzy hit.
const SuggestThreshold = 0.6

func (kb *KnowledgeBase) symptomSet() map[string]struct{} {
	set := make(map[string]struct{})
	kb.Each(func(r DisorderRecord) bool {
		for _, s := range r.Symptoms {
			set[s] = struct{}{}
		}
		return true
	})
	return set
}

// Vocabulary returns the union of all record symptoms, collated with
// DefaultCollation. It is recomputed on every call.
func (kb *KnowledgeBase) Vocabulary() []string {
	return kb.VocabularyIn(DefaultCollation)
}

// VocabularyIn is Vocabulary with an explicit collation language.
func (kb *KnowledgeBase) VocabularyIn(tag language.Tag) []string {
	set := kb.symptomSet()
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	// collate.Collator is not safe for concurrent use; build one per call.
	collate.New(tag).SortStrings(out)
	return out
}

// Contains reports whether s belongs to the vocabulary.
func (kb *KnowledgeBase) Contains(s string) bool {
	found := false
	kb.Each(func(r DisorderRecord) bool {
		found = r.HasSymptom(s)
		return !found
	})
	return found
}

// Unknown returns the entries of symptoms that are not in the vocabulary,
// preserving their order.
func (kb *KnowledgeBase) Unknown(symptoms []string) []string {
	set := kb.symptomSet()
	var out []string
	for _, s := range symptoms {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// Suggestion is a vocabulary entry close to a user query.
type Suggestion struct {
	Symptom string  `json:"symptom"`
	Score   float64 `json:"score"`
}

// Suggest ranks vocabulary entries against query. Entries containing the
// query verbatim come first, then fuzzy hits above SuggestThreshold by
// descending similarity. limit <= 0 means no limit.
func (kb *KnowledgeBase) Suggest(query string, limit int) []Suggestion {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var contains, fuzzy []Suggestion
	for _, s := range kb.Vocabulary() {
		if strings.Contains(s, query) {
			contains = append(contains, Suggestion{Symptom: s, Score: 1})
			continue
		}
		score, err := edlib.StringsSimilarity(query, s, edlib.JaroWinkler)
		if err != nil || float64(score) < SuggestThreshold {
			continue
		}
		fuzzy = append(fuzzy, Suggestion{Symptom: s, Score: float64(score)})
	}

	// Shorter containing entries are closer to what was typed.
	sort.SliceStable(contains, func(i, j int) bool {
		return len([]rune(contains[i].Symptom)) < len([]rune(contains[j].Symptom))
	})
	sort.SliceStable(fuzzy, func(i, j int) bool {
		return fuzzy[i].Score > fuzzy[j].Score
	})

	out := append(contains, fuzzy...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
