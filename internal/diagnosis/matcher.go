// Package diagnosis matches symptom selections against the knowledge base.
//
// Match and Coverage are pure functions of their arguments and share one
// predicate, so diagnosis retrieval and coverage reporting always agree on
// what counts as a match.
package diagnosis

import "sleep-diagnosis/internal/knowledge"

// Selection is a set of symptom labels chosen by one user.
type Selection map[string]struct{}

// NewSelection builds a selection from labels. Duplicates collapse.
func NewSelection(symptoms ...string) Selection {
	sel := make(Selection, len(symptoms))
	for _, s := range symptoms {
		sel[s] = struct{}{}
	}
	return sel
}

// Has reports whether s is selected.
func (s Selection) Has(symptom string) bool {
	_, ok := s[symptom]
	return ok
}

// Len returns the number of selected symptoms.
func (s Selection) Len() int { return len(s) }

// overlaps is the single matching rule: any shared symptom qualifies.
func overlaps(sel Selection, rec knowledge.DisorderRecord) bool {
	if len(sel) == 0 {
		return false
	}
	for _, symptom := range rec.Symptoms {
		if sel.Has(symptom) {
			return true
		}
	}
	return false
}

// Match returns every record sharing at least one symptom with sel, in
// knowledge base order. Records with duplicate names are all returned.
func Match(sel Selection, kb *knowledge.KnowledgeBase) []knowledge.DisorderRecord {
	out := []knowledge.DisorderRecord{}
	kb.Each(func(rec knowledge.DisorderRecord) bool {
		if overlaps(sel, rec) {
			out = append(out, rec)
		}
		return true
	})
	return out
}

// Names returns the disorder names of records, in order.
func Names(records []knowledge.DisorderRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names
}
