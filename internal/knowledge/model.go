package knowledge

// DisorderRecord is one entry of the knowledge base. Records are never
// modified after loading.
type DisorderRecord struct {
	Name               string   `json:"name"`
	Description        string   `json:"desc"`
	DiagnosticCriteria string   `json:"diag_criteria"`
	TreatmentAdvice    string   `json:"cure_way"`
	Symptoms           []string `json:"symptom"`

	symptomSet map[string]struct{}
}

// NewRecord builds a record the same way the loader does. Duplicate
// symptoms keep their first position.
func NewRecord(name, desc, criteria, treatment string, symptoms ...string) DisorderRecord {
	rec := DisorderRecord{
		Name:               name,
		Description:        desc,
		DiagnosticCriteria: criteria,
		TreatmentAdvice:    treatment,
		symptomSet:         make(map[string]struct{}, len(symptoms)),
	}
	rec.Symptoms = make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		if _, dup := rec.symptomSet[s]; dup {
			continue
		}
		rec.symptomSet[s] = struct{}{}
		rec.Symptoms = append(rec.Symptoms, s)
	}
	return rec
}

// HasSymptom reports whether s is one of the record's symptoms. Matching is
// exact string equality.
func (r DisorderRecord) HasSymptom(s string) bool {
	if r.symptomSet == nil {
		for _, own := range r.Symptoms {
			if own == s {
				return true
			}
		}
		return false
	}
	_, ok := r.symptomSet[s]
	return ok
}

// KnowledgeBase is the ordered, read-only collection of disorder records.
// It is safe for concurrent use because nothing mutates it after Load.
type KnowledgeBase struct {
	source  string
	records []DisorderRecord
}

// New wraps already-built records, mostly for tests and tooling.
func New(source string, records ...DisorderRecord) *KnowledgeBase {
	out := make([]DisorderRecord, len(records))
	for i, r := range records {
		if r.symptomSet == nil {
			r = NewRecord(r.Name, r.Description, r.DiagnosticCriteria, r.TreatmentAdvice, r.Symptoms...)
		}
		out[i] = r
	}
	return &KnowledgeBase{source: source, records: out}
}

// Source returns where the knowledge base was loaded from.
func (kb *KnowledgeBase) Source() string {
	if kb == nil {
		return ""
	}
	return kb.source
}

// Len returns the number of records. A nil knowledge base is empty.
func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.records)
}

// Records returns the records in source order. The returned slice is a copy;
// the records themselves must be treated as read-only.
func (kb *KnowledgeBase) Records() []DisorderRecord {
	if kb == nil {
		return nil
	}
	out := make([]DisorderRecord, len(kb.records))
	copy(out, kb.records)
	return out
}

// Each calls fn for every record in source order until fn returns false.
func (kb *KnowledgeBase) Each(fn func(DisorderRecord) bool) {
	if kb == nil {
		return
	}
	for _, r := range kb.records {
		if !fn(r) {
			return
		}
	}
}

// Lookup returns every record with the given name, in source order.
func (kb *KnowledgeBase) Lookup(name string) []DisorderRecord {
	var out []DisorderRecord
	kb.Each(func(r DisorderRecord) bool {
		if r.Name == name {
			out = append(out, r)
		}
		return true
	})
	return out
}

// Stats summarises the knowledge base.
type Stats struct {
	Disorders int `json:"disorders"`
	Symptoms  int `json:"symptoms"`
}

// Stats counts disorders and distinct symptoms.
func (kb *KnowledgeBase) Stats() Stats {
	return Stats{Disorders: kb.Len(), Symptoms: len(kb.symptomSet())}
}
