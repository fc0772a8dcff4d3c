package graph

import (
	"context"

	"sleep-diagnosis/internal/knowledge"
)

// RelationHasSymptom labels disorder -> symptom edges of the in-process graph.
const RelationHasSymptom = "has_symptom"

type knowledgeStore struct {
	kb *knowledge.KnowledgeBase
}

// NewKnowledgeStore derives a graph from the knowledge base itself: one node
// per disorder and symptom, one has_symptom edge per pairing. It needs no
// external service.
func NewKnowledgeStore(kb *knowledge.KnowledgeBase) Store {
	return &knowledgeStore{kb: kb}
}

func (s *knowledgeStore) Neighborhood(ctx context.Context, names []string) (Graph, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	b := newBuilder()
	s.kb.Each(func(rec knowledge.DisorderRecord) bool {
		if _, ok := wanted[rec.Name]; !ok {
			return true
		}
		from := "disorder:" + rec.Name
		b.node(from, rec.Name)
		for _, symptom := range rec.Symptoms {
			to := "symptom:" + symptom
			b.node(to, symptom)
			b.edge(from, to, RelationHasSymptom)
		}
		return ctx.Err() == nil
	})
	if err := ctx.Err(); err != nil {
		return Graph{}, err
	}
	return b.graph, nil
}
