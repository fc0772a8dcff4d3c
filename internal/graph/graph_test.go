package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleep-diagnosis/internal/knowledge"
)

func testKB() *knowledge.KnowledgeBase {
	return knowledge.New("graph",
		knowledge.NewRecord("Insomnia", "", "", "", "difficulty falling asleep", "fatigue"),
		knowledge.NewRecord("Apnea", "", "", "", "snoring", "fatigue"),
		knowledge.NewRecord("Narcolepsy", "", "", "", "cataplexy"),
	)
}

func TestKnowledgeStore_Neighborhood(t *testing.T) {
	g, err := NewKnowledgeStore(testKB()).Neighborhood(context.Background(), []string{"Insomnia", "Apnea"})
	require.NoError(t, err)

	assert.Equal(t, []Node{
		{ID: "disorder:Insomnia", Label: "Insomnia"},
		{ID: "symptom:difficulty falling asleep", Label: "difficulty falling asleep"},
		{ID: "symptom:fatigue", Label: "fatigue"},
		{ID: "disorder:Apnea", Label: "Apnea"},
		{ID: "symptom:snoring", Label: "snoring"},
	}, g.Nodes)
	assert.Len(t, g.Edges, 4)
	assert.Equal(t, Edge{From: "disorder:Apnea", To: "symptom:fatigue", Label: RelationHasSymptom}, g.Edges[3])
}

func TestKnowledgeStore_NoNames(t *testing.T) {
	g, err := NewKnowledgeStore(testKB()).Neighborhood(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.NotNil(t, g.Edges)
}

func TestKnowledgeStore_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKnowledgeStore(testKB()).Neighborhood(ctx, []string{"Insomnia"})
	assert.ErrorIs(t, err, context.Canceled)
}

func record(n neo4j.Node, r neo4j.Relationship, m neo4j.Node) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"n", "r", "m"}, Values: []any{n, r, m}}
}

func TestNeo4jStore_Neighborhood(t *testing.T) {
	insomnia := neo4j.Node{ElementId: "4:a:1", Props: map[string]any{"name": "失眠症"}}
	fatigue := neo4j.Node{ElementId: "4:a:2", Props: map[string]any{"name": "日间疲劳"}}
	cbt := neo4j.Node{ElementId: "4:a:3"}

	var gotQuery string
	var gotParams map[string]any
	s := &Neo4jStore{run: func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
		gotQuery, gotParams = query, params
		return []*neo4j.Record{
			record(insomnia, neo4j.Relationship{Type: "has_symptom"}, fatigue),
			record(insomnia, neo4j.Relationship{Type: "cure_way"}, cbt),
		}, nil
	}}

	g, err := s.Neighborhood(context.Background(), []string{"失眠症"})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "$names")
	assert.Equal(t, []string{"失眠症"}, gotParams["names"])

	assert.Equal(t, []Node{
		{ID: "4:a:1", Label: "失眠症"},
		{ID: "4:a:2", Label: "日间疲劳"},
		{ID: "4:a:3", Label: "4:a:3"},
	}, g.Nodes)
	assert.Equal(t, []Edge{
		{From: "4:a:1", To: "4:a:2", Label: "has_symptom"},
		{From: "4:a:1", To: "4:a:3", Label: "cure_way"},
	}, g.Edges)
}

func TestNeo4jStore_EmptyNamesSkipsQuery(t *testing.T) {
	s := &Neo4jStore{run: func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		t.Fatal("query must not run")
		return nil, nil
	}}
	g, err := s.Neighborhood(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}

func TestNeo4jStore_QueryError(t *testing.T) {
	boom := errors.New("connection refused")
	s := &Neo4jStore{run: func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		return nil, boom
	}}
	_, err := s.Neighborhood(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
}

func TestGraphFromRecords_WrongType(t *testing.T) {
	rec := &neo4j.Record{Keys: []string{"n", "r", "m"}, Values: []any{"not a node", nil, nil}}
	_, err := graphFromRecords([]*neo4j.Record{rec})
	assert.Error(t, err)
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML(Graph{
		Nodes: []Node{{ID: "1", Label: "</script><b>x"}},
		Edges: []Edge{{From: "1", To: "1", Label: "self"}},
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, VisNetworkScript)
	assert.Contains(t, html, "new vis.Network(container, data, options)")
	assert.Contains(t, html, "gravitationalConstant: -8000")
	assert.Equal(t, 1, strings.Count(html, "</script>\n</body>"))
	assert.NotContains(t, html, "</script><b>x")
}

func TestRenderHTML_EmptyGraph(t *testing.T) {
	page, err := RenderHTML(Graph{})
	require.NoError(t, err)
	assert.Contains(t, string(page), "new vis.DataSet([])")
}
