package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// neighborhoodQuery returns the outgoing relations of the named nodes. Names
// are bound as a parameter, never spliced into the query text.
const neighborhoodQuery = `
MATCH (n)-[r]->(m)
WHERE n.name IN $names
RETURN n, r, m
`

// Neo4jConfig holds the Bolt connection settings.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type runFunc func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)

// Neo4jStore reads the visualization graph from Neo4j.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	run    runFunc
}

// NewNeo4jStore connects to Neo4j and checks connectivity.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j not reachable at %s: %w", cfg.URI, err)
	}

	var opts []neo4j.ExecuteQueryConfigurationOption
	opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
	if cfg.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
	}

	s := &Neo4jStore{driver: driver}
	s.run = func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
		res, err := neo4j.ExecuteQuery(ctx, driver, query, params, neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return nil, err
		}
		return res.Records, nil
	}
	return s, nil
}

func (s *Neo4jStore) Neighborhood(ctx context.Context, names []string) (Graph, error) {
	if len(names) == 0 {
		return newBuilder().graph, nil
	}
	records, err := s.run(ctx, neighborhoodQuery, map[string]any{"names": names})
	if err != nil {
		return Graph{}, fmt.Errorf("neo4j neighborhood query failed: %w", err)
	}
	return graphFromRecords(records)
}

// Close releases the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func graphFromRecords(records []*neo4j.Record) (Graph, error) {
	b := newBuilder()
	for i, rec := range records {
		n, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "n")
		if err != nil {
			return Graph{}, fmt.Errorf("record %d: %w", i, err)
		}
		m, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "m")
		if err != nil {
			return Graph{}, fmt.Errorf("record %d: %w", i, err)
		}
		r, _, err := neo4j.GetRecordValue[neo4j.Relationship](rec, "r")
		if err != nil {
			return Graph{}, fmt.Errorf("record %d: %w", i, err)
		}

		b.node(n.ElementId, nodeName(n))
		b.node(m.ElementId, nodeName(m))
		b.edge(n.ElementId, m.ElementId, r.Type)
	}
	return b.graph, nil
}

func nodeName(n neo4j.Node) string {
	if name, ok := n.Props["name"].(string); ok {
		return name
	}
	return n.ElementId
}
