package contentstore

import (
	"context"
	"os"
	"testing"
)

// Runs the shared suite against a live database, e.g.
// VV_TEST_NEO4J_URI=neo4j://localhost:7687. The database is wiped first.
func TestNeo4jStore(t *testing.T) {
	uri := os.Getenv("VV_TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("VV_TEST_NEO4J_URI not set")
	}
	cfg := Neo4jConfig{
		URI:      uri,
		User:     os.Getenv("VV_TEST_NEO4J_USER"),
		Password: os.Getenv("VV_TEST_NEO4J_PASSWORD"),
	}
	storeSuite(t, func() Store {
		ctx := context.Background()
		s, err := NewNeo4jStore(ctx, cfg)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		if err := s.exec(ctx, "MATCH (n) WHERE n:Subject OR n:Course OR n:Concept DETACH DELETE n", nil); err != nil {
			t.Fatalf("wipe: %v", err)
		}
		return s
	})
}
