package graph

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "digital-twin/backend/pkg/errors"
)

// SchemaVersion marks the applied schema in a (:Migration) node
const SchemaVersion = "twin_schema_v1"

type schemaStep struct {
	name   string
	script string
}

var schemaSteps = []schemaStep{
	{
		name: "constraints",
		script: `
			// object and action ids are unique
			CREATE CONSTRAINT object_id_unique IF NOT EXISTS FOR (o:Object) REQUIRE o.id IS UNIQUE;
			CREATE CONSTRAINT action_id_unique IF NOT EXISTS FOR (a:Action) REQUIRE a.id IS UNIQUE;
		`,
	},
	{
		name: "indexes",
		script: `
			CREATE INDEX object_type IF NOT EXISTS FOR (o:Object) ON (o.type);
			CREATE INDEX action_object_id IF NOT EXISTS FOR (a:Action) ON (a.objectId);
			CREATE INDEX action_actor IF NOT EXISTS FOR (a:Action) ON (a.actor);

			// relationship lookups by link id
			CREATE INDEX links_to_id IF NOT EXISTS FOR ()-[r:LINKS_TO]-() ON (r.id);
		`,
	},
}

// EnsureSchema creates the constraints and indexes the store relies on.
// Every statement is idempotent. A failing statement is logged and the
// remaining ones still run; the first failure is returned.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	var firstErr error
	for i, step := range schemaSteps {
		s.logger.Info("Applying schema step",
			zap.Int("step", i+1),
			zap.Int("total", len(schemaSteps)),
			zap.String("name", step.name),
		)

		for j, stmt := range splitStatements(step.script) {
			result, err := session.Run(ctx, stmt, nil)
			if err == nil {
				_, err = result.Consume(ctx)
			}
			if err != nil {
				s.logger.Warn("Schema statement failed",
					zap.String("step", step.name),
					zap.Int("statement", j+1),
					zap.Error(err),
				)
				if firstErr == nil {
					firstErr = apperrors.NewGraphQueryFailed("ensure schema", err)
				}
			}
		}
	}
	return firstErr
}

// SchemaApplied reports whether the current SchemaVersion is marked applied
func (s *Neo4jStore) SchemaApplied(ctx context.Context) (bool, error) {
	records, err := s.read(ctx, "schema applied",
		`MATCH (m:Migration {version: $version}) RETURN m.applied_at AS applied_at`,
		map[string]any{"version": SchemaVersion},
	)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// MarkSchemaApplied records SchemaVersion as applied
func (s *Neo4jStore) MarkSchemaApplied(ctx context.Context) error {
	return s.write(ctx, "mark schema applied", `
		MERGE (m:Migration {version: $version})
		SET m.applied_at = datetime(),
		    m.description = 'Object and action constraints, link id index'
	`, map[string]any{"version": SchemaVersion})
}

// Purge deletes every object, link and action. Migration markers are kept.
func (s *Neo4jStore) Purge(ctx context.Context) error {
	if err := s.write(ctx, "purge objects", `MATCH (o:Object) DETACH DELETE o`, nil); err != nil {
		return err
	}
	return s.write(ctx, "purge actions", `MATCH (a:Action) DELETE a`, nil)
}

// splitStatements splits a Cypher script on semicolons, dropping // comments
// and blank statements.
func splitStatements(script string) []string {
	lines := strings.Split(script, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}

	var statements []string
	for _, part := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
