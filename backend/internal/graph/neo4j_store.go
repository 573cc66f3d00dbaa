package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"digital-twin/backend/internal/props"
	apperrors "digital-twin/backend/pkg/errors"
	"digital-twin/backend/pkg/logger"
)

// Neo4jStore keeps objects as (:Object) nodes, links as [:LINKS_TO]
// relationships and actions as (:Action) nodes. Property payloads are
// stored as JSON text through the props codec.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

var (
	_ Store     = (*Neo4jStore)(nil)
	_ ActionLog = (*Neo4jStore)(nil)
)

// NewNeo4jStore creates a store on an existing driver. An empty database
// selects the server default.
func NewNeo4jStore(driver neo4j.DriverWithContext, database string) *Neo4jStore {
	return &Neo4jStore{
		driver:   driver,
		database: database,
		logger:   logger.Named("neo4j"),
	}
}

// Close closes the Neo4j driver connection
func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

const objectReturn = `o.id AS id, o.type AS type, o.propertiesJson AS propertiesJson`

const linkReturn = `r.id AS id, r.type AS type, s.id AS sourceId, t.id AS targetId, r.propertiesJson AS propertiesJson`

// ============================================================================
// Objects
// ============================================================================

func (s *Neo4jStore) GetObject(ctx context.Context, id string) (*Object, error) {
	query := `MATCH (o:Object {id: $id}) RETURN ` + objectReturn

	objects, err := s.readObjects(ctx, "get object", query, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, nil
	}
	return objects[0], nil
}

func (s *Neo4jStore) ListObjects(ctx context.Context, typeFilter string) ([]*Object, error) {
	query := `
		MATCH (o:Object)
		WHERE $type = '' OR o.type = $type
		RETURN ` + objectReturn + `
		ORDER BY o.id
	`
	return s.readObjects(ctx, "list objects", query, map[string]any{"type": typeFilter})
}

func (s *Neo4jStore) PutObject(ctx context.Context, obj *Object) (*Object, error) {
	encoded, err := props.Encode(obj.Properties)
	if err != nil {
		return nil, err
	}

	query := `
		MERGE (o:Object {id: $id})
		SET o.type = $type,
		    o.propertiesJson = $propertiesJson
		RETURN ` + objectReturn

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	records, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"id":             obj.ID,
			"type":           obj.Type,
			"propertiesJson": encoded,
		})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("put object", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewGraphQueryFailed("put object", fmt.Errorf("no record returned for %s", obj.ID))
	}
	return objectFromRecord(records[0])
}

// DeleteObject detaches and deletes the node, so its links go with it
func (s *Neo4jStore) DeleteObject(ctx context.Context, id string) error {
	return s.write(ctx, "delete object", `MATCH (o:Object {id: $id}) DETACH DELETE o`, map[string]any{"id": id})
}

// ============================================================================
// Links
// ============================================================================

func (s *Neo4jStore) GetLink(ctx context.Context, id string) (*Link, error) {
	query := `MATCH (s:Object)-[r:LINKS_TO {id: $id}]->(t:Object) RETURN ` + linkReturn

	links, err := s.readLinks(ctx, "get link", query, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	return links[0], nil
}

func (s *Neo4jStore) ListLinks(ctx context.Context, typeFilter string) ([]*Link, error) {
	query := `
		MATCH (s:Object)-[r:LINKS_TO]->(t:Object)
		WHERE $type = '' OR r.type = $type
		RETURN ` + linkReturn + `
		ORDER BY r.id
	`
	return s.readLinks(ctx, "list links", query, map[string]any{"type": typeFilter})
}

func (s *Neo4jStore) LinksFrom(ctx context.Context, sourceID string) ([]*Link, error) {
	query := `
		MATCH (s:Object {id: $id})-[r:LINKS_TO]->(t:Object)
		RETURN ` + linkReturn + `
		ORDER BY r.id
	`
	return s.readLinks(ctx, "links from", query, map[string]any{"id": sourceID})
}

func (s *Neo4jStore) LinksTo(ctx context.Context, targetID string) ([]*Link, error) {
	query := `
		MATCH (s:Object)-[r:LINKS_TO]->(t:Object {id: $id})
		RETURN ` + linkReturn + `
		ORDER BY r.id
	`
	return s.readLinks(ctx, "links to", query, map[string]any{"id": targetID})
}

// PutLink updates the relationship in place when its endpoints are
// unchanged, otherwise replaces it. Relationship endpoints cannot move in
// Neo4j.
func (s *Neo4jStore) PutLink(ctx context.Context, link *Link) (*Link, error) {
	encoded, err := props.Encode(link.Properties)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		"id":             link.ID,
		"type":           link.Type,
		"sourceId":       link.SourceID,
		"targetId":       link.TargetID,
		"propertiesJson": encoded,
	}

	updateQuery := `
		MATCH (s:Object {id: $sourceId})-[r:LINKS_TO {id: $id}]->(t:Object {id: $targetId})
		SET r.type = $type,
		    r.propertiesJson = $propertiesJson
		RETURN ` + linkReturn

	replaceQuery := `
		MATCH (s:Object {id: $sourceId}), (t:Object {id: $targetId})
		OPTIONAL MATCH ()-[old:LINKS_TO {id: $id}]->()
		DELETE old
		WITH DISTINCT s, t
		CREATE (s)-[r:LINKS_TO {id: $id, type: $type, propertiesJson: $propertiesJson}]->(t)
		RETURN ` + linkReturn

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	records, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
		result, err := tx.Run(ctx, updateQuery, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil || len(records) > 0 {
			return records, err
		}

		result, err = tx.Run(ctx, replaceQuery, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("put link", err)
	}
	if len(records) == 0 {
		// one of the endpoints is gone
		return nil, apperrors.NewReference(apperrors.KindObject, link.SourceID+" or "+link.TargetID)
	}
	return linkFromRecord(records[0])
}

func (s *Neo4jStore) DeleteLink(ctx context.Context, id string) error {
	return s.write(ctx, "delete link", `MATCH ()-[r:LINKS_TO {id: $id}]->() DELETE r`, map[string]any{"id": id})
}

// Neighbors matches undirected LINKS_TO paths of 1..maxDepth hops. Cypher
// does not accept a parameter as a path bound, so the validated depth is
// formatted into the query.
func (s *Neo4jStore) Neighbors(ctx context.Context, id string, maxDepth int, linkType string) ([]*Object, error) {
	if maxDepth <= 0 {
		return []*Object{}, nil
	}

	query := fmt.Sprintf(`
		MATCH (root:Object {id: $id})-[rels:LINKS_TO*1..%d]-(o:Object)
		WHERE o.id <> $id
		  AND ($linkType = '' OR all(rel IN rels WHERE rel.type = $linkType))
		RETURN DISTINCT `+objectReturn+`
		ORDER BY o.id
	`, maxDepth)

	return s.readObjects(ctx, "neighbors", query, map[string]any{
		"id":       id,
		"linkType": linkType,
	})
}

// ============================================================================
// Actions
// ============================================================================

func (s *Neo4jStore) AppendAction(ctx context.Context, action *Action) (*Action, error) {
	encoded, err := props.Encode(action.Changes)
	if err != nil {
		return nil, err
	}

	query := `
		CREATE (a:Action {
			id: $id,
			type: $type,
			objectId: $objectId,
			changesJson: $changesJson,
			timestamp: datetime($timestamp),
			actor: $actor
		})
	`
	err = s.write(ctx, "append action", query, map[string]any{
		"id":          action.ID,
		"type":        action.Type,
		"objectId":    action.ObjectID,
		"changesJson": encoded,
		"timestamp":   action.Timestamp.UTC().Format(time.RFC3339Nano),
		"actor":       action.Actor,
	})
	if err != nil {
		return nil, err
	}
	return action.Clone(), nil
}

func (s *Neo4jStore) ListActions(ctx context.Context, filter ActionFilter) ([]*Action, error) {
	query := `
		MATCH (a:Action)
		WHERE ($objectId = '' OR a.objectId = $objectId)
		  AND ($actor = '' OR a.actor = $actor)
		RETURN a.id AS id, a.type AS type, a.objectId AS objectId,
		       a.changesJson AS changesJson, a.timestamp AS timestamp, a.actor AS actor
		ORDER BY a.timestamp, a.id
	`

	records, err := s.read(ctx, "list actions", query, map[string]any{
		"objectId": filter.ObjectID,
		"actor":    filter.Actor,
	})
	if err != nil {
		return nil, err
	}

	actions := make([]*Action, 0, len(records))
	for _, record := range records {
		changes, err := props.Decode(getStringFromRecord(record, "changesJson"))
		if err != nil {
			return nil, err
		}
		actions = append(actions, &Action{
			ID:        getStringFromRecord(record, "id"),
			Type:      getStringFromRecord(record, "type"),
			ObjectID:  getStringFromRecord(record, "objectId"),
			Changes:   changes,
			Timestamp: getTimeFromRecord(record, "timestamp"),
			Actor:     getStringFromRecord(record, "actor"),
		})
	}
	return actions, nil
}

// ============================================================================
// Query plumbing
// ============================================================================

func (s *Neo4jStore) read(ctx context.Context, op, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	records, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		s.logger.Error("Graph read failed", zap.String("op", op), zap.Error(err))
		return nil, apperrors.NewGraphQueryFailed(op, err)
	}
	return records, nil
}

func (s *Neo4jStore) write(ctx context.Context, op, query string, params map[string]any) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		s.logger.Error("Graph write failed", zap.String("op", op), zap.Error(err))
		return apperrors.NewGraphQueryFailed(op, err)
	}
	return nil
}

func (s *Neo4jStore) readObjects(ctx context.Context, op, query string, params map[string]any) ([]*Object, error) {
	records, err := s.read(ctx, op, query, params)
	if err != nil {
		return nil, err
	}
	objects := make([]*Object, 0, len(records))
	for _, record := range records {
		obj, err := objectFromRecord(record)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (s *Neo4jStore) readLinks(ctx context.Context, op, query string, params map[string]any) ([]*Link, error) {
	records, err := s.read(ctx, op, query, params)
	if err != nil {
		return nil, err
	}
	links := make([]*Link, 0, len(records))
	for _, record := range records {
		link, err := linkFromRecord(record)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}
