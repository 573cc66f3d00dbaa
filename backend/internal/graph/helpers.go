package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"digital-twin/backend/internal/props"
)

// ============================================================================
// Record helpers
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getTimeFromRecord(record *neo4j.Record, key string) time.Time {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return time.Time{}
	}
	switch t := val.(type) {
	case time.Time:
		return t.UTC()
	case neo4j.LocalDateTime:
		return t.Time().UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}
		}
		return parsed.UTC()
	}
	return time.Time{}
}

func objectFromRecord(record *neo4j.Record) (*Object, error) {
	properties, err := props.Decode(getStringFromRecord(record, "propertiesJson"))
	if err != nil {
		return nil, err
	}
	return &Object{
		ID:         getStringFromRecord(record, "id"),
		Type:       getStringFromRecord(record, "type"),
		Properties: properties,
	}, nil
}

func linkFromRecord(record *neo4j.Record) (*Link, error) {
	properties, err := props.Decode(getStringFromRecord(record, "propertiesJson"))
	if err != nil {
		return nil, err
	}
	return &Link{
		ID:         getStringFromRecord(record, "id"),
		Type:       getStringFromRecord(record, "type"),
		SourceID:   getStringFromRecord(record, "sourceId"),
		TargetID:   getStringFromRecord(record, "targetId"),
		Properties: properties,
	}, nil
}
