package graph

import (
	"time"

	"github.com/google/uuid"

	"digital-twin/backend/internal/props"
)

// ============================================================================
// Graph Types
// ============================================================================

// Object is a typed node with a property payload
type Object struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Properties props.Properties `json:"properties"`
}

// Link is a typed, directed edge between two objects. Endpoints are
// referenced by id only; adjacency is derived from the link records.
type Link struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	SourceID   string           `json:"sourceId"`
	TargetID   string           `json:"targetId"`
	Properties props.Properties `json:"properties"`
}

// Action is an append-only record of a change applied to an object
type Action struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	ObjectID  string           `json:"objectId"`
	Changes   props.Properties `json:"changes"`
	Timestamp time.Time        `json:"timestamp"`
	Actor     string           `json:"actor"`
}

// ActionFilter narrows ListActions; empty fields match everything
type ActionFilter struct {
	ObjectID string
	Actor    string
}

// NewID returns a random (version 4) identifier
func NewID() string {
	return uuid.NewString()
}

// NewObject builds an object with a fresh id
func NewObject(objType string, properties props.Properties) *Object {
	return &Object{
		ID:         NewID(),
		Type:       objType,
		Properties: properties.Clone(),
	}
}

// NewLink builds a link with a fresh id
func NewLink(linkType, sourceID, targetID string, properties props.Properties) *Link {
	return &Link{
		ID:         NewID(),
		Type:       linkType,
		SourceID:   sourceID,
		TargetID:   targetID,
		Properties: properties.Clone(),
	}
}

// NewAction builds an action stamped with the current UTC time
func NewAction(actionType, objectID string, changes props.Properties, actor string) *Action {
	return &Action{
		ID:        NewID(),
		Type:      actionType,
		ObjectID:  objectID,
		Changes:   changes.Clone(),
		Timestamp: time.Now().UTC(),
		Actor:     actor,
	}
}

// Clone returns a deep copy
func (o *Object) Clone() *Object {
	return &Object{ID: o.ID, Type: o.Type, Properties: o.Properties.Clone()}
}

// Clone returns a deep copy
func (l *Link) Clone() *Link {
	return &Link{
		ID:         l.ID,
		Type:       l.Type,
		SourceID:   l.SourceID,
		TargetID:   l.TargetID,
		Properties: l.Properties.Clone(),
	}
}

// Clone returns a deep copy
func (a *Action) Clone() *Action {
	c := *a
	c.Changes = a.Changes.Clone()
	return &c
}

// Other returns the endpoint opposite to id
func (l *Link) Other(id string) string {
	if l.SourceID == id {
		return l.TargetID
	}
	return l.SourceID
}

// Matches reports whether the action passes the filter
func (f ActionFilter) Matches(a *Action) bool {
	if f.ObjectID != "" && a.ObjectID != f.ObjectID {
		return false
	}
	if f.Actor != "" && a.Actor != f.Actor {
		return false
	}
	return true
}
