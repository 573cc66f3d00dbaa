package graph

import "context"

// Store is the persistence capability the graph engine requires. Any
// substrate that stores typed nodes and edges with property payloads and
// answers adjacency queries can implement it.
//
// Empty filter strings mean "no filter". Getters return (nil, nil) when the
// entity is absent. Deletes are idempotent. Store failures (timeouts,
// connectivity) are returned as-is and never retried by the engine.
type Store interface {
	GetObject(ctx context.Context, id string) (*Object, error)
	ListObjects(ctx context.Context, typeFilter string) ([]*Object, error)
	// PutObject upserts; the caller-supplied id is authoritative.
	PutObject(ctx context.Context, obj *Object) (*Object, error)
	DeleteObject(ctx context.Context, id string) error

	GetLink(ctx context.Context, id string) (*Link, error)
	ListLinks(ctx context.Context, typeFilter string) ([]*Link, error)
	LinksFrom(ctx context.Context, sourceID string) ([]*Link, error)
	LinksTo(ctx context.Context, targetID string) ([]*Link, error)
	PutLink(ctx context.Context, link *Link) (*Link, error)
	DeleteLink(ctx context.Context, id string) error

	// Neighbors returns the distinct objects within maxDepth undirected hops
	// of id, excluding id itself.
	Neighbors(ctx context.Context, id string, maxDepth int, linkType string) ([]*Object, error)
}

// ActionLog persists the append-only action history
type ActionLog interface {
	AppendAction(ctx context.Context, action *Action) (*Action, error)
	ListActions(ctx context.Context, filter ActionFilter) ([]*Action, error)
}

// LinkSource is the adjacency view the traversal engine expands over
type LinkSource interface {
	GetObject(ctx context.Context, id string) (*Object, error)
	LinksFrom(ctx context.Context, sourceID string) ([]*Link, error)
	LinksTo(ctx context.Context, targetID string) ([]*Link, error)
}
