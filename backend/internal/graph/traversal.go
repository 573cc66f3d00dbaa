package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "digital-twin/backend/pkg/errors"
	"digital-twin/backend/pkg/logger"
)

// DefaultDepth is the hop count used when a caller does not supply one
const DefaultDepth = 2

// Expand runs a level-synchronous breadth-first search from rootID over
// links in either direction, following only links of linkType when it is
// non-empty. It returns the objects first reached at hops 1..depth in hop
// order, each once, without the root. A missing root or depth <= 0 yields
// an empty result. Links whose far endpoint no longer exists are skipped.
func Expand(ctx context.Context, src LinkSource, rootID string, depth int, linkType string) ([]*Object, error) {
	reached := []*Object{}
	if depth <= 0 {
		return reached, nil
	}

	root, err := src.GetObject(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return reached, nil
	}

	visited := map[string]struct{}{rootID: {}}
	frontier := []string{rootID}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []string
		for _, id := range frontier {
			links, err := adjacentLinks(ctx, src, id)
			if err != nil {
				return nil, err
			}
			for _, link := range links {
				if linkType != "" && link.Type != linkType {
					continue
				}
				other := link.Other(id)
				if _, seen := visited[other]; seen {
					continue
				}
				visited[other] = struct{}{}

				obj, err := src.GetObject(ctx, other)
				if err != nil {
					return nil, err
				}
				if obj == nil {
					// orphaned link, endpoint deleted
					continue
				}
				reached = append(reached, obj)
				next = append(next, other)
			}
		}
		frontier = next
	}

	return reached, nil
}

func adjacentLinks(ctx context.Context, src LinkSource, id string) ([]*Link, error) {
	out, err := src.LinksFrom(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := src.LinksTo(ctx, id)
	if err != nil {
		return nil, err
	}
	return append(out, in...), nil
}

// Traverser answers bounded-depth connectivity queries through a Store
type Traverser struct {
	store    Store
	maxDepth int
	logger   *zap.Logger
}

// NewTraverser creates a traverser; maxDepth <= 0 leaves depth uncapped
func NewTraverser(store Store, maxDepth int) *Traverser {
	return &Traverser{
		store:    store,
		maxDepth: maxDepth,
		logger:   logger.Named("traversal"),
	}
}

// ConnectedObjects returns the distinct objects within depth hops of rootID
// in either direction, excluding the root. A depth above the configured
// maximum fails with ErrInvalidArgument.
func (t *Traverser) ConnectedObjects(ctx context.Context, rootID string, depth int) ([]*Object, error) {
	if depth <= 0 {
		return []*Object{}, nil
	}
	if t.maxDepth > 0 && depth > t.maxDepth {
		t.logger.Debug("Traversal depth rejected",
			zap.String("root_id", rootID),
			zap.Int("requested", depth),
			zap.Int("max", t.maxDepth),
		)
		return nil, apperrors.NewInvalidArgument("depth", fmt.Sprintf("must be at most %d", t.maxDepth))
	}
	return t.store.Neighbors(ctx, rootID, depth, "")
}

// NeighborsByLinkType returns the objects one hop from rootID over links of
// exactly linkType, in either direction. It does not recurse.
func (t *Traverser) NeighborsByLinkType(ctx context.Context, rootID, linkType string) ([]*Object, error) {
	if linkType == "" {
		return nil, apperrors.NewInvalidArgument("linkType", "must not be empty")
	}
	return t.store.Neighbors(ctx, rootID, 1, linkType)
}
