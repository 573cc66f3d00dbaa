package graph

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"digital-twin/backend/internal/props"
	apperrors "digital-twin/backend/pkg/errors"
	"digital-twin/backend/pkg/logger"
)

// LinkService creates and deletes links. Every mutation holds the node
// locks of both endpoints, so concurrent changes around one node cannot
// lose an edge.
type LinkService struct {
	store  Store
	locks  *NodeLocks
	logger *zap.Logger
}

// NewLinkService creates a link service sharing locks with the other services
func NewLinkService(store Store, locks *NodeLocks) *LinkService {
	return &LinkService{
		store:  store,
		locks:  locks,
		logger: logger.Named("links"),
	}
}

// CreateLink persists a new link between two existing objects. After it
// returns, the link is listed by both LinksFrom(sourceID) and
// LinksTo(targetID).
func (s *LinkService) CreateLink(ctx context.Context, linkType, sourceID, targetID string, properties props.Properties) (*Link, error) {
	if strings.TrimSpace(linkType) == "" {
		return nil, apperrors.NewInvalidArgument("type", "must not be empty")
	}

	unlock := s.locks.Lock(sourceID, targetID)
	defer unlock()

	if err := s.requireObject(ctx, sourceID); err != nil {
		return nil, err
	}
	if err := s.requireObject(ctx, targetID); err != nil {
		return nil, err
	}

	link, err := s.store.PutLink(ctx, NewLink(linkType, sourceID, targetID, properties))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Link created",
		zap.String("link_id", link.ID),
		zap.String("type", link.Type),
		zap.String("source_id", sourceID),
		zap.String("target_id", targetID),
	)
	return link, nil
}

// UpdateLink changes the type and/or properties of a link. Endpoints are
// fixed for the lifetime of a link. A nil argument keeps the current value.
func (s *LinkService) UpdateLink(ctx context.Context, id string, linkType *string, properties props.Properties) (*Link, error) {
	if linkType != nil && strings.TrimSpace(*linkType) == "" {
		return nil, apperrors.NewInvalidArgument("type", "must not be empty")
	}

	current, err := s.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(current.SourceID, current.TargetID)
	defer unlock()

	// re-read under the lock; a concurrent delete may have won
	current, err = s.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if linkType != nil {
		current.Type = *linkType
	}
	if properties != nil {
		current.Properties = properties.Clone()
	}

	link, err := s.store.PutLink(ctx, current)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Link updated", zap.String("link_id", id))
	return link, nil
}

// DeleteLink removes a link. Deleting a link that does not exist succeeds.
func (s *LinkService) DeleteLink(ctx context.Context, id string) error {
	link, err := s.store.GetLink(ctx, id)
	if err != nil {
		return err
	}
	if link == nil {
		// orphaned or absent; drop any leftover record and call it done
		return s.store.DeleteLink(ctx, id)
	}

	unlock := s.locks.Lock(link.SourceID, link.TargetID)
	defer unlock()

	if err := s.store.DeleteLink(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Link deleted",
		zap.String("link_id", id),
		zap.String("source_id", link.SourceID),
		zap.String("target_id", link.TargetID),
	)
	return nil
}

// GetLink returns a link or ErrReference when it does not exist
func (s *LinkService) GetLink(ctx context.Context, id string) (*Link, error) {
	link, err := s.store.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, apperrors.NewReference(apperrors.KindLink, id)
	}
	return link, nil
}

// ListLinks returns all links, or only those of linkType when it is non-empty
func (s *LinkService) ListLinks(ctx context.Context, linkType string) ([]*Link, error) {
	return s.store.ListLinks(ctx, linkType)
}

// LinksFrom returns the outgoing links of an object
func (s *LinkService) LinksFrom(ctx context.Context, sourceID string) ([]*Link, error) {
	return s.store.LinksFrom(ctx, sourceID)
}

// LinksTo returns the incoming links of an object
func (s *LinkService) LinksTo(ctx context.Context, targetID string) ([]*Link, error) {
	return s.store.LinksTo(ctx, targetID)
}

func (s *LinkService) requireObject(ctx context.Context, id string) error {
	obj, err := s.store.GetObject(ctx, id)
	if err != nil {
		return err
	}
	if obj == nil {
		s.logger.Warn("Link endpoint missing", zap.String("object_id", id))
		return apperrors.NewReference(apperrors.KindObject, id)
	}
	return nil
}
