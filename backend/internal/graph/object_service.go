package graph

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"digital-twin/backend/internal/props"
	apperrors "digital-twin/backend/pkg/errors"
	"digital-twin/backend/pkg/logger"
)

// ObjectUpdate describes a partial object change; nil fields are kept
type ObjectUpdate struct {
	Type       *string
	Properties props.Properties
}

// ObjectService manages objects. Writes take the node lock shared with
// LinkService so property updates and deletes serialize with link changes
// on the same node.
type ObjectService struct {
	store  Store
	locks  *NodeLocks
	logger *zap.Logger
}

// NewObjectService creates an object service
func NewObjectService(store Store, locks *NodeLocks) *ObjectService {
	return &ObjectService{
		store:  store,
		locks:  locks,
		logger: logger.Named("objects"),
	}
}

// CreateObject stores a new object under a generated id
func (s *ObjectService) CreateObject(ctx context.Context, objType string, properties props.Properties) (*Object, error) {
	return s.SaveObject(ctx, NewObject(objType, properties))
}

// SaveObject upserts obj. The caller's id is kept; an empty id is replaced
// with a generated one.
func (s *ObjectService) SaveObject(ctx context.Context, obj *Object) (*Object, error) {
	if strings.TrimSpace(obj.Type) == "" {
		return nil, apperrors.NewInvalidArgument("type", "must not be empty")
	}
	toStore := obj.Clone()
	if toStore.ID == "" {
		toStore.ID = NewID()
	}

	unlock := s.locks.Lock(toStore.ID)
	defer unlock()

	stored, err := s.store.PutObject(ctx, toStore)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Object saved",
		zap.String("object_id", stored.ID),
		zap.String("type", stored.Type),
	)
	return stored, nil
}

// GetObject returns an object or ErrReference when it does not exist
func (s *ObjectService) GetObject(ctx context.Context, id string) (*Object, error) {
	obj, err := s.store.GetObject(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, apperrors.NewReference(apperrors.KindObject, id)
	}
	return obj, nil
}

// ListObjects returns objects, filtered by type when objType is non-empty
// and truncated to limit when limit > 0.
func (s *ObjectService) ListObjects(ctx context.Context, objType string, limit int) ([]*Object, error) {
	objects, err := s.store.ListObjects(ctx, objType)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(objects) > limit {
		objects = objects[:limit]
	}
	return objects, nil
}

// UpdateObject applies a partial update to an existing object
func (s *ObjectService) UpdateObject(ctx context.Context, id string, update ObjectUpdate) (*Object, error) {
	if update.Type != nil && strings.TrimSpace(*update.Type) == "" {
		return nil, apperrors.NewInvalidArgument("type", "must not be empty")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	obj, err := s.GetObject(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Type != nil {
		obj.Type = *update.Type
	}
	if update.Properties != nil {
		obj.Properties = update.Properties.Clone()
	}

	stored, err := s.store.PutObject(ctx, obj)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Object updated", zap.String("object_id", id))
	return stored, nil
}

// DeleteObject removes an object. Deleting an absent object succeeds.
func (s *ObjectService) DeleteObject(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.DeleteObject(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Object deleted", zap.String("object_id", id))
	return nil
}

// mergeProperties overlays changes on the object's payload. It reports
// false when the object does not exist.
func (s *ObjectService) mergeProperties(ctx context.Context, id string, changes props.Properties) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	obj, err := s.store.GetObject(ctx, id)
	if err != nil {
		return false, err
	}
	if obj == nil {
		return false, nil
	}

	obj.Properties = props.Merge(obj.Properties, changes)
	if _, err := s.store.PutObject(ctx, obj); err != nil {
		return false, err
	}
	return true, nil
}
