package graph

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"digital-twin/backend/internal/props"
	apperrors "digital-twin/backend/pkg/errors"
	"digital-twin/backend/pkg/logger"
)

// ActionService records actions against objects
type ActionService struct {
	log     ActionLog
	objects *ObjectService
	logger  *zap.Logger
}

// NewActionService creates an action service
func NewActionService(log ActionLog, objects *ObjectService) *ActionService {
	return &ActionService{
		log:     log,
		objects: objects,
		logger:  logger.Named("actions"),
	}
}

// PerformAction appends an action, then merges its changes into the target
// object when that object exists. The action is recorded either way, and
// the object is left untouched when the append fails.
func (s *ActionService) PerformAction(ctx context.Context, actionType, objectID string, changes props.Properties, actor string) (*Action, error) {
	if strings.TrimSpace(actionType) == "" {
		return nil, apperrors.NewInvalidArgument("type", "must not be empty")
	}
	if objectID == "" {
		return nil, apperrors.NewInvalidArgument("objectId", "must not be empty")
	}

	action := NewAction(actionType, objectID, changes, actor)

	stored, err := s.log.AppendAction(ctx, action)
	if err != nil {
		return nil, err
	}

	applied, err := s.objects.mergeProperties(ctx, objectID, action.Changes)
	if err != nil {
		s.logger.Error("Action recorded but changes not applied",
			zap.String("action_id", stored.ID),
			zap.String("object_id", objectID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Action performed",
		zap.String("action_id", stored.ID),
		zap.String("type", actionType),
		zap.String("object_id", objectID),
		zap.String("actor", actor),
		zap.Bool("applied", applied),
	)
	return stored, nil
}

// ListActions returns recorded actions in append order
func (s *ActionService) ListActions(ctx context.Context, filter ActionFilter) ([]*Action, error) {
	return s.log.ListActions(ctx, filter)
}
