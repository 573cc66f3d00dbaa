package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"digital-twin/backend/internal/graph"
	"digital-twin/backend/internal/props"
	apperrors "digital-twin/backend/pkg/errors"
)

type handlers struct {
	engine       *graph.Engine
	defaultDepth int
	logger       *zap.Logger
}

type createObjectRequest struct {
	ID         string           `json:"id"`
	Type       string           `json:"type" binding:"required"`
	Properties props.Properties `json:"properties"`
}

type updateRequest struct {
	Type       *string          `json:"type"`
	Properties props.Properties `json:"properties"`
}

type createLinkRequest struct {
	Type       string           `json:"type" binding:"required"`
	SourceID   string           `json:"sourceId" binding:"required"`
	TargetID   string           `json:"targetId" binding:"required"`
	Properties props.Properties `json:"properties"`
}

type performActionRequest struct {
	Type     string           `json:"type" binding:"required"`
	ObjectID string           `json:"objectId" binding:"required"`
	Changes  props.Properties `json:"changes"`
	Actor    string           `json:"actor"`
}

// ============================================================================
// Objects
// ============================================================================

func (h *handlers) listObjects(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		badRequest(c, err)
		return
	}

	objects, err := h.engine.Objects.ListObjects(c.Request.Context(), c.Query("type"), limit)
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to list objects")
		return
	}
	c.JSON(http.StatusOK, objects)
}

func (h *handlers) getObject(c *gin.Context) {
	obj, err := h.engine.Objects.GetObject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to fetch object")
		return
	}
	c.JSON(http.StatusOK, obj)
}

func (h *handlers) createObject(c *gin.Context) {
	var req createObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	obj, err := h.engine.Objects.SaveObject(c.Request.Context(), &graph.Object{
		ID:         req.ID,
		Type:       req.Type,
		Properties: req.Properties,
	})
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to create object")
		return
	}
	c.JSON(http.StatusCreated, obj)
}

func (h *handlers) updateObject(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	obj, err := h.engine.Objects.UpdateObject(c.Request.Context(), c.Param("id"), graph.ObjectUpdate{
		Type:       req.Type,
		Properties: req.Properties,
	})
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to update object")
		return
	}
	c.JSON(http.StatusOK, obj)
}

func (h *handlers) deleteObject(c *gin.Context) {
	if err := h.engine.Objects.DeleteObject(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to delete object")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ============================================================================
// Traversal
// ============================================================================

func (h *handlers) connectedObjects(c *gin.Context) {
	depth, err := intQuery(c, "depth", h.defaultDepth)
	if err != nil {
		badRequest(c, err)
		return
	}

	objects, err := h.engine.Traversal.ConnectedObjects(c.Request.Context(), c.Param("id"), depth)
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to traverse graph")
		return
	}
	c.JSON(http.StatusOK, objects)
}

func (h *handlers) neighborsByLinkType(c *gin.Context) {
	linkType := c.Query("linkType")
	if linkType == "" {
		badRequest(c, apperrors.NewInvalidArgument("linkType", "must not be empty"))
		return
	}

	objects, err := h.engine.Traversal.NeighborsByLinkType(c.Request.Context(), c.Param("id"), linkType)
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to traverse graph")
		return
	}
	c.JSON(http.StatusOK, objects)
}

// ============================================================================
// Links
// ============================================================================

func (h *handlers) listLinks(c *gin.Context) {
	links, err := h.engine.Links.ListLinks(c.Request.Context(), c.Query("type"))
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to list links")
		return
	}
	c.JSON(http.StatusOK, links)
}

func (h *handlers) getLink(c *gin.Context) {
	link, err := h.engine.Links.GetLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to fetch link")
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *handlers) linksFrom(c *gin.Context) {
	links, err := h.engine.Links.LinksFrom(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to list links")
		return
	}
	c.JSON(http.StatusOK, links)
}

func (h *handlers) linksTo(c *gin.Context) {
	links, err := h.engine.Links.LinksTo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to list links")
		return
	}
	c.JSON(http.StatusOK, links)
}

func (h *handlers) createLink(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	link, err := h.engine.Links.CreateLink(c.Request.Context(), req.Type, req.SourceID, req.TargetID, req.Properties)
	if err != nil {
		h.respondError(c, err, http.StatusUnprocessableEntity, "Failed to create link")
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *handlers) updateLink(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	link, err := h.engine.Links.UpdateLink(c.Request.Context(), c.Param("id"), req.Type, req.Properties)
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to update link")
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *handlers) deleteLink(c *gin.Context) {
	if err := h.engine.Links.DeleteLink(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to delete link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ============================================================================
// Actions
// ============================================================================

func (h *handlers) listActions(c *gin.Context) {
	actions, err := h.engine.Actions.ListActions(c.Request.Context(), graph.ActionFilter{
		ObjectID: c.Query("objectId"),
		Actor:    c.Query("actor"),
	})
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to list actions")
		return
	}
	c.JSON(http.StatusOK, actions)
}

// performAction attributes the action to the authenticated caller unless the
// body names an actor.
func (h *handlers) performAction(c *gin.Context) {
	var req performActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = callerFrom(c).Subject
	}

	action, err := h.engine.Actions.PerformAction(c.Request.Context(), req.Type, req.ObjectID, req.Changes, actor)
	if err != nil {
		h.respondError(c, err, http.StatusNotFound, "Failed to perform action")
		return
	}
	c.JSON(http.StatusCreated, action)
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidArgument(name, "not an integer: "+raw)
	}
	return n, nil
}
