package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"digital-twin/backend/internal/graph"
	"digital-twin/backend/internal/ratelimit"
	"digital-twin/backend/pkg/logger"
)

// Policies assigns a rate limit to each class of route
type Policies struct {
	Read     ratelimit.Policy
	Write    ratelimit.Policy
	Traverse ratelimit.Policy
}

// Options wires the router
type Options struct {
	Engine   *graph.Engine
	Limiter  *ratelimit.Limiter // nil disables rate limiting
	Policies Policies
	// DefaultDepth is used by the connected-objects route when depth is omitted
	DefaultDepth int
	// Metrics is served at /metrics when non-nil
	Metrics http.Handler
}

// NewRouter builds the HTTP surface over the graph engine
func NewRouter(opts Options) *gin.Engine {
	log := logger.Named("http")

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	depth := opts.DefaultDepth
	if depth <= 0 {
		depth = graph.DefaultDepth
	}
	h := &handlers{
		engine:       opts.Engine,
		defaultDepth: depth,
		logger:       logger.Named("api"),
	}

	read := func(op string) gin.HandlerFunc { return limit(opts.Limiter, op, opts.Policies.Read) }
	write := func(op string) gin.HandlerFunc { return limit(opts.Limiter, op, opts.Policies.Write) }
	traverse := func(op string) gin.HandlerFunc { return limit(opts.Limiter, op, opts.Policies.Traverse) }

	api := router.Group("/api")
	api.Use(identify())
	{
		api.GET("/objects", read("listObjects"), h.listObjects)
		api.GET("/objects/:id", read("getObject"), h.getObject)
		api.POST("/objects", write("createObject"), h.createObject)
		api.PUT("/objects/:id", write("updateObject"), h.updateObject)
		api.DELETE("/objects/:id", write("deleteObject"), h.deleteObject)

		api.GET("/objects/:id/connected", traverse("connectedObjects"), h.connectedObjects)
		api.GET("/objects/:id/neighbors", traverse("neighborsByLinkType"), h.neighborsByLinkType)

		api.GET("/links", read("listLinks"), h.listLinks)
		api.GET("/links/:id", read("getLink"), h.getLink)
		api.GET("/links/source/:id", read("linksFrom"), h.linksFrom)
		api.GET("/links/target/:id", read("linksTo"), h.linksTo)
		api.POST("/links", write("createLink"), h.createLink)
		api.PUT("/links/:id", write("updateLink"), h.updateLink)
		api.DELETE("/links/:id", write("deleteLink"), h.deleteLink)

		api.GET("/actions", read("listActions"), h.listActions)
		api.POST("/actions", write("performAction"), h.performAction)
	}

	return router
}
