package api

import (
	"github.com/digitalkrishi/backend/internal/api/handlers"
	"github.com/digitalkrishi/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Location  *handlers.LocationHandler
	Knowledge *handlers.KnowledgeHandler
	Chat      *handlers.ChatHandler
	Community *handlers.CommunityHandler
	Analysis  *handlers.AnalysisHandler
	Webhook   *handlers.WebhookHandler
	Health    *handlers.HealthHandler
}

// NewRouter builds the gin engine with middleware and all routes mounted
// under /api/v1.
func NewRouter(h Handlers, rateLimit int) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.NewRateLimiter(rateLimit).RateLimit())

	router.GET("/health", h.Health.HandleHealth)
	router.GET("/health/detailed", h.Health.HandleDetailedHealth)

	v1 := router.Group("/api/v1")

	location := v1.Group("/location")
	{
		location.POST("/retailers", h.Location.HandleCreateRetailer)
		location.GET("/retailers", h.Location.HandleListRetailers)
		location.GET("/retailers/nearby", h.Location.HandleNearby)
		location.GET("/retailers/:id", h.Location.HandleGetRetailer)
		location.PUT("/retailers/:id", h.Location.HandleUpdateRetailer)
		location.DELETE("/retailers/:id", h.Location.HandleDeleteRetailer)
		location.GET("/retailers/:id/distance", h.Location.HandleDistance)
		location.POST("/retailers/:id/rate", h.Location.HandleRate)
		location.GET("/services/list", h.Location.HandleServiceTags)
		location.GET("/area-coverage", h.Location.HandleAreaCoverage)
	}

	knowledge := v1.Group("/knowledge")
	{
		knowledge.POST("", h.Knowledge.HandleCreate)
		knowledge.GET("", h.Knowledge.HandleList)
		knowledge.GET("/search", h.Knowledge.HandleSearch)
		knowledge.GET("/popular", h.Knowledge.HandlePopular)
		knowledge.POST("/ask-ai", h.Knowledge.HandleAsk)
		knowledge.GET("/categories/list", h.Knowledge.HandleCategories)
		knowledge.GET("/crops/list", h.Knowledge.HandleCropTypes)
		knowledge.GET("/:id", h.Knowledge.HandleGet)
		knowledge.PUT("/:id", h.Knowledge.HandleUpdate)
		knowledge.DELETE("/:id", h.Knowledge.HandleDelete)
		knowledge.POST("/:id/vote", h.Knowledge.HandleVote)
	}

	chat := v1.Group("/chat", middleware.UserIdentity())
	{
		chat.POST("", h.Chat.HandleSendMessage)
		chat.GET("/history", h.Chat.HandleHistory)
		chat.DELETE("/history", h.Chat.HandleClearHistory)
		chat.GET("/:id", h.Chat.HandleGetMessage)
		chat.DELETE("/:id", h.Chat.HandleDeleteMessage)
	}

	analysis := v1.Group("/analysis", middleware.UserIdentity())
	{
		analysis.POST("/image", h.Analysis.HandleTrigger)
		analysis.POST("/batch", h.Analysis.HandleTriggerBatch)
		analysis.GET("/history", h.Analysis.HandleHistory)
		analysis.GET("/:id", h.Analysis.HandleGet)
		analysis.DELETE("/:id", h.Analysis.HandleDelete)
	}

	// Workflow engine callbacks, authenticated by source header rather than
	// user identity.
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/image-analysis", h.Webhook.HandleAnalysisResult)
		webhooks.POST("/batch-complete", h.Webhook.HandleBatchComplete)
	}

	community := v1.Group("/community")
	{
		community.POST("/groups", h.Community.HandleCreateGroup)
		community.GET("/groups", h.Community.HandleListGroups)
		community.GET("/groups/:id", h.Community.HandleGetGroup)
		community.PUT("/groups/:id", h.Community.HandleUpdateGroup)
		community.DELETE("/groups/:id", h.Community.HandleDeleteGroup)
		community.POST("/groups/:id/messages", middleware.UserIdentity(), h.Community.HandlePostMessage)
		community.GET("/groups/:id/messages", h.Community.HandleListMessages)
	}

	return router
}
