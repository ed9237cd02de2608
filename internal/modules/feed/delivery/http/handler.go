package http

import (
	"net/http"
	"strconv"

	feedService "locki.app/backend/internal/modules/feed/service"
	"locki.app/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	service feedService.FeedService
}

func NewFeedHandler(service feedService.FeedService) *FeedHandler {
	return &FeedHandler{service: service}
}

// GetFeed handles GET /feed?limit=
func (h *FeedHandler) GetFeed(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	feed, err := h.service.GetFeed(c.Request.Context(), userID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": feed})
}
