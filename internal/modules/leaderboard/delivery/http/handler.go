package http

import (
	"net/http"
	"strconv"

	leaderboardService "locki.app/backend/internal/modules/leaderboard/service"
	"locki.app/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	service leaderboardService.LeaderboardService
}

func NewLeaderboardHandler(service leaderboardService.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	sortBy := c.DefaultQuery("sort_by", "hours") // "hours", "streak", "weekly", "monthly"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	leaderboard, err := h.service.GetLeaderboard(c.Request.Context(), sortBy, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": leaderboard})
}

// GetMyRank returns the caller's position on the requested board.
func (h *LeaderboardHandler) GetMyRank(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	rank, err := h.service.GetUserRank(c.Request.Context(), userID, c.DefaultQuery("sort_by", "hours"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rank})
}
