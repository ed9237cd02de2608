package http

import (
	"net/http"

	achievementService "locki.app/backend/internal/modules/achievement/service"
	"locki.app/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AchievementHandler struct {
	service achievementService.AchievementService
}

func NewAchievementHandler(service achievementService.AchievementService) *AchievementHandler {
	return &AchievementHandler{service: service}
}

func (h *AchievementHandler) GetMyAchievements(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	h.respond(c, userID)
}

func (h *AchievementHandler) GetUserAchievements(c *gin.Context) {
	userID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	h.respond(c, userID)
}

func (h *AchievementHandler) respond(c *gin.Context, userID uuid.UUID) {
	achievements, err := h.service.GetUserAchievements(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": achievements})
}
