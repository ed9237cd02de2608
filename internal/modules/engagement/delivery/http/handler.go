package handler

import (
	"net/http"
	"strconv"

	engagementDto "locki.app/backend/internal/modules/engagement/dto"
	engagementService "locki.app/backend/internal/modules/engagement/service"
	"locki.app/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EngagementHandler struct {
	service engagementService.EngagementService
}

func NewEngagementHandler(service engagementService.EngagementService) *EngagementHandler {
	return &EngagementHandler{service: service}
}

// actorAndPost resolves the caller and the :id post parameter.
func actorAndPost(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	postID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, postID, true
}

// LikePost handles POST /posts/:id/like
func (h *EngagementHandler) LikePost(c *gin.Context) {
	userID, postID, ok := actorAndPost(c)
	if !ok {
		return
	}

	if err := h.service.Like(c.Request.Context(), postID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Post liked"})
}

// UnlikePost handles DELETE /posts/:id/like
func (h *EngagementHandler) UnlikePost(c *gin.Context) {
	userID, postID, ok := actorAndPost(c)
	if !ok {
		return
	}

	if err := h.service.Unlike(c.Request.Context(), postID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ToggleLike handles POST /posts/:id/like/toggle
func (h *EngagementHandler) ToggleLike(c *gin.Context) {
	userID, postID, ok := actorAndPost(c)
	if !ok {
		return
	}

	state, err := h.service.ToggleLike(c.Request.Context(), postID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (h *EngagementHandler) GetLikeStatus(c *gin.Context) {
	userID, postID, ok := actorAndPost(c)
	if !ok {
		return
	}

	liked, err := h.service.IsLiked(c.Request.Context(), postID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// AddComment handles POST /posts/:id/comments
func (h *EngagementHandler) AddComment(c *gin.Context) {
	userID, postID, ok := actorAndPost(c)
	if !ok {
		return
	}

	var req engagementDto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), postID, userID, req.Content)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": comment})
}

func (h *EngagementHandler) GetComments(c *gin.Context) {
	postID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	comments, err := h.service.GetComments(c.Request.Context(), postID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": comments})
}

// DeleteComment handles DELETE /comments/:id
func (h *EngagementHandler) DeleteComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	commentID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteComment(c.Request.Context(), commentID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
