package handler

import (
	"net/http"
	"strconv"

	buddyDto "locki.app/backend/internal/modules/buddy/dto"
	buddyService "locki.app/backend/internal/modules/buddy/service"
	"locki.app/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BuddyHandler struct {
	service buddyService.BuddyService
}

func NewBuddyHandler(service buddyService.BuddyService) *BuddyHandler {
	return &BuddyHandler{service: service}
}

// SendRequest handles POST /buddies/requests
func (h *BuddyHandler) SendRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req buddyDto.BuddyRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.service.SendRequest(c.Request.Context(), userID, uuid.MustParse(req.UserID)); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Buddy request sent"})
}

// AcceptRequest handles POST /buddies/requests/:id/accept where :id is the requester.
func (h *BuddyHandler) AcceptRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	requesterID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.AcceptRequest(c.Request.Context(), requesterID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Buddy request accepted"})
}

func (h *BuddyHandler) DeclineRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	requesterID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeclineRequest(c.Request.Context(), requesterID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Buddy request declined"})
}

func (h *BuddyHandler) RemoveBuddy(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	buddyID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.RemoveBuddy(c.Request.Context(), userID, buddyID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *BuddyHandler) GetBuddies(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	buddies, err := h.service.GetBuddies(c.Request.Context(), userID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": buddies})
}

func (h *BuddyHandler) GetPendingRequests(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	requests, err := h.service.GetPendingRequests(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": requests})
}

// GetStatus handles GET /buddies/:id/status
func (h *BuddyHandler) GetStatus(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	otherID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), userID, otherID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}
