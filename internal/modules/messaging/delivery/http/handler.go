package handler

import (
	"net/http"

	"locki.app/backend/internal/entity"
	messagingDto "locki.app/backend/internal/modules/messaging/dto"
	messaging "locki.app/backend/internal/modules/messaging/service"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/pubsub"
	"locki.app/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type MessagingHandler struct {
	service  messaging.MessagingService
	upgrader websocket.Upgrader
}

func NewMessagingHandler(service messaging.MessagingService, checkOrigin func(r *http.Request) bool) *MessagingHandler {
	return &MessagingHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func actorAndConversation(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	conversationID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, conversationID, true
}

// StartConversation handles POST /conversations
func (h *MessagingHandler) StartConversation(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req messagingDto.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	conv, err := h.service.GetOrCreateConversation(c.Request.Context(), userID, uuid.MustParse(req.UserID))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": conv})
}

func (h *MessagingHandler) GetConversations(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conversations, err := h.service.GetConversations(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": conversations})
}

// SendMessage handles POST /conversations/:id/messages
func (h *MessagingHandler) SendMessage(c *gin.Context) {
	userID, conversationID, ok := actorAndConversation(c)
	if !ok {
		return
	}

	var req messagingDto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), conversationID, userID, req.Content, entity.MessageType(req.Type))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

// GetMessages handles GET /conversations/:id/messages?limit=&before=
func (h *MessagingHandler) GetMessages(c *gin.Context) {
	userID, conversationID, ok := actorAndConversation(c)
	if !ok {
		return
	}

	var filter messagingDto.MessageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BindError(c, err)
		return
	}

	messages, err := h.service.GetMessages(c.Request.Context(), conversationID, userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": messages})
}

func (h *MessagingHandler) MarkRead(c *gin.Context) {
	userID, conversationID, ok := actorAndConversation(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), conversationID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation marked as read"})
}

// HandleWebSocket relays new messages of one conversation.
func (h *MessagingHandler) HandleWebSocket(c *gin.Context) {
	userID, conversationID, ok := actorAndConversation(c)
	if !ok {
		return
	}

	sub, err := h.service.Subscribe(c.Request.Context(), conversationID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}
	defer conn.Close()

	pubsub.Relay(conn, sub, c.Request.Context().Done())
}
