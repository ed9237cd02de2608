package http

import (
	"net/http"
	"strconv"

	searchDto "locki.app/backend/internal/modules/search/dto"
	searchService "locki.app/backend/internal/modules/search/service"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	service searchService.SearchService
}

func NewSearchHandler(service searchService.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles GET /search?q=&type=users|posts|all&limit=
func (h *SearchHandler) Search(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req searchDto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if req.Type == "" {
		req.Type = searchDto.TypeAll
	}

	ctx := c.Request.Context()
	var resp searchDto.SearchResponse

	if req.Type != searchDto.TypePosts {
		resp.Users, err = h.service.SearchUsers(ctx, req.Query, req.Limit)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
	}
	if req.Type != searchDto.TypeUsers {
		resp.Posts, err = h.service.SearchPosts(ctx, userID, req.Query, req.Limit)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
	}

	if err := h.service.SaveSearch(ctx, userID, req.Query, req.Type); err != nil {
		logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to save search history")
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *SearchHandler) GetHistory(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	history, err := h.service.GetSearchHistory(c.Request.Context(), userID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}
