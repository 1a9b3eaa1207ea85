package knowledge

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/api/handlers/common"
	"backend/internal/rag"
)

// SearchHandler 语义检索接口
type SearchHandler struct {
	builder *rag.ContextBuilder
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(builder *rag.ContextBuilder) *SearchHandler {
	return &SearchHandler{builder: builder}
}

// Search 语义检索
// POST /api/rag/search
// 零命中返回空列表; 检索链路故障返回 503，与空结果严格区分
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    "invalid_request",
			Message: "请求参数错误: " + err.Error(),
		})
		return
	}

	result, err := h.builder.Build(c.Request.Context(), req.Query, rag.SearchFilters{
		Subject: req.Subject,
		Level:   req.Level,
	}, req.TopK)
	if err != nil {
		if errors.Is(err, rag.ErrSearch) {
			c.JSON(http.StatusServiceUnavailable, common.ErrorResponse{
				Code:    "search_unavailable",
				Message: "检索服务暂不可用",
			})
			return
		}
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    "invalid_request",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{
		Success: true,
		Data: SearchResponse{
			Snippets: result.Snippets,
			Degraded: result.Degraded,
		},
	})
}
