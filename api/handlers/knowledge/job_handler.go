package knowledge

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"backend/api/handlers/common"
	"backend/internal/rag"
)

// JobHandler 摄取任务状态查询接口
type JobHandler struct {
	jobs *rag.JobStore
}

// NewJobHandler 创建任务查询处理器
func NewJobHandler(jobs *rag.JobStore) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GetJob 查询单个任务
// GET /api/rag/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, rag.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, common.ErrorResponse{
				Code:    "job_not_found",
				Message: "摄取任务不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    "internal_error",
			Message: "查询任务失败",
		})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Data: toJobResponse(job)})
}

// ListJobs 按状态查询任务列表
// GET /api/rag/jobs?status=failed&limit=20
func (h *JobHandler) ListJobs(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", rag.JobStatusQueued, rag.JobStatusActive, rag.JobStatusCompleted, rag.JobStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    "invalid_status",
			Message: "无效的任务状态: " + status,
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	jobs, err := h.jobs.List(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Code:    "internal_error",
			Message: "查询任务列表失败",
		})
		return
	}

	items := make([]*JobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, toJobResponse(job))
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Data: items})
}
