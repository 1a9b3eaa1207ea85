package knowledge

import (
	"time"

	"backend/internal/rag"
)

// SearchRequest 语义检索请求
type SearchRequest struct {
	Query   string `json:"query" binding:"required"`
	Subject string `json:"subject"`
	Level   string `json:"level"`
	TopK    int    `json:"top_k"`
}

// SearchResponse 语义检索响应
type SearchResponse struct {
	Snippets []rag.Snippet `json:"snippets"`
	Degraded bool          `json:"degraded"`
}

// JobResponse 摄取任务状态
type JobResponse struct {
	ID        string `json:"id"`
	DestKey   string `json:"dest_key"`
	Subject   string `json:"subject,omitempty"`
	Level     string `json:"level,omitempty"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toJobResponse(job *rag.IngestJob) *JobResponse {
	return &JobResponse{
		ID:        job.ID,
		DestKey:   job.DestKey,
		Subject:   job.Subject,
		Level:     job.Level,
		Status:    job.Status,
		Attempts:  job.Attempts,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}
}
