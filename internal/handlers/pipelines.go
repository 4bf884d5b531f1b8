package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// PipelineHandler exposes pipelines. Their status is read-only for clients.
type PipelineHandler struct {
	svc *services.PipelineService
}

func NewPipelineHandler(svc *services.PipelineService) *PipelineHandler {
	return &PipelineHandler{svc: svc}
}

type pipelineCreateRequest struct {
	Number       *string    `json:"number" validate:"omitempty,max=64"`
	Title        *string    `json:"title" validate:"omitempty,max=255"`
	SalesOrderID *string    `json:"sales_order_id" validate:"omitempty,uuid"`
	DueDate      *time.Time `json:"due_date"`
}

// GET /api/pipelines
func (h *PipelineHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	opts, ok := listOptions(c)
	if !ok {
		return
	}
	pipelines, total, err := h.svc.List(requestContext(c), actor, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondList(c, pipelines, opts, total)
}

// GET /api/pipelines/:id
func (h *PipelineHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	pipeline, err := h.svc.Get(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, pipeline)
}

// POST /api/pipelines
func (h *PipelineHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req pipelineCreateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	pipeline, err := h.svc.Create(requestContext(c), actor, services.PipelineInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, pipeline)
}

// DELETE /api/pipelines/:id
func (h *PipelineHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/pipelines/:id/resync
func (h *PipelineHandler) Resync(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	pipeline, changed, err := h.svc.Resync(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"pipeline": pipeline, "changed": changed})
}
