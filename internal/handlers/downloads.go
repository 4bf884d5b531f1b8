package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// DownloadHandler queues exports and serves finished files to their owner.
type DownloadHandler struct {
	svc *services.DownloadService
}

func NewDownloadHandler(svc *services.DownloadService) *DownloadHandler {
	return &DownloadHandler{svc: svc}
}

type downloadRequest struct {
	Resource string `json:"resource" validate:"required,max=64"`
	Format   string `json:"format" validate:"omitempty,max=16"`
}

// GET /api/downloads
func (h *DownloadHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	opts, ok := listOptions(c)
	if !ok {
		return
	}
	tasks, total, err := h.svc.List(requestContext(c), actor, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondList(c, tasks, opts, total)
}

// POST /api/downloads
func (h *DownloadHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req downloadRequest
	if !bindAndValidate(c, &req) {
		return
	}
	task, err := h.svc.Create(requestContext(c), actor, services.DownloadInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, task)
}

// GET /api/downloads/:id
func (h *DownloadHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	task, err := h.svc.Get(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// DELETE /api/downloads/:id
func (h *DownloadHandler) Delete(c *gin.Context) {
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

// GET /api/downloads/:id/file
func (h *DownloadHandler) File(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	file, err := h.svc.Open(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", file.ContentType)
	c.FileAttachment(file.Path, file.Name)
}
