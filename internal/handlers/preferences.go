package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// PreferenceHandler stores per user table layouts.
type PreferenceHandler struct {
	svc *services.ColumnPreferenceService
}

func NewPreferenceHandler(svc *services.ColumnPreferenceService) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

type columnPreferenceRequest struct {
	Columns  []string `json:"columns" validate:"max=200,dive,required,max=128"`
	PageSize int      `json:"page_size" validate:"gte=0,lte=200"`
}

// GET /api/preferences/columns/:table
func (h *PreferenceHandler) GetColumns(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	prefs, err := h.svc.Get(requestContext(c), actor, c.Param("table"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, prefs)
}

// PUT /api/preferences/columns/:table
func (h *PreferenceHandler) PutColumns(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req columnPreferenceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	prefs, err := h.svc.Put(requestContext(c), actor, c.Param("table"), req.Columns, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, prefs)
}

// DELETE /api/preferences/columns/:table
func (h *PreferenceHandler) ResetColumns(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.svc.Reset(requestContext(c), actor, c.Param("table")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
