package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/response"
)

type MetaHandler struct {
	svc *services.MetadataService
}

func NewMetaHandler(svc *services.MetadataService) *MetaHandler {
	return &MetaHandler{svc: svc}
}

// GET /api/meta/content-types
func (h *MetaHandler) ContentTypes(c *gin.Context) {
	response.Success(c, http.StatusOK, h.svc.ContentTypes(requestContext(c)))
}

// GET /api/meta/fields/:resource
func (h *MetaHandler) Fields(c *gin.Context) {
	fields, err := h.svc.Fields(requestContext(c), c.Param("resource"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, fields)
}
