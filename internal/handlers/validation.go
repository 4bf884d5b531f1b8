package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/internal/services"
	appErrors "github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/response"
	appValidator "github.com/charlesng35/tradeflow/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		var ve appValidator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			response.Error(c, appErrors.NewValidation(ve.Fields()))
			return false
		}
		response.Error(c, appErrors.NewBadRequest("invalid request payload"))
		return false
	}

	return true
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseTimeQuery accepts RFC 3339 timestamps or plain dates.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed, nil
		}
	}
	return nil, appErrors.NewBadRequest(key + " must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// listOptions reads the shared pagination and filter query parameters.
func listOptions(c *gin.Context) (services.ListOptions, bool) {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return services.ListOptions{}, false
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return services.ListOptions{}, false
	}
	return services.ListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PerPage:  parseIntQuery(c, "per_page", 20),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		From:     from,
		To:       to,
		Pipeline: c.Query("pipeline_id"),
	}, true
}

func respondList(c *gin.Context, data any, opts services.ListOptions, total int64) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 200 {
		perPage = 20
	}
	response.SuccessWithMeta(c, 200, data, response.NewMeta(page, perPage, total))
}
