package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/statussync"
	"github.com/charlesng35/tradeflow/internal/workflow"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist in the tenant.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUnknownResource indicates an unsupported content type name.
	ErrUnknownResource = apperrors.New("UNKNOWN_RESOURCE", "Unknown resource", http.StatusNotFound)
	// ErrDownloadNotReady indicates the export file has not been produced yet.
	ErrDownloadNotReady = apperrors.New("DOWNLOAD_NOT_READY", "The download is not ready yet", http.StatusConflict)
	// ErrExportQueueFull indicates no export slot is available.
	ErrExportQueueFull = apperrors.New("EXPORT_QUEUE_FULL", "Too many exports are queued, try again later", http.StatusServiceUnavailable)
	// ErrConcurrentUpdate indicates the record changed status while the request was applied.
	ErrConcurrentUpdate = apperrors.New("CONCURRENT_UPDATE", "The record was changed by another request, reload it and try again", http.StatusConflict)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}

// transitionError maps workflow failures onto API errors.
func transitionError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrUnknownAction):
		return apperrors.NewBadRequest(err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition):
		return apperrors.NewConflict(err.Error())
	default:
		return err
	}
}

// notFound converts gorm.ErrRecordNotFound into a resource specific error.
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFound(resource)
	}
	return err
}

// writeError maps conditional write failures onto API errors.
func writeError(err error, resource string) error {
	switch {
	case errors.Is(err, statussync.ErrStatusConflict):
		return ErrConcurrentUpdate
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NewNotFound(resource)
	default:
		return err
	}
}
