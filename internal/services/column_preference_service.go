package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/models"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
)

const maxPreferenceColumns = 200

var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_\-]{0,63}$`)

// ColumnPreferences is the column layout a user picked for one table view.
type ColumnPreferences struct {
	Table    string   `json:"table_name"`
	Columns  []string `json:"columns"`
	PageSize int      `json:"page_size"`
	Default  bool     `json:"default"`
}

// ColumnPreferenceService stores per user column layouts keyed by table name.
type ColumnPreferenceService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewColumnPreferenceService constructs a ColumnPreferenceService with the supplied dependencies.
func NewColumnPreferenceService(db *gorm.DB, audit *AuditService) (*ColumnPreferenceService, error) {
	if db == nil {
		return nil, fmt.Errorf("column preference service: db is required")
	}
	return &ColumnPreferenceService{db: db, audit: audit}, nil
}

// Get returns the stored layout or an empty default layout when none exists.
func (s *ColumnPreferenceService) Get(ctx context.Context, actor auditctx.Actor, table string) (ColumnPreferences, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return ColumnPreferences{}, err
	}
	table, err := normaliseTableName(table)
	if err != nil {
		return ColumnPreferences{}, err
	}

	var pref models.ColumnPreference
	err = s.db.WithContext(ctx).Where("user_id = ? AND table_name = ?", actor.UserID, table).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ColumnPreferences{Table: table, Columns: []string{}, Default: true}, nil
	}
	if err != nil {
		return ColumnPreferences{}, fmt.Errorf("column preference service: load: %w", err)
	}
	return decodePreference(pref), nil
}

// Put replaces the layout of table for the actor.
func (s *ColumnPreferenceService) Put(ctx context.Context, actor auditctx.Actor, table string, columns []string, pageSize int) (ColumnPreferences, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return ColumnPreferences{}, err
	}
	table, err := normaliseTableName(table)
	if err != nil {
		return ColumnPreferences{}, err
	}

	columns = normaliseIDs(columns)
	fields := map[string]string{}
	if len(columns) > maxPreferenceColumns {
		fields["columns"] = fmt.Sprintf("at most %d columns are allowed", maxPreferenceColumns)
	}
	if pageSize < 0 || pageSize > 200 {
		fields["page_size"] = "page_size must be between 0 and 200"
	}
	if len(fields) > 0 {
		return ColumnPreferences{}, apperrors.NewValidation(fields)
	}
	if columns == nil {
		columns = []string{}
	}

	payload, err := json.Marshal(columns)
	if err != nil {
		return ColumnPreferences{}, fmt.Errorf("column preference service: encode: %w", err)
	}

	var pref models.ColumnPreference
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND table_name = ?", actor.UserID, table).First(&pref).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pref = models.ColumnPreference{UserID: actor.UserID, Table: table, Columns: datatypes.JSON(payload), PageSize: pageSize}
			if err := tx.Create(&pref).Error; err != nil {
				if isUniqueConstraintError(err) {
					return apperrors.NewConflict("preference was updated concurrently, retry the request")
				}
				return err
			}
			return nil
		case err != nil:
			return err
		}
		pref.Columns = datatypes.JSON(payload)
		pref.PageSize = pageSize
		return tx.Save(&pref).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return ColumnPreferences{}, err
		}
		return ColumnPreferences{}, fmt.Errorf("column preference service: save: %w", err)
	}

	recordAudit(s.audit, ctx, actor, AuditEntry{
		Action:   "preferences.columns.update",
		Resource: table,
		Result:   "success",
		Metadata: map[string]any{"columns": len(columns)},
	})
	return decodePreference(pref), nil
}

// Reset deletes the stored layout of table so the default applies again.
func (s *ColumnPreferenceService) Reset(ctx context.Context, actor auditctx.Actor, table string) error {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return err
	}
	table, err := normaliseTableName(table)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Where("user_id = ? AND table_name = ?", actor.UserID, table).Delete(&models.ColumnPreference{}).Error; err != nil {
		return fmt.Errorf("column preference service: reset: %w", err)
	}
	recordAudit(s.audit, ctx, actor, AuditEntry{Action: "preferences.columns.reset", Resource: table, Result: "success"})
	return nil
}

// Columns returns the stored column list of userID for table, or nil.
func (s *ColumnPreferenceService) Columns(ctx context.Context, userID, table string) ([]string, error) {
	var pref models.ColumnPreference
	err := s.db.WithContext(ensureContext(ctx)).Where("user_id = ? AND table_name = ?", userID, table).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("column preference service: load: %w", err)
	}
	return decodePreference(pref).Columns, nil
}

func normaliseTableName(table string) (string, error) {
	table = strings.ToLower(strings.TrimSpace(table))
	if !tableNamePattern.MatchString(table) {
		return "", apperrors.NewBadRequest("table name must be lowercase letters, digits, '-' or '_'")
	}
	if _, ok := lookupContentType(table); !ok {
		return "", ErrUnknownResource
	}
	return table, nil
}

func decodePreference(pref models.ColumnPreference) ColumnPreferences {
	out := ColumnPreferences{Table: pref.Table, PageSize: pref.PageSize, Columns: []string{}}
	if len(pref.Columns) > 0 {
		var columns []string
		if err := json.Unmarshal(pref.Columns, &columns); err == nil && columns != nil {
			out.Columns = columns
		}
	}
	return out
}
