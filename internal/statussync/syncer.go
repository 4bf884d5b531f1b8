// Package statussync propagates sub-order status changes to the owning pipeline.
//
// Every write goes through Syncer.Save, which captures the persisted status,
// writes the record and then recomputes the pipeline at most once. Pipeline
// updates use column updates that run no model hooks, so a sync can never
// trigger another sync.
package statussync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/pkg/logger"
	"github.com/charlesng35/tradeflow/pkg/metrics"
)

var (
	// ErrUnsupportedKind is returned for order kinds that do not feed a pipeline.
	ErrUnsupportedKind = errors.New("statussync: unsupported order kind")
	// ErrPipelineNotFound is returned when a referenced pipeline does not exist.
	ErrPipelineNotFound = errors.New("statussync: pipeline not found")
	// ErrStatusConflict is returned when the stored status no longer matches
	// the status a conditional Save expected.
	ErrStatusConflict = errors.New("statussync: status changed concurrently")
)

var tables = map[models.OrderKind]string{
	models.KindPurchaseOrder:   "purchase_orders",
	models.KindProductionOrder: "production_orders",
	models.KindOutboundOrder:   "outbound_orders",
}

// SyncEvent describes one pipeline recomputation.
type SyncEvent struct {
	PipelineID string
	Trigger    models.OrderKind
	Previous   models.Status
	Derived    models.Status
	Changed    bool
}

// Observer receives every recomputation after it is persisted.
type Observer func(SyncEvent)

// Option configures a Syncer.
type Option func(*Syncer)

// WithObserver registers fn to be called after each pipeline recomputation.
func WithObserver(fn Observer) Option {
	return func(s *Syncer) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithLogger overrides the module logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Syncer) {
		if log != nil {
			s.log = log
		}
	}
}

// Syncer writes sub-orders and keeps pipeline statuses in step with them.
type Syncer struct {
	db        *gorm.DB
	log       *zap.Logger
	observers []Observer
}

// New constructs a Syncer.
func New(db *gorm.DB, opts ...Option) (*Syncer, error) {
	if db == nil {
		return nil, errors.New("statussync: db is required")
	}
	s := &Syncer{db: db, log: logger.WithModule("statussync")}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveOption tunes a single Save call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	skipSync bool
	expect   *models.Status
}

// SkipSync suppresses the pipeline recomputation for this call only.
func SkipSync() SaveOption {
	return func(o *saveOptions) {
		o.skipSync = true
	}
}

// ExpectStatus makes an update conditional on the stored status still being
// status. On a mismatch nothing is written and Save returns ErrStatusConflict.
// A record that no longer exists yields gorm.ErrRecordNotFound instead of
// being recreated.
func ExpectStatus(status models.Status) SaveOption {
	return func(o *saveOptions) {
		o.expect = &status
	}
}

// SaveResult reports what a Save call did.
type SaveResult struct {
	Created         bool
	PreviousStatus  models.Status
	StatusChanged   bool
	RefChanged      bool
	Synced          bool
	PipelineChanged bool
}

// Save creates or updates entity and, when its status changed, recomputes the
// linked pipeline once. Moving an existing record to another pipeline
// recomputes both the old and the new one. All writes share one transaction.
func (s *Syncer) Save(ctx context.Context, entity models.SubOrder, opts ...SaveOption) (SaveResult, error) {
	var result SaveResult
	if entity == nil {
		return result, errors.New("statussync: entity is required")
	}
	table, ok := tables[entity.Kind()]
	if !ok {
		return result, fmt.Errorf("%w: %s", ErrUnsupportedKind, entity.Kind())
	}

	options := saveOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, exists, err := persistedState(tx, table, entity.GetID())
		if err != nil {
			return err
		}

		switch {
		case !exists && options.expect != nil:
			return fmt.Errorf("statussync: %s %s: %w", entity.Kind(), entity.GetID(), gorm.ErrRecordNotFound)
		case !exists:
			err = tx.Create(entity).Error
		case options.expect != nil:
			if stored.Status != *options.expect {
				return fmt.Errorf("%w: %s %s is %s", ErrStatusConflict, entity.Kind(), entity.GetID(), stored.Status)
			}
			err = saveIfStatus(tx, entity, *options.expect)
		default:
			err = tx.Save(entity).Error
		}
		if err != nil {
			if errors.Is(err, ErrStatusConflict) {
				return err
			}
			return fmt.Errorf("statussync: write %s: %w", entity.Kind(), err)
		}

		current := normaliseRef(entity.PipelineRef())
		result.Created = !exists
		result.PreviousStatus = stored.Status
		result.StatusChanged = stored.Status != entity.CurrentStatus()
		result.RefChanged = exists && normaliseRef(stored.PipelineID) != current

		if !result.StatusChanged && !result.RefChanged {
			return nil
		}
		previousRef := ""
		if result.RefChanged {
			previousRef = normaliseRef(stored.PipelineID)
		}
		if current == "" && previousRef == "" {
			return nil
		}
		if options.skipSync {
			metrics.StatusSyncs.WithLabelValues(string(entity.Kind()), "skipped").Inc()
			return nil
		}

		if previousRef != "" {
			if _, err := s.sync(tx, previousRef, entity.Kind()); err != nil && !errors.Is(err, ErrPipelineNotFound) {
				return err
			}
		}
		if current == "" {
			return nil
		}
		changed, err := s.sync(tx, current, entity.Kind())
		if err != nil {
			return err
		}
		result.Synced = true
		result.PipelineChanged = changed
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}
	return result, nil
}

// SyncPipeline recomputes pipelineID from its sub-orders and stores the result
// when it differs. tx may be nil to use the Syncer's own handle.
func (s *Syncer) SyncPipeline(ctx context.Context, tx *gorm.DB, pipelineID string) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	return s.sync(tx.WithContext(ctx), pipelineID, models.KindPipeline)
}

// BulkUpdateStatus sets status on every sub-order of kind in ids with a column
// update. It never recomputes pipelines.
func (s *Syncer) BulkUpdateStatus(ctx context.Context, kind models.OrderKind, ids []string, status models.Status) (int64, error) {
	table, ok := tables[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Table(table).Where("id IN ?", ids).UpdateColumn("status", status)
	if res.Error != nil {
		return 0, fmt.Errorf("statussync: bulk update %s: %w", kind, res.Error)
	}
	s.log.Debug("bulk status update", zap.String("kind", string(kind)), zap.Int64("rows", res.RowsAffected), zap.String("status", string(status)))
	return res.RowsAffected, nil
}

// SetPipelineStatus writes status directly onto a pipeline without recomputation.
func (s *Syncer) SetPipelineStatus(ctx context.Context, tx *gorm.DB, pipelineID string, status models.Status) error {
	if tx == nil {
		tx = s.db
	}
	res := tx.WithContext(ctx).Model(&models.Pipeline{}).Where("id = ?", pipelineID).UpdateColumn("status", status)
	if res.Error != nil {
		return fmt.Errorf("statussync: set pipeline status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPipelineNotFound
	}
	return nil
}

// Load returns the current snapshot of sub-order statuses for pipelineID.
func Load(tx *gorm.DB, pipelineID string) (Snapshot, error) {
	var snap Snapshot
	if err := tx.Table(tables[models.KindPurchaseOrder]).Where("pipeline_id = ?", pipelineID).Pluck("status", &snap.Purchase).Error; err != nil {
		return snap, fmt.Errorf("statussync: load purchase orders: %w", err)
	}
	if err := tx.Table(tables[models.KindProductionOrder]).Where("pipeline_id = ?", pipelineID).Pluck("status", &snap.Production).Error; err != nil {
		return snap, fmt.Errorf("statussync: load production orders: %w", err)
	}
	if err := tx.Table(tables[models.KindOutboundOrder]).Where("pipeline_id = ?", pipelineID).Pluck("status", &snap.Outbound).Error; err != nil {
		return snap, fmt.Errorf("statussync: load outbound orders: %w", err)
	}
	return snap, nil
}

func (s *Syncer) sync(tx *gorm.DB, pipelineID string, trigger models.OrderKind) (bool, error) {
	kind := string(trigger)

	var pipeline models.Pipeline
	if err := tx.Select("id", "tenant_id", "status").Take(&pipeline, "id = ?", pipelineID).Error; err != nil {
		metrics.StatusSyncs.WithLabelValues(kind, "error").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: %s", ErrPipelineNotFound, pipelineID)
		}
		return false, fmt.Errorf("statussync: load pipeline: %w", err)
	}

	snap, err := Load(tx, pipelineID)
	if err != nil {
		metrics.StatusSyncs.WithLabelValues(kind, "error").Inc()
		return false, err
	}

	derived := DerivePipelineStatus(pipeline.Status, snap)
	event := SyncEvent{
		PipelineID: pipelineID,
		Trigger:    trigger,
		Previous:   pipeline.Status,
		Derived:    derived,
		Changed:    derived != pipeline.Status,
	}

	if event.Changed {
		if err := tx.Model(&models.Pipeline{}).Where("id = ?", pipelineID).UpdateColumn("status", derived).Error; err != nil {
			metrics.StatusSyncs.WithLabelValues(kind, "error").Inc()
			return false, fmt.Errorf("statussync: update pipeline: %w", err)
		}
		metrics.StatusSyncs.WithLabelValues(kind, "updated").Inc()
		logger.WithTenant(s.log, pipeline.TenantID).Info("pipeline status updated",
			zap.String("pipeline_id", pipelineID),
			zap.String("trigger", kind),
			zap.String("from", string(pipeline.Status)),
			zap.String("to", string(derived)),
		)
	} else {
		metrics.StatusSyncs.WithLabelValues(kind, "unchanged").Inc()
	}

	for _, observe := range s.observers {
		observe(event)
	}
	return event.Changed, nil
}

type storedState struct {
	Status     models.Status
	PipelineID *string
}

func persistedState(tx *gorm.DB, table, id string) (storedState, bool, error) {
	var row storedState
	if strings.TrimSpace(id) == "" {
		return row, false, nil
	}

	err := tx.Table(table).Select("status", "pipeline_id").Where("id = ?", id).Take(&row).Error
	switch {
	case err == nil:
		return row, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storedState{}, false, nil
	default:
		return storedState{}, false, fmt.Errorf("statussync: load persisted state: %w", err)
	}
}

// saveIfStatus writes every column of entity only while the row still holds
// expected, so a concurrent transition is never overwritten.
func saveIfStatus(tx *gorm.DB, entity models.SubOrder, expected models.Status) error {
	res := tx.Model(entity).Where("status = ?", expected).Select("*").Updates(entity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrStatusConflict, entity.Kind(), entity.GetID())
	}
	return nil
}

func normaliseRef(ref *string) string {
	if ref == nil {
		return ""
	}
	return strings.TrimSpace(*ref)
}
