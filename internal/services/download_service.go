package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tradeflow/internal/auditctx"
	"github.com/charlesng35/tradeflow/internal/database"
	"github.com/charlesng35/tradeflow/internal/exports"
	"github.com/charlesng35/tradeflow/internal/models"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/logger"
	"github.com/charlesng35/tradeflow/pkg/metrics"
)

// DefaultDownloadRetention is how long export tasks and their files are kept.
const DefaultDownloadRetention = 7 * 24 * time.Hour

// DownloadInput describes a requested export.
type DownloadInput struct {
	Resource string
	Format   string
}

// DownloadFile locates a finished export on disk.
type DownloadFile struct {
	Path        string
	Name        string
	ContentType string
}

// DownloadService manages export tasks and runs them on a background queue.
type DownloadService struct {
	db    *gorm.DB
	cfg   exports.Config
	store *exports.Store
	queue *exports.Queue
	prefs *ColumnPreferenceService
	audit *AuditService
	now   func() time.Time
	log   *zap.Logger
}

// NewDownloadService constructs a DownloadService together with its worker queue.
// Workers do not run until Start is called.
func NewDownloadService(db *gorm.DB, cfg exports.Config, prefs *ColumnPreferenceService, audit *AuditService) (*DownloadService, error) {
	if db == nil {
		return nil, errors.New("download service: db is required")
	}
	cfg = cfg.WithDefaults()
	svc := &DownloadService{
		db:    db,
		cfg:   cfg,
		store: exports.NewStore(cfg.Dir),
		prefs: prefs,
		audit: audit,
		now:   time.Now,
		log:   logger.WithModule("downloads"),
	}

	queue, err := exports.NewQueue(cfg, svc.Run)
	if err != nil {
		return nil, fmt.Errorf("download service: %w", err)
	}
	svc.queue = queue
	return svc, nil
}

// Start launches the export workers and re-enqueues tasks left unfinished by a previous run.
func (s *DownloadService) Start(ctx context.Context) error {
	s.queue.Start()
	_, err := s.RecoverPending(ctx)
	return err
}

// Stop drains the queue, cancelling running exports when ctx expires.
func (s *DownloadService) Stop(ctx context.Context) error {
	return s.queue.Stop(ctx)
}

// Create registers an export of resource for the actor and schedules it.
func (s *DownloadService) Create(ctx context.Context, actor auditctx.Actor, input DownloadInput) (*models.DownloadTask, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	ct, ok := lookupContentType(input.Resource)
	if !ok || !ct.Exportable {
		return nil, apperrors.NewValidation(map[string]string{"resource": "resource is not exportable"})
	}
	format, err := exports.ParseFormat(input.Format)
	if err != nil || !s.cfg.Supports(format) {
		return nil, apperrors.NewValidation(map[string]string{"format": "unsupported export format"})
	}

	task := &models.DownloadTask{
		UserID:   actor.UserID,
		Resource: ct.Name,
		Format:   string(format),
		Status:   models.DownloadPending,
	}
	task.TenantID = actor.TenantID
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("download service: create task: %w", err)
	}

	if err := s.queue.Enqueue(task.ID); err != nil {
		s.finish(ctx, task, fmt.Errorf("enqueue: %w", err))
		recordAudit(s.audit, ctx, actor, AuditEntry{
			Action:   "downloads.create",
			Resource: ct.Name,
			Result:   "failure",
			Metadata: map[string]any{"task_id": task.ID, "reason": err.Error()},
		})
		if errors.Is(err, exports.ErrQueueFull) {
			return nil, ErrExportQueueFull
		}
		return nil, fmt.Errorf("download service: enqueue: %w", err)
	}

	recordAudit(s.audit, ctx, actor, AuditEntry{
		Action:   "downloads.create",
		Resource: ct.Name,
		Result:   "success",
		Metadata: map[string]any{"task_id": task.ID, "format": task.Format},
	})
	return task, nil
}

// List returns the actor's own tasks, newest first.
func (s *DownloadService) List(ctx context.Context, actor auditctx.Actor, opts ListOptions) ([]models.DownloadTask, int64, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	opts = opts.normalised()

	query := tenantDB(s.db, ctx, actor).Model(&models.DownloadTask{}).Where("user_id = ?", actor.UserID)
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("download service: count tasks: %w", err)
	}

	tasks := []models.DownloadTask{}
	if err := query.Scopes(database.Paginate(opts.Page, opts.PerPage)).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("download service: list tasks: %w", err)
	}
	return tasks, total, nil
}

// Get returns one of the actor's own tasks.
func (s *DownloadService) Get(ctx context.Context, actor auditctx.Actor, id string) (*models.DownloadTask, error) {
	ctx = ensureContext(ctx)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var task models.DownloadTask
	err := tenantDB(s.db, ctx, actor).Where("id = ? AND user_id = ?", id, actor.UserID).Take(&task).Error
	if err != nil {
		return nil, notFound(err, "Download")
	}
	return &task, nil
}

// Open resolves the file of a completed task owned by the actor.
func (s *DownloadService) Open(ctx context.Context, actor auditctx.Actor, id string) (*DownloadFile, error) {
	task, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if task.Status != models.DownloadCompleted || task.FilePath == "" {
		return nil, ErrDownloadNotReady
	}
	format, err := exports.ParseFormat(task.Format)
	if err != nil {
		return nil, fmt.Errorf("download service: %w", err)
	}
	return &DownloadFile{Path: task.FilePath, Name: task.FileName, ContentType: format.ContentType()}, nil
}

// Delete removes one of the actor's tasks and its file.
func (s *DownloadService) Delete(ctx context.Context, actor auditctx.Actor, id string) error {
	task, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Remove(task.FilePath); err != nil {
		return fmt.Errorf("download service: %w", err)
	}
	if err := s.db.WithContext(ensureContext(ctx)).Delete(task).Error; err != nil {
		return fmt.Errorf("download service: delete task: %w", err)
	}
	return nil
}

// Run executes a queued task. Tasks that are no longer pending are ignored.
func (s *DownloadService) Run(ctx context.Context, taskID string) error {
	ctx = ensureContext(ctx)

	claim := s.db.WithContext(ctx).Model(&models.DownloadTask{}).
		Where("id = ? AND status = ?", taskID, models.DownloadPending).
		UpdateColumn("status", models.DownloadRunning)
	if claim.Error != nil {
		return fmt.Errorf("download service: claim task: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil
	}

	var task models.DownloadTask
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).Take(&task).Error; err != nil {
		return fmt.Errorf("download service: load task: %w", err)
	}

	runErr := s.export(ctx, &task)
	s.finish(ctx, &task, runErr)
	return runErr
}

func (s *DownloadService) export(ctx context.Context, task *models.DownloadTask) error {
	var owner models.User
	err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", task.UserID, task.TenantID).Take(&owner).Error
	if err != nil {
		return fmt.Errorf("load owner: %w", err)
	}
	actor := auditctx.FromUser(&owner)

	ct, ok := lookupContentType(task.Resource)
	if !ok || ct.loader == nil {
		return fmt.Errorf("resource %q is not exportable", task.Resource)
	}
	format, err := exports.ParseFormat(task.Format)
	if err != nil {
		return err
	}

	records, err := ct.loader(tenantDB(s.db, ctx, actor), actor)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	table, err := exports.Flatten(records)
	if err != nil {
		return err
	}

	var columns []string
	if s.prefs != nil {
		if columns, err = s.prefs.Columns(ctx, owner.ID, ct.Name); err != nil {
			return err
		}
	}

	path, size, err := s.store.Save(task.TenantID, task.ID, format, table, columns)
	if err != nil {
		return err
	}

	task.FilePath = path
	task.FileName = fmt.Sprintf("%s-%s.%s", ct.Name, s.now().UTC().Format("20060102-150405"), format.Extension())
	task.Size = size
	task.Rows = len(table.Rows)
	return nil
}

// finish records the terminal state of task. A nil runErr marks it completed.
func (s *DownloadService) finish(ctx context.Context, task *models.DownloadTask, runErr error) {
	now := s.now().UTC()
	updates := map[string]any{"finished_at": now}
	if runErr != nil {
		task.Status = models.DownloadFailed
		task.Error = runErr.Error()
		updates["status"] = models.DownloadFailed
		updates["error"] = task.Error
	} else {
		task.Status = models.DownloadCompleted
		updates["status"] = models.DownloadCompleted
		updates["file_path"] = task.FilePath
		updates["file_name"] = task.FileName
		updates["size"] = task.Size
		updates["rows"] = task.Rows
		updates["error"] = ""
	}
	task.FinishedAt = &now

	// Record the outcome even when the request context has been cancelled.
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Model(&models.DownloadTask{}).Where("id = ?", task.ID).UpdateColumns(updates).Error; err != nil {
		s.log.Error("failed to record export outcome", zap.String("task_id", task.ID), zap.Error(err))
	}

	metrics.ExportTasks.WithLabelValues(task.Resource, strings.ToLower(string(task.Status))).Inc()
	log := logger.WithTenant(s.log, task.TenantID).With(zap.String("task_id", task.ID), zap.String("resource", task.Resource))
	if runErr != nil {
		log.Warn("export failed", zap.Error(runErr))
		return
	}
	log.Info("export completed", zap.Int("rows", task.Rows), zap.Int64("size", task.Size))
}

// RecoverPending re-enqueues tasks interrupted by a restart. Running tasks are
// reset to pending first.
func (s *DownloadService) RecoverPending(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	if err := s.db.WithContext(ctx).Model(&models.DownloadTask{}).
		Where("status = ?", models.DownloadRunning).
		UpdateColumn("status", models.DownloadPending).Error; err != nil {
		return 0, fmt.Errorf("download service: reset running tasks: %w", err)
	}

	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.DownloadTask{}).
		Where("status = ?", models.DownloadPending).
		Order("created_at").
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("download service: list pending tasks: %w", err)
	}

	requeued := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(id); err != nil {
			s.log.Warn("pending export not requeued", zap.String("task_id", id), zap.Error(err))
			break
		}
		requeued++
	}
	if requeued > 0 {
		s.log.Info("requeued pending exports", zap.Int("count", requeued))
	}
	return requeued, nil
}

// CleanupExpired deletes tasks created before now minus retention, along with
// their files. Missing files are ignored. Tasks whose file cannot be removed are kept.
func (s *DownloadService) CleanupExpired(ctx context.Context, retention time.Duration, now time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	if retention <= 0 {
		retention = DefaultDownloadRetention
	}
	cutoff := now.UTC().Add(-retention)

	var tasks []models.DownloadTask
	if err := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("download service: find expired tasks: %w", err)
	}

	var (
		removed int64
		errs    error
	)
	for i := range tasks {
		task := &tasks[i]
		if err := s.store.Remove(task.FilePath); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := s.db.WithContext(ctx).Delete(task).Error; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete task %s: %w", task.ID, err))
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.DownloadsPurged.Add(float64(removed))
	}
	return removed, errs
}
