package models

import "time"

// DownloadStatus tracks an export task through the worker queue.
type DownloadStatus string

const (
	DownloadPending   DownloadStatus = "PENDING"
	DownloadRunning   DownloadStatus = "RUNNING"
	DownloadCompleted DownloadStatus = "COMPLETED"
	DownloadFailed    DownloadStatus = "FAILED"
)

// DownloadTask is a user requested export and the file it produced.
type DownloadTask struct {
	TenantModel

	UserID     string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Resource   string         `gorm:"size:64;not null" json:"resource"`
	Format     string         `gorm:"size:16;not null" json:"format"`
	Status     DownloadStatus `gorm:"size:16;not null;index" json:"status"`
	FileName   string         `gorm:"size:255" json:"file_name"`
	FilePath   string         `json:"-"`
	Size       int64          `json:"size"`
	Rows       int            `json:"rows"`
	Error      string         `json:"error,omitempty"`
	FinishedAt *time.Time     `json:"finished_at"`
}
