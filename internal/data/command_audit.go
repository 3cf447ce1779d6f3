package data

import (
	"context"
	"sync"
	"time"

	"BountyBot/internal/model"
	pkgerrors "BountyBot/pkg/errors"
	pkglog "BountyBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// auditBufferSize bounds queued audit rows; Record drops beyond it instead of blocking.
const auditBufferSize = 1000

// CommandAudit is the GORM model for the command_audit_logs table
type CommandAudit struct {
	ID          int64     `gorm:"primaryKey;column:id"`
	DeliveryID  string    `gorm:"column:delivery_id;type:varchar(64);not null;uniqueIndex:uk_delivery_comment"`
	Repository  string    `gorm:"column:repository;type:varchar(255);not null;index:idx_repo_issue"`
	IssueNumber int       `gorm:"column:issue_number;not null;index:idx_repo_issue"`
	CommentID   int64     `gorm:"column:comment_id;not null;uniqueIndex:uk_delivery_comment"`
	Author      string    `gorm:"column:author;type:varchar(100);not null"`
	CommandType string    `gorm:"column:command_type;type:varchar(20);not null"`
	PullRequest bool      `gorm:"column:is_pull_request;not null"`
	Payload     string    `gorm:"column:payload;type:json"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (CommandAudit) TableName() string {
	return "command_audit_logs"
}

// CommandAuditLogger writes accepted commands to MySQL from a background goroutine.
// With a nil database it only logs them.
type CommandAuditLogger struct {
	db      *gorm.DB
	logChan chan *CommandAudit
	logger  *pkglog.LogHelper

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewCommandAuditLogger starts the writer. The cleanup function flushes queued rows.
func NewCommandAuditLogger(db *gorm.DB, logger log.Logger) (*CommandAuditLogger, func()) {
	al := &CommandAuditLogger{
		db:      db,
		logChan: make(chan *CommandAudit, auditBufferSize),
		logger:  pkglog.NewLogHelper(logger),
		done:    make(chan struct{}),
	}

	go al.start()

	return al, al.Close
}

func (a *CommandAuditLogger) start() {
	defer close(a.done)

	for row := range a.logChan {
		if a.db == nil {
			a.logger.Command("command audited (database disabled)",
				"delivery_id", row.DeliveryID,
				"repository", row.Repository,
				"issue_number", row.IssueNumber,
				"command_type", row.CommandType)
			continue
		}

		a.write(row)
	}
}

// write inserts row, retrying once on a deadlock or a dropped connection.
// A duplicate means GitHub redelivered a webhook that was already audited.
func (a *CommandAuditLogger) write(row *CommandAudit) {
	err := a.db.WithContext(context.Background()).Create(row).Error
	if err != nil && pkgerrors.IsRetryable(err) {
		row.ID = 0
		err = a.db.WithContext(context.Background()).Create(row).Error
	}

	switch {
	case err == nil:
		a.logger.Database("command audit log written",
			"delivery_id", row.DeliveryID,
			"command_type", row.CommandType)
	case pkgerrors.IsDuplicateKeyError(err):
		a.logger.Debugw("msg", "command already audited, skipping redelivery",
			"delivery_id", row.DeliveryID,
			"comment_id", row.CommentID)
	default:
		dbErr := pkgerrors.ClassifyDBError(err)
		a.logger.Errorw("msg", "failed to write command audit log",
			"delivery_id", row.DeliveryID,
			"command_type", row.CommandType,
			"error_type", dbErr.Type.String(),
			"error", err)
	}
}

// Record queues rec without blocking. When the queue is full the row is dropped with a warning.
func (a *CommandAuditLogger) Record(_ context.Context, rec *model.CommandAuditRecord) {
	if rec == nil {
		return
	}

	row := &CommandAudit{
		DeliveryID:  rec.DeliveryID,
		Repository:  rec.Repository,
		IssueNumber: rec.IssueNumber,
		CommentID:   rec.CommentID,
		Author:      rec.Author,
		CommandType: rec.CommandType,
		PullRequest: rec.IsPullRequest,
		Payload:     rec.Payload,
		CreatedAt:   rec.ReceivedAt,
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.logger.Warnw("msg", "command audit log closed, dropping record", "delivery_id", rec.DeliveryID)
		return
	}

	select {
	case a.logChan <- row:
	default:
		a.logger.Warnw("msg", "command audit channel full, dropping record",
			"delivery_id", rec.DeliveryID,
			"command_type", rec.CommandType)
	}
}

// Close stops accepting records and waits until queued ones are written.
func (a *CommandAuditLogger) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.logChan)
	}
	a.mu.Unlock()

	<-a.done
}
