package data

import (
	"context"
	"testing"
	"time"

	"BountyBot/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupTestDB creates a test database connection with sqlmock
func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func testAuditRecord() *model.CommandAuditRecord {
	return &model.CommandAuditRecord{
		DeliveryID:    "72d3162e-cc78-11e3-81ab-4c9367dc0958",
		Repository:    "acme/widgets",
		IssueNumber:   42,
		CommentID:     1001,
		Author:        "octocat",
		CommandType:   "submit",
		IsPullRequest: true,
		Payload:       `{"type":"submit","prNumber":7}`,
		ReceivedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCommandAuditLogger_Record(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec("INSERT INTO `command_audit_logs`").
		WithArgs("72d3162e-cc78-11e3-81ab-4c9367dc0958", "acme/widgets", 42, int64(1001), "octocat", "submit", true,
			`{"type":"submit","prNumber":7}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	auditor, cleanup := NewCommandAuditLogger(db, log.DefaultLogger)
	auditor.Record(context.Background(), testAuditRecord())

	// cleanup flushes the queue
	cleanup()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommandAuditLogger_WriteFailureIsLogged(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec("INSERT INTO `command_audit_logs`").
		WillReturnError(assert.AnError)

	auditor, cleanup := NewCommandAuditLogger(db, log.DefaultLogger)
	auditor.Record(context.Background(), testAuditRecord())
	cleanup()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommandAuditLogger_RetriesDeadlock(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec("INSERT INTO `command_audit_logs`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectExec("INSERT INTO `command_audit_logs`").
		WillReturnResult(sqlmock.NewResult(2, 1))

	auditor, cleanup := NewCommandAuditLogger(db, log.DefaultLogger)
	auditor.Record(context.Background(), testAuditRecord())
	cleanup()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommandAuditLogger_RedeliveryNotRetried(t *testing.T) {
	db, mock := setupTestDB(t)

	// A single insert: duplicates are skipped, not retried
	mock.ExpectExec("INSERT INTO `command_audit_logs`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uk_delivery_comment'"})

	auditor, cleanup := NewCommandAuditLogger(db, log.DefaultLogger)
	auditor.Record(context.Background(), testAuditRecord())
	cleanup()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommandAuditLogger_NilDatabase(t *testing.T) {
	auditor, cleanup := NewCommandAuditLogger(nil, log.DefaultLogger)

	auditor.Record(context.Background(), testAuditRecord())
	auditor.Record(context.Background(), nil)
	cleanup()

	// Records after close are dropped, not panics
	assert.NotPanics(t, func() {
		auditor.Record(context.Background(), testAuditRecord())
	})
	// Close is idempotent
	assert.NotPanics(t, cleanup)
}

func TestCommandAudit_TableName(t *testing.T) {
	assert.Equal(t, "command_audit_logs", CommandAudit{}.TableName())
}
