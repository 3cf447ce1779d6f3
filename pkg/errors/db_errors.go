// Package errors classifies MySQL errors returned through GORM, so that writers can tell
// a redelivered row from a transient failure.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DatabaseErrorType represents the type of database error.
type DatabaseErrorType int

const (
	// ErrorTypeUnknown represents an unknown database error.
	ErrorTypeUnknown DatabaseErrorType = iota
	// ErrorTypeDuplicateKey represents a unique constraint violation (MySQL 1062).
	ErrorTypeDuplicateKey
	// ErrorTypeInvalidJSON represents invalid data for a JSON column (MySQL 3140-3143).
	ErrorTypeInvalidJSON
	// ErrorTypeDataTooLong represents a value exceeding its column (MySQL 1406).
	ErrorTypeDataTooLong
	// ErrorTypeInvalidValue represents a NULL or truncated value (MySQL 1048, 1265, 1366).
	ErrorTypeInvalidValue
	// ErrorTypeNotFound represents gorm.ErrRecordNotFound.
	ErrorTypeNotFound
	// ErrorTypeDeadlock represents a deadlock or lock wait timeout (MySQL 1213, 1205).
	ErrorTypeDeadlock
	// ErrorTypeConnectionError represents a lost or refused connection.
	ErrorTypeConnectionError
)

var typeNames = map[DatabaseErrorType]string{
	ErrorTypeUnknown:         "unknown",
	ErrorTypeDuplicateKey:    "duplicate_key",
	ErrorTypeInvalidJSON:     "invalid_json",
	ErrorTypeDataTooLong:     "data_too_long",
	ErrorTypeInvalidValue:    "invalid_value",
	ErrorTypeNotFound:        "not_found",
	ErrorTypeDeadlock:        "deadlock",
	ErrorTypeConnectionError: "connection",
}

// String returns the log name of t.
func (t DatabaseErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return typeNames[ErrorTypeUnknown]
}

// DatabaseError wraps a database error with classification information.
type DatabaseError struct {
	Type         DatabaseErrorType
	OriginalErr  error
	MySQLErrCode uint16 // MySQL error number, 0 when not a server error
	Message      string
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// Retryable reports whether the same statement may succeed when sent again.
func (e *DatabaseError) Retryable() bool {
	return e.Type == ErrorTypeDeadlock || e.Type == ErrorTypeConnectionError
}

// mysqlErrors maps server error numbers to their classification.
var mysqlErrors = map[uint16]struct {
	typ     DatabaseErrorType
	message string
}{
	1062: {ErrorTypeDuplicateKey, "duplicate key constraint violation"},
	3140: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3141: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3142: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3143: {ErrorTypeInvalidJSON, "invalid JSON data"},
	1406: {ErrorTypeDataTooLong, "data too long for column"},
	1048: {ErrorTypeInvalidValue, "column cannot be null"},
	1265: {ErrorTypeInvalidValue, "invalid or truncated value"},
	1366: {ErrorTypeInvalidValue, "invalid or truncated value"},
	1213: {ErrorTypeDeadlock, "deadlock detected"},
	1205: {ErrorTypeDeadlock, "lock wait timeout exceeded"},
}

var connectionKeywords = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"invalid connection",
	"bad connection",
	"can't connect",
	"dial tcp",
}

// ClassifyDBError classifies a database error. It returns nil for a nil error.
//
// Example:
//
//	if err := db.Create(row).Error; err != nil {
//	    if dbErr := errors.ClassifyDBError(err); dbErr.Type == errors.ErrorTypeDuplicateKey {
//	        return nil // already stored by an earlier delivery
//	    }
//	    return err
//	}
func ClassifyDBError(err error) *DatabaseError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DatabaseError{Type: ErrorTypeNotFound, OriginalErr: err, Message: "record not found"}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if known, ok := mysqlErrors[mysqlErr.Number]; ok {
			return &DatabaseError{Type: known.typ, OriginalErr: err, MySQLErrCode: mysqlErr.Number, Message: known.message}
		}
		return &DatabaseError{Type: ErrorTypeUnknown, OriginalErr: err, MySQLErrCode: mysqlErr.Number, Message: "MySQL error"}
	}

	if errors.Is(err, mysql.ErrInvalidConn) || isConnectionError(err.Error()) {
		return &DatabaseError{Type: ErrorTypeConnectionError, OriginalErr: err, Message: "database connection error"}
	}

	return &DatabaseError{Type: ErrorTypeUnknown, OriginalErr: err, Message: "unknown database error"}
}

func isConnectionError(errMsg string) bool {
	errMsg = strings.ToLower(errMsg)
	for _, keyword := range connectionKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

// IsDuplicateKeyError checks if the error is a duplicate key constraint violation.
func IsDuplicateKeyError(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == ErrorTypeDuplicateKey
}

// IsRetryable checks if the error is a deadlock or a connection problem.
func IsRetryable(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Retryable()
}
