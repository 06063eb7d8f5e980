package core

// error_messages.go maps technical errors to operator codes. Log lines are
// the only surface this system has, so every fault logged at ERROR carries
// a code that points the on-call engineer at the likely cause.
//
// Codes are grouped by category:
//
// # Database (DB001-DB099)
//
//	DB001 - Duplicate event: this IdP event was imported by an earlier file
//	        Patterns: "duplicate key", "violates unique"
//	DB002 - Foreign key: the owning session row is missing
//	        Patterns: "violates foreign key"
//	DB003 - Connection refused / reset
//	        Patterns: "connection refused", "connection reset"
//	DB004 - Timeout
//	        Patterns: "timeout"
//	DB005 - Deadlock
//	        Patterns: "deadlock"
//	DB006 - Unit of work failed (begin/commit/rollback)
//	        Patterns: "persistence fault"
//
// # Row validation (VAL001-VAL099)
//
//	VAL001 - Timestamp in none of the recognised formats
//	         Patterns: "unrecognised timestamp"
//	VAL002 - Contra score is not an integer
//	         Patterns: "invalid contra score"
//	VAL003 - Row has fewer than eight columns
//	         Patterns: "index out of range"
//	VAL004 - CSV syntax error
//	         Patterns: "parse error on line"
//
// # Object metadata and storage (S3001-S3099)
//
//	S3001 - Missing required object tag (idp or username)
//	        Patterns: "missing required tag"
//	S3002 - Unusable optional tag (timezone, dialect, has_header)
//	        Patterns: "invalid tag value"
//	S3003 - Object not found
//	        Patterns: "nosuchkey", "not found"
//	S3004 - Access denied
//	        Patterns: "accessdenied", "access denied"
//	S3005 - Relocation failed after the outcome was recorded
//	        Patterns: "relocating"
//
// # Import control (IMP001-IMP099)
//
//	IMP001 - System busy: too many imports
//	IMP002 - Cancelled
//	IMP003 - Deadline exceeded
//
// # Default (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains, first
// match wins, so specific patterns come before general ones.

import (
	"strings"
)

// UserMessage is an operator-facing description of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgDuplicate = UserMessage{
		Message: "This IdP event was already imported",
		Action:  "Remove rows that were delivered in an earlier file and re-upload",
		Code:    "DB001",
	}
	msgConnection = UserMessage{
		Message: "Unable to reach the database",
		Action:  "Check database availability; the import is safe to retry",
		Code:    "DB003",
	}
	msgNotFound = UserMessage{
		Message: "Source object not found",
		Action:  "The object may already have been relocated; check the success and error folders",
		Code:    "S3003",
	}
	msgAccessDenied = UserMessage{
		Message: "Access to the bucket was denied",
		Action:  "Check the function role allows Get/Put/Delete object and GetObjectTagging",
		Code:    "S3004",
	}
)

var errorPatterns = []errorPattern{
	// =========================================================================
	// Row validation (VAL001-VAL004)
	// Checked first: a row message may quote a database error.
	// =========================================================================
	{"unrecognised timestamp", UserMessage{
		Message: "Event time is not in a recognised format",
		Action:  "Use DD/MM/YYYY HH:MM or an ISO-8601 timestamp",
		Code:    "VAL001",
	}},
	{"invalid contra score", UserMessage{
		Message: "Contra score is not a whole number",
		Action:  "Leave the score blank or use an integer such as -5",
		Code:    "VAL002",
	}},
	{"index out of range", UserMessage{
		Message: "Row has fewer columns than expected",
		Action:  "Each row needs all eight columns, even when some are empty",
		Code:    "VAL003",
	}},
	{"parse error on line", UserMessage{
		Message: "File is not valid CSV",
		Action:  "Check quoting around fields that contain commas or line breaks",
		Code:    "VAL004",
	}},

	// =========================================================================
	// Database (DB001-DB006)
	// =========================================================================
	{"duplicate key", msgDuplicate},
	{"violates unique", msgDuplicate},
	{"violates foreign key", UserMessage{
		Message: "Import session record is missing",
		Action:  "Retry the import",
		Code:    "DB002",
	}},
	{"connection refused", msgConnection},
	{"connection reset", msgConnection},
	{"timeout", UserMessage{
		Message: "Database operation timed out",
		Action:  "Retry the import; split very large files",
		Code:    "DB004",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Retry the import",
		Code:    "DB005",
	}},
	{"persistence fault", UserMessage{
		Message: "The import could not be recorded",
		Action:  "Nothing was stored and the file was not moved; retry the import",
		Code:    "DB006",
	}},

	// =========================================================================
	// Object metadata and storage (S3001-S3005)
	// =========================================================================
	{"missing required tag", UserMessage{
		Message: "Object is missing the idp or username tag",
		Action:  "Re-upload the file with both tags set",
		Code:    "S3001",
	}},
	{"invalid tag value", UserMessage{
		Message: "An optional object tag has an unusable value",
		Action:  "Check the timezone, dialect and has_header tags",
		Code:    "S3002",
	}},
	{"relocating", UserMessage{
		Message: "The import was recorded but the file could not be moved",
		Action:  "Retry the import; only the move will be repeated",
		Code:    "S3005",
	}},
	{"nosuchkey", msgNotFound},
	{"not found", msgNotFound},
	{"accessdenied", msgAccessDenied},
	{"access denied", msgAccessDenied},

	// =========================================================================
	// Import control (IMP001-IMP003)
	// =========================================================================
	{"too many imports", UserMessage{
		Message: "System is busy processing other files",
		Action:  "The notification will be retried",
		Code:    "IMP001",
	}},
	{"context canceled", UserMessage{
		Message: "Import was cancelled",
		Action:  "Retry the import",
		Code:    "IMP002",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Import timed out",
		Action:  "Raise IMPORT_TIMEOUT or split the file",
		Code:    "IMP003",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError returns the operator message for err, or ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// ErrorCode is MapError(err).Code.
func ErrorCode(err error) string {
	return MapError(err).Code
}
