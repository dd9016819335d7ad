// Package core provides the business logic for admissions spreadsheet sync.
//
// # Error Codes Reference
//
// Sync failures are reported with a code so operators can correlate a batch
// summary or HTTP response with the logs.
//
// # Sync Errors (SRC, ENT, PRS, SYN)
//
//	SRC001 - Sheet unavailable: the spreadsheet could not be fetched
//	         Action: Check the spreadsheet ID and that the service account can read it
//	         Sentinel: ErrSourceUnavailable
//
//	ENT001 - University not found: no university has the configured code
//	         Action: Create the university or fix the code in the sources file
//	         Sentinel: ErrEntityNotFound
//
//	PRS001 - No majors: the sheet produced no valid major rows
//	         Action: Check the sheet layout (code and name in columns B and C)
//	         Sentinel: ErrNoMajors
//
//	SYN001 - Sync running: another sync holds the store
//	         Action: Wait for the running sync to finish
//	         Sentinel: ErrSyncInProgress
//
//	SYN002 - Unknown source: the university code is not in the sources file
//	         Sentinel: ErrUnknownSource
//
//	SYN003 - Cancelled: the sync was cancelled         Patterns: "context canceled"
//	SYN004 - Timed out: the sync ran out of time       Patterns: "context deadline exceeded"
//
// # Database Errors (DB001-DB099)
//
//	DB000 - Store unavailable: initial connection failed (Sentinel: ErrStoreUnavailable)
//	DB001 - Duplicate key                       Patterns: "duplicate key"
//	DB003 - Foreign key                         Patterns: "foreign key constraint"
//	DB004 - Connection refused                  Patterns: "connection refused"
//	DB005 - Connection reset                    Patterns: "connection reset"
//	DB006 - Timeout                             Patterns: "timeout"
//	DB007 - Deadlock                            Patterns: "deadlock"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// # Matching
//
// Sentinels are matched with errors.Is first, then patterns are matched
// case-insensitively with strings.Contains. The first match wins.
package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnavailable means the spreadsheet provider failed to return a grid.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrEntityNotFound means the owning university code is not in the store.
	ErrEntityNotFound = errors.New("university not found")

	// ErrNoMajors means parsing produced no majors, so nothing was written.
	ErrNoMajors = errors.New("no majors parsed")

	// ErrStoreUnavailable means the store could not be reached before the batch.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSyncInProgress is returned when a sync is already running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUnknownSource is returned when a university code has no configured sheet.
	ErrUnknownSource = errors.New("unknown source")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrSourceUnavailable, UserMessage{
		Message: "The spreadsheet could not be fetched",
		Action:  "Check the spreadsheet ID and that the service account can read it",
		Code:    "SRC001",
	}},
	{ErrEntityNotFound, UserMessage{
		Message: "University not found",
		Action:  "Create the university or fix the code in the sources file",
		Code:    "ENT001",
	}},
	{ErrNoMajors, UserMessage{
		Message: "The sheet contains no valid majors",
		Action:  "Check the sheet layout: major code and name are required",
		Code:    "PRS001",
	}},
	{ErrStoreUnavailable, UserMessage{
		Message: "Unable to reach the database",
		Action:  "Check DATABASE_URL and that the database is running",
		Code:    "DB000",
	}},
	{ErrSyncInProgress, UserMessage{
		Message: "A sync is already running",
		Action:  "Wait for the running sync to finish",
		Code:    "SYN001",
	}},
	{ErrUnknownSource, UserMessage{
		Message: "No spreadsheet is configured for this university",
		Action:  "Add the university to the sources file",
		Code:    "SYN002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The sync was cancelled",
			Action:  "Run the sync again",
			Code:    "SYN003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The sync timed out",
			Action:  "Run the sync again or raise the timeout",
			Code:    "SYN004",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check for concurrent writers to the staging tables",
			Code:    "DB001",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure majors are staged before their requirements",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
