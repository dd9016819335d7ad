package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"wrapped source unavailable", fmt.Errorf("fetch QST: %w", ErrSourceUnavailable), "SRC001"},
		{"wrapped entity not found", fmt.Errorf("resolve QST: %w", ErrEntityNotFound), "ENT001"},
		{"no majors", ErrNoMajors, "PRS001"},
		{"store unavailable", fmt.Errorf("ping: %w", ErrStoreUnavailable), "DB000"},
		{"sync in progress", ErrSyncInProgress, "SYN001"},
		{"unknown source", ErrUnknownSource, "SYN002"},
		{"context canceled", fmt.Errorf("stage majors: %w", context.Canceled), "SYN003"},
		{"deadline", fmt.Errorf("merge: %w", context.DeadlineExceeded), "SYN004"},
		{"duplicate key", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB004"},
		{"deadlock", errors.New("deadlock detected"), "DB007"},
		{"unknown", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapError(tt.err).Code)
		})
	}
}

func TestMapError_SentinelBeatsPattern(t *testing.T) {
	err := fmt.Errorf("fetch: timeout talking to provider: %w", ErrSourceUnavailable)
	assert.Equal(t, "SRC001", MapError(err).Code)
}

func TestFormatUserError(t *testing.T) {
	assert.Equal(t, "", FormatUserError(nil))
	assert.Equal(t,
		"University not found (Code: ENT001). Create the university or fix the code in the sources file",
		FormatUserError(ErrEntityNotFound),
	)
}

func TestIsUserFacing(t *testing.T) {
	assert.False(t, IsUserFacing(nil))
	assert.False(t, IsUserFacing(errors.New("boom")))
	assert.True(t, IsUserFacing(ErrNoMajors))
}
