package notify

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/quietfall/tonearm/internal/shared"
)

func TestForUpload(t *testing.T) {
	tc := []struct {
		name    string
		synced  bool
		err     error
		level   Level
		message string
	}{
		{
			name:    "synced",
			synced:  true,
			level:   LevelSuccess,
			message: "synced successfully",
		},
		{
			name:    "guest local",
			synced:  false,
			level:   LevelInfo,
			message: "local library",
		},
		{
			name:    "storage policy",
			err:     fmt.Errorf("%w: %w", shared.ErrStorage, shared.ErrPermissionPolicy),
			level:   LevelError,
			message: "storage permissions",
		},
		{
			name:    "record policy",
			err:     fmt.Errorf("%w: %w", shared.ErrRecord, shared.ErrPermissionPolicy),
			level:   LevelError,
			message: "database permissions",
		},
		{
			name:    "bucket missing",
			err:     fmt.Errorf("%w: gone", shared.ErrBucketMissing),
			level:   LevelError,
			message: "bucket missing",
		},
		{
			name:    "not configured",
			err:     fmt.Errorf("%w: %w", shared.ErrStorage, shared.ErrBackendNotConfigured),
			level:   LevelError,
			message: "not configured",
		},
		{
			name:    "generic",
			err:     errors.New("connection reset"),
			level:   LevelError,
			message: "Cloud error",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			n := ForUpload(tt.synced, tt.err)
			if n.Level != tt.level {
				t.Errorf("level = %v, want %v", n.Level, tt.level)
			}
			if !strings.Contains(n.Message, tt.message) {
				t.Errorf("message %q should mention %q", n.Message, tt.message)
			}
		})
	}
}

func TestForError(t *testing.T) {
	if n := ForError(shared.ErrNotAuthenticated); n.Level != LevelInfo {
		t.Errorf("missing session should be an info prompt, got %v", n.Level)
	}
	if n := ForError(fmt.Errorf("%w: autoplay", shared.ErrPlaybackRejected)); n.Level != LevelInfo {
		t.Errorf("autoplay rejection is a notice, not an error state, got %v", n.Level)
	}
	if n := ForError(fmt.Errorf("%w: bad frame", shared.ErrDevice)); n.Level != LevelError {
		t.Errorf("device errors are user-visible errors, got %v", n.Level)
	}
}

func TestRouterSink(t *testing.T) {
	var got []Notice
	r := NewRouter(func(n Notice) { got = append(got, n) })

	r.Publish(Notice{Level: LevelInfo, Message: "hello"})
	if len(got) != 1 || got[0].Message != "hello" {
		t.Errorf("sink not invoked: %+v", got)
	}

	// nil sink must not panic
	NewRouter(nil).Publish(Notice{})
}
