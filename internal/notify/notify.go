// package notify turns internal error classifications into user-visible
// messages. The decision of what to show is made here, once, instead of being
// scattered across call sites.
package notify

import (
	"errors"
	"fmt"

	"github.com/quietfall/tonearm/internal/shared"
)

// Level indicates how a notice should be presented.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is one user-visible message.
type Notice struct {
	Level   Level
	Message string
}

// Router fans notices out to a presentation sink.
type Router struct {
	sink func(Notice)
}

// NewRouter creates a Router delivering to sink. A nil sink discards notices.
func NewRouter(sink func(Notice)) *Router {
	return &Router{sink: sink}
}

// Publish delivers a notice.
func (r *Router) Publish(n Notice) {
	if r.sink != nil {
		r.sink(n)
	}
}

// ForUpload maps an upload outcome onto its user notice.
func ForUpload(synced bool, syncErr error) Notice {
	if synced {
		return Notice{Level: LevelSuccess, Message: "Track uploaded & synced successfully"}
	}
	if syncErr == nil {
		// Guest upload: local by design, nothing to report loudly.
		return Notice{Level: LevelInfo, Message: "Track added to your local library"}
	}

	switch {
	case errors.Is(syncErr, shared.ErrStorage) && errors.Is(syncErr, shared.ErrPermissionPolicy):
		return Notice{Level: LevelError, Message: "Upload failed (storage permissions). Playing locally."}
	case errors.Is(syncErr, shared.ErrRecord) && errors.Is(syncErr, shared.ErrPermissionPolicy):
		return Notice{Level: LevelError, Message: "Sync failed (database permissions). Playing locally."}
	case errors.Is(syncErr, shared.ErrBucketMissing):
		return Notice{Level: LevelError, Message: "Setup error: storage bucket missing. Playing locally."}
	case errors.Is(syncErr, shared.ErrBackendNotConfigured):
		return Notice{Level: LevelError, Message: "Backend not configured. Playing locally."}
	default:
		return Notice{Level: LevelError, Message: fmt.Sprintf("Playing locally. Cloud error: %v", syncErr)}
	}
}

// ForError maps a non-upload failure onto its user notice.
func ForError(err error) Notice {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return Notice{Level: LevelInfo, Message: "Please sign in or continue as guest to upload music."}
	case errors.Is(err, shared.ErrPlaybackRejected):
		return Notice{Level: LevelInfo, Message: "Playback was blocked by the system. Press play to start."}
	case errors.Is(err, shared.ErrDevice):
		return Notice{Level: LevelError, Message: "Unsupported format or playback error. Pick another track."}
	case errors.Is(err, shared.ErrAuthFailed):
		return Notice{Level: LevelError, Message: fmt.Sprintf("Sign-in failed: %v", err)}
	default:
		return Notice{Level: LevelError, Message: err.Error()}
	}
}
