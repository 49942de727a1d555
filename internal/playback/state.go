// package playback keeps the audio device, UI state and the single "now
// playing" track consistent.
//
// Device callbacks arrive as tagged [Event] values and are folded into the
// [State] by a pure transition function; events tagged for a song that is no
// longer current are discarded, which is what makes switching tracks safe
// while late callbacks from the torn-down resource are still in flight.
package playback

import "github.com/quietfall/tonearm/internal/models"

// Status enumerates the controller states.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	case StatusErrored:
		return "errored"
	default:
		return "idle"
	}
}

// State is an immutable snapshot of playback.
type State struct {
	CurrentSong *models.Song
	Status      Status
	CurrentTime float64
	Duration    float64
	Volume      float64
	Expanded    bool
}

// IsPlaying reports whether audio is actively rendering. It can only be true
// with a current song, which keeps the isPlaying/currentSong invariant by
// construction.
func (s State) IsPlaying() bool {
	return s.CurrentSong != nil && s.Status == StatusPlaying
}

// EventKind enumerates device event types.
type EventKind int

const (
	EventLoadedMetadata EventKind = iota
	EventTimeUpdate
	EventEnded
	EventError
)

// Event is one device callback, tagged with the song the resource was bound
// for.
type Event struct {
	Kind     EventKind
	SongID   string
	Time     float64
	Duration float64
	Err      error
}

// apply folds a device event into the state.
//
// Events whose tag does not match the current song are stale emissions from a
// resource being torn down and leave the state untouched.
func apply(s State, ev Event) State {
	if s.CurrentSong == nil || ev.SongID != s.CurrentSong.ID {
		return s
	}

	switch ev.Kind {
	case EventLoadedMetadata:
		s.Duration = ev.Duration
		if s.CurrentTime > s.Duration {
			s.CurrentTime = s.Duration
		}
		if s.Status == StatusLoading {
			s.Status = StatusPaused
		}
	case EventTimeUpdate:
		if s.Status != StatusPlaying {
			return s
		}
		t := ev.Time
		if s.Duration > 0 && t > s.Duration {
			// Devices can transiently report past the end during seeks.
			t = s.Duration
		}
		if t > s.CurrentTime {
			s.CurrentTime = t
		}
	case EventEnded:
		s.Status = StatusEnded
		s.CurrentTime = s.Duration
	case EventError:
		s.Status = StatusErrored
	}
	return s
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
