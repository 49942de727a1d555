package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/shared"
)

// Device abstracts the audio rendering resource. Exactly one resource is
// bound at a time; Bind releases the previous one. All emitted events carry
// the song id the resource was bound for.
type Device interface {
	Bind(songID, sourceURL string) error
	Play() error
	Pause()
	Seek(seconds float64)
	SetVolume(v float64)
	Stop()
	Events() <-chan Event
}

// Controller owns the playback state and drives the device.
type Controller struct {
	device Device
	logger *log.Logger

	mu       sync.Mutex
	state    State
	onChange func(State)
}

// NewController creates a Controller in the Idle state with the given initial
// volume (clamped to [0,1]).
func NewController(device Device, volume float64, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	c := &Controller{
		device: device,
		logger: logger,
		state:  State{Status: StatusIdle, Volume: clamp(volume, 0, 1)},
	}
	device.SetVolume(c.state.Volume)
	return c
}

// Run consumes device events until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	go func() {
		events := c.device.Events()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.handleEvent(ev)
			}
		}
	}()
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetOnChange registers a callback invoked with every new snapshot.
func (c *Controller) SetOnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Load binds a new song. The previous device resource is stopped first so
// audio never overlaps; state moves to Loading until the device reports
// duration. The controller volume carries over to the new resource.
func (c *Controller) Load(song models.Song) error {
	c.mu.Lock()
	c.state.CurrentSong = &song
	c.state.Status = StatusLoading
	c.state.CurrentTime = 0
	c.state.Duration = song.DurationSeconds
	volume := c.state.Volume
	c.mu.Unlock()

	c.device.Stop()
	if err := c.device.Bind(song.ID, song.SourceURL); err != nil {
		c.mu.Lock()
		c.state.Status = StatusErrored
		c.mu.Unlock()
		c.emit()
		return fmt.Errorf("%w: %w", shared.ErrDevice, err)
	}
	c.device.SetVolume(volume)

	c.emit()
	return nil
}

// Play requests the device to start. A host rejection (autoplay policy)
// reverts to Paused and surfaces shared.ErrPlaybackRejected, which is a
// notice, not a track error.
func (c *Controller) Play() error {
	c.mu.Lock()
	if c.state.CurrentSong == nil {
		c.mu.Unlock()
		return shared.ErrNoTrackLoaded
	}
	if c.state.Status == StatusErrored {
		c.mu.Unlock()
		return shared.ErrDevice
	}
	c.state.Status = StatusPlaying
	c.mu.Unlock()
	c.emit()

	if err := c.device.Play(); err != nil {
		c.mu.Lock()
		c.state.Status = StatusPaused
		c.mu.Unlock()
		c.emit()
		return fmt.Errorf("%w: %w", shared.ErrPlaybackRejected, err)
	}
	return nil
}

// Pause is synchronous; device pause does not fail.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.state.CurrentSong == nil {
		c.mu.Unlock()
		return
	}
	c.state.Status = StatusPaused
	c.mu.Unlock()

	c.device.Pause()
	c.emit()
}

// TogglePlay flips between playing and paused.
func (c *Controller) TogglePlay() error {
	if c.State().IsPlaying() {
		c.Pause()
		return nil
	}
	return c.Play()
}

// Seek clamps t to [0, duration] and updates the device position and the
// optimistic UI time together.
func (c *Controller) Seek(t float64) {
	c.mu.Lock()
	if c.state.CurrentSong == nil {
		c.mu.Unlock()
		return
	}
	t = clamp(t, 0, c.state.Duration)
	c.state.CurrentTime = t
	if c.state.Status == StatusEnded && t < c.state.Duration {
		c.state.Status = StatusPaused
	}
	c.mu.Unlock()

	c.device.Seek(t)
	c.emit()
}

// SetVolume clamps v to [0,1] and applies it immediately. Volume is a
// controller-level setting reapplied on every load, not per-song.
func (c *Controller) SetVolume(v float64) {
	v = clamp(v, 0, 1)
	c.mu.Lock()
	c.state.Volume = v
	c.mu.Unlock()

	c.device.SetVolume(v)
	c.emit()
}

// SetExpanded switches between the mini and full player views.
func (c *Controller) SetExpanded(expanded bool) {
	c.mu.Lock()
	c.state.Expanded = expanded
	c.mu.Unlock()
	c.emit()
}

// Clear stops the device and drops the current song.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.state.CurrentSong = nil
	c.state.Status = StatusIdle
	c.state.CurrentTime = 0
	c.state.Duration = 0
	c.mu.Unlock()

	c.device.Stop()
	c.emit()
}

// EvictMissing clears playback when the current song is no longer present in
// the library, so an evicted song cannot keep playing through a dangling
// resource.
func (c *Controller) EvictMissing(contains func(id string) bool) {
	c.mu.Lock()
	song := c.state.CurrentSong
	c.mu.Unlock()
	if song == nil || contains(song.ID) {
		return
	}
	c.logger.Debug("current song evicted from library", "song", song.ID)
	c.Clear()
}

// handleEvent folds one device event into the state.
func (c *Controller) handleEvent(ev Event) {
	c.mu.Lock()
	prev := c.state
	next := apply(prev, ev)
	changed := next != prev || (ev.Kind == EventError && next.Status == StatusErrored)
	c.state = next
	c.mu.Unlock()

	if ev.Kind == EventError && next.Status == StatusErrored && prev.CurrentSong != nil && ev.SongID == prev.CurrentSong.ID {
		c.logger.Error("device playback error", "song", ev.SongID, "err", ev.Err)
	}
	if changed {
		c.emit()
	}
}

func (c *Controller) emit() {
	c.mu.Lock()
	fn := c.onChange
	state := c.state
	c.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}
