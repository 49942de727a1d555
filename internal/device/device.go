// package device renders audio through the host speaker using beep.
//
// Speaker implements playback.Device. Every event it emits is tagged with the
// song id the resource was bound for, so the controller can discard late
// callbacks from a torn-down stream.
package device

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/quietfall/tonearm/internal/playback"
	"github.com/quietfall/tonearm/internal/shared"
)

// tickInterval is how often time updates are emitted while a stream is bound.
const tickInterval = 250 * time.Millisecond

// Speaker is a beep-backed audio device.
type Speaker struct {
	mu sync.Mutex

	logger      *log.Logger
	events      chan playback.Event
	sampleRate  beep.SampleRate
	initialized bool

	songID      string
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	volume      *effects.Volume
	volumeLevel float64
	tickerStop  chan struct{}
}

// NewSpeaker creates a Speaker. The underlying host speaker is initialized
// lazily on the first bind, since opening the audio device can be rejected by
// the host.
func NewSpeaker(logger *log.Logger) *Speaker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Speaker{
		logger:      logger,
		events:      make(chan playback.Event, 64),
		sampleRate:  beep.SampleRate(44100),
		volumeLevel: 1,
	}
}

var _ playback.Device = (*Speaker)(nil)

// Events returns the device event stream.
func (s *Speaker) Events() <-chan playback.Event {
	return s.events
}

// Bind decodes the resource and attaches it to the speaker, paused. The
// previous stream, if any, is released first. On success a loadedMetadata
// event with the stream duration is emitted.
func (s *Speaker) Bind(songID, sourceURL string) error {
	s.Stop()

	streamer, format, err := decode(sourceURL)
	if err != nil {
		return err
	}

	if err := s.initSpeaker(); err != nil {
		streamer.Close()
		return err
	}

	s.mu.Lock()
	s.songID = songID
	s.streamer = streamer
	s.format = format

	var stream beep.Streamer = streamer
	if format.SampleRate != s.sampleRate {
		stream = beep.Resample(4, format.SampleRate, s.sampleRate, streamer)
	}

	s.ctrl = &beep.Ctrl{Streamer: stream, Paused: true}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2}
	s.applyVolumeLocked()

	duration := format.SampleRate.D(streamer.Len()).Seconds()
	stop := make(chan struct{})
	s.tickerStop = stop
	s.mu.Unlock()

	speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
		s.emit(playback.Event{Kind: playback.EventEnded, SongID: songID})
	})))

	go s.tick(songID, stop)

	s.emit(playback.Event{Kind: playback.EventLoadedMetadata, SongID: songID, Duration: duration})
	return nil
}

// Play unpauses the bound stream.
func (s *Speaker) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return shared.ErrNoTrackLoaded
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause silences the bound stream without releasing it.
func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

// Seek repositions the bound stream. Out-of-range positions are the
// controller's problem; the device clamps defensively to the stream length.
func (s *Speaker) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return
	}

	pos := s.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if pos < 0 {
		pos = 0
	}
	if pos > s.streamer.Len() {
		pos = s.streamer.Len()
	}

	speaker.Lock()
	if err := s.streamer.Seek(pos); err != nil {
		s.logger.Warn("seek failed", "song", s.songID, "err", err)
	}
	speaker.Unlock()
}

// SetVolume maps v in [0,1] onto the exponential volume effect. Zero mutes.
func (s *Speaker) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumeLevel = v
	if s.volume == nil {
		return
	}
	speaker.Lock()
	s.applyVolumeLocked()
	speaker.Unlock()
}

func (s *Speaker) applyVolumeLocked() {
	if s.volumeLevel <= 0 {
		s.volume.Silent = true
		return
	}
	s.volume.Silent = false
	s.volume.Volume = math.Log2(s.volumeLevel)
}

// Stop releases the bound stream and halts its events.
func (s *Speaker) Stop() {
	s.mu.Lock()
	if s.tickerStop != nil {
		close(s.tickerStop)
		s.tickerStop = nil
	}
	streamer := s.streamer
	s.streamer = nil
	s.ctrl = nil
	s.volume = nil
	s.songID = ""
	initialized := s.initialized
	s.mu.Unlock()

	if initialized {
		speaker.Clear()
	}
	if streamer != nil {
		streamer.Close()
	}
}

// initSpeaker opens the host audio device once.
func (s *Speaker) initSpeaker() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := speaker.Init(s.sampleRate, s.sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrPlaybackRejected, err)
	}
	s.initialized = true
	return nil
}

// tick emits time updates for the bound stream until stopped.
func (s *Speaker) tick(songID string, stop chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.streamer == nil || s.songID != songID {
				s.mu.Unlock()
				return
			}
			speaker.Lock()
			position := s.format.SampleRate.D(s.streamer.Position()).Seconds()
			speaker.Unlock()
			s.mu.Unlock()

			s.emit(playback.Event{Kind: playback.EventTimeUpdate, SongID: songID, Time: position})
		}
	}
}

func (s *Speaker) emit(ev playback.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("device event dropped, consumer not keeping up", "kind", ev.Kind)
	}
}

// decode opens the resource and picks a decoder by extension. Remote URLs are
// fetched fully into memory; local paths stream from disk.
func decode(sourceURL string) (beep.StreamSeekCloser, beep.Format, error) {
	rc, name, err := open(sourceURL)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %w", shared.ErrDevice, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(rc)
	case ".wav":
		streamer, format, err = wav.Decode(rc)
	case ".flac":
		streamer, format, err = flac.Decode(rc)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(rc)
	default:
		// Unknown extension, mp3 is the overwhelmingly common upload.
		streamer, format, err = mp3.Decode(rc)
	}
	if err != nil {
		rc.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: decoding %s: %w", shared.ErrDevice, name, err)
	}
	return streamer, format, nil
}

// open returns a seekable ReadCloser for a local path or remote URL.
func open(sourceURL string) (io.ReadCloser, string, error) {
	if strings.HasPrefix(sourceURL, "http://") || strings.HasPrefix(sourceURL, "https://") {
		resp, err := http.Get(sourceURL)
		if err != nil {
			return nil, sourceURL, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, sourceURL, fmt.Errorf("fetching audio: %s", resp.Status)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, sourceURL, err
		}
		return nopCloser{bytes.NewReader(data)}, sourceURL, nil
	}

	f, err := os.Open(sourceURL)
	if err != nil {
		return nil, sourceURL, err
	}
	return f, sourceURL, nil
}

// nopCloser adds a no-op Close to an in-memory reader.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
