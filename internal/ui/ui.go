package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/quietfall/tonearm/internal/app"
	"github.com/quietfall/tonearm/internal/notify"
	"github.com/quietfall/tonearm/internal/playback"
	"github.com/quietfall/tonearm/internal/session"
	"github.com/quietfall/tonearm/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	AuthView ViewState = iota
	LibraryView
	PlayerView
)

// seekStep is how far arrow keys move within a track, in seconds.
const seekStep = 5

// volumeStep is the volume change per keypress.
const volumeStep = 0.1

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	engine *app.Engine
	view   ViewState
	width  int
	height int

	songList  list.Model
	listReady bool

	email    textinput.Model
	password textinput.Model

	sess      session.Session
	notice    notify.Notice
	hasNotice bool
	vibe      string

	updates chan tea.Msg
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model over an assembled engine. The model takes
// over the engine's notice sink and update callback for its lifetime.
func NewModel(ctx context.Context, engine *app.Engine) *Model {
	email := textinput.New()
	email.Placeholder = "email"
	email.Focus()
	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword

	m := &Model{
		ctx:      ctx,
		engine:   engine,
		view:     AuthView,
		email:    email,
		password: password,
		updates:  make(chan tea.Msg, 64),
		help:     help.New(),
		keys:     newKeyMap(),
	}

	engine.SetOnUpdate(func() { m.push(engineUpdatedMsg()) })
	engine.SetNoticeSink(func(n notify.Notice) { m.push(noticeMsg(n)) })

	sessions := engine.Sessions.Observe(ctx)
	go func() {
		for sess := range sessions {
			m.push(sessionChangedMsg(sess))
		}
	}()

	return m
}

// push hands an engine-side event to the render loop without blocking it.
func (m *Model) push(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
	}
}

// Init starts the update drain.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

// waitForUpdate delivers the next engine-side event as a bubbletea message.
// Exactly one of these commands is outstanding at a time.
func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listReady {
			m.songList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case AuthView:
			return m.handleAuthKeys(msg)
		case LibraryView:
			return m.handleLibraryKeys(msg)
		case PlayerView:
			return m.handlePlayerKeys(msg)
		}

	case Msg:
		return m.handleEngineMsg(msg)
	}

	return m, nil
}

func (m *Model) handleEngineMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgEngineUpdated:
		m.rebuildList()

	case MsgSessionChanged:
		m.sess = msg.data.(session.Session)
		if m.sess.Mode == session.ModeUnauthenticated {
			m.view = AuthView
			m.email.SetValue("")
			m.password.SetValue("")
			m.email.Focus()
			m.password.Blur()
		} else if m.view == AuthView {
			m.view = LibraryView
			m.rebuildList()
		}

	case MsgNotice:
		m.notice = msg.data.(notify.Notice)
		m.hasNotice = true

	case MsgAuthResult:
		// Failures surface as notices; success arrives as a session change.
		return m, nil

	case MsgAnalysis:
		m.vibe = msg.data.(string)
		return m, nil
	}

	// Channel-delivered message consumed; re-arm the drain.
	return m, m.waitForUpdate()
}

// rebuildList refreshes the song list from the library, keeping the cursor.
func (m *Model) rebuildList() {
	songs := m.engine.Library.Songs()
	items := make([]list.Item, len(songs))
	for i, song := range songs {
		items[i] = songItem{song: song}
	}

	if !m.listReady {
		m.songList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.songList.SetShowHelp(false)
		m.songList.SetSize(m.width-4, m.height-8)
		m.listReady = true
	} else {
		index := m.songList.Index()
		m.songList.SetItems(items)
		if index < len(items) {
			m.songList.Select(index)
		}
	}
	m.songList.Title = m.libraryTitle()
}

func (m *Model) libraryTitle() string {
	switch m.sess.Mode {
	case session.ModeGuest:
		return "Library (guest)"
	case session.ModeAuthenticated:
		return fmt.Sprintf("Library — %s", m.sess.User.Username)
	default:
		return "Library"
	}
}

func (m *Model) handleAuthKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, m.keys.guest):
		return m, func() tea.Msg {
			return authResultMsg(m.engine.EnterGuest())
		}

	case msg.String() == "tab", msg.String() == "shift+tab":
		if m.email.Focused() {
			m.email.Blur()
			m.password.Focus()
		} else {
			m.password.Blur()
			m.email.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.enter):
		email := strings.TrimSpace(m.email.Value())
		password := m.password.Value()
		return m, func() tea.Msg {
			return authResultMsg(m.engine.SignIn(m.ctx, email, password))
		}
	}

	var cmd tea.Cmd
	if m.email.Focused() {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.enter):
		if m.listReady {
			if item, ok := m.songList.SelectedItem().(songItem); ok {
				song := item.song
				// State changes flow back through the engine update stream.
				return m, func() tea.Msg {
					m.engine.PlaySong(song)
					return nil
				}
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.toggle):
		m.engine.Player.TogglePlay()
		return m, nil

	case key.Matches(msg, m.keys.expand):
		m.view = PlayerView
		m.engine.Player.SetExpanded(true)
		return m, nil

	case key.Matches(msg, m.keys.refresh):
		m.engine.Refresh(m.ctx)
		return m, nil

	case key.Matches(msg, m.keys.signOut):
		m.engine.SignOut(m.ctx)
		return m, nil
	}

	if !m.listReady {
		return m, nil
	}
	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.engine.Player.State()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.back):
		m.view = LibraryView
		m.vibe = ""
		m.engine.Player.SetExpanded(false)
		return m, nil

	case key.Matches(msg, m.keys.toggle):
		m.engine.Player.TogglePlay()
		return m, nil

	case key.Matches(msg, m.keys.seekB):
		m.engine.Player.Seek(state.CurrentTime - seekStep)
		return m, nil

	case key.Matches(msg, m.keys.seekF):
		m.engine.Player.Seek(state.CurrentTime + seekStep)
		return m, nil

	case key.Matches(msg, m.keys.volUp):
		m.engine.Player.SetVolume(state.Volume + volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.volDown):
		m.engine.Player.SetVolume(state.Volume - volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.analyze):
		if state.CurrentSong == nil {
			return m, nil
		}
		song := *state.CurrentSong
		m.vibe = "Analyzing..."
		return m, func() tea.Msg {
			return analysisMsg(m.engine.Analyze(m.ctx, song))
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case AuthView:
		body = m.renderAuth()
	case LibraryView:
		body = m.renderLibrary()
	case PlayerView:
		body = m.renderPlayer()
	}

	if m.hasNotice {
		body += "\n" + m.renderNotice()
	}
	return body
}

func (m *Model) renderAuth() string {
	title := styles.title.Render("tonearm")
	helpKeys := []key.Binding{m.keys.enter, m.keys.guest, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf(
		"%s\nSign in to sync your library, or continue as guest.\n\n%s\n%s\n\n%s",
		title, m.email.View(), m.password.View(), helpView,
	)
}

func (m *Model) renderLibrary() string {
	var listView string
	if m.listReady {
		listView = m.songList.View()
	} else {
		listView = styles.help.Render("Library is empty. Add tracks with `tonearm add <file>`.")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.toggle, m.keys.expand, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n\n%s\n%s", listView, m.renderMiniPlayer(), helpView)
}

// renderMiniPlayer is the single status line under the library list.
func (m *Model) renderMiniPlayer() string {
	state := m.engine.Player.State()
	if state.CurrentSong == nil {
		return styles.help.Render("nothing playing")
	}

	icon := "⏸"
	if state.IsPlaying() {
		icon = "▶"
	}
	line := fmt.Sprintf("%s %s — %s  %s/%s",
		icon,
		state.CurrentSong.Title,
		state.CurrentSong.DisplayArtist(),
		shared.FormatDuration(state.CurrentTime),
		shared.FormatDuration(state.Duration),
	)
	if state.Status == playback.StatusErrored {
		return styles.err.Render(line + "  (error)")
	}
	return styles.ok.Render(line)
}

func (m *Model) renderPlayer() string {
	state := m.engine.Player.State()
	if state.CurrentSong == nil {
		return styles.help.Render("No track loaded.\n\nPress esc to go back.")
	}

	title := styles.title.Render(state.CurrentSong.Title)
	artist := state.CurrentSong.DisplayArtist()

	status := state.Status.String()
	bar := progressBar(state.CurrentTime, state.Duration, 40)
	times := fmt.Sprintf("%s / %s", shared.FormatDuration(state.CurrentTime), shared.FormatDuration(state.Duration))
	volume := fmt.Sprintf("volume %3.0f%%", state.Volume*100)

	var vibe string
	if m.vibe != "" {
		vibe = "\n\n" + styles.warn.Render(m.vibe)
	}

	helpKeys := []key.Binding{m.keys.toggle, m.keys.seekB, m.keys.seekF, m.keys.analyze, m.keys.back}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf(
		"%s\n%s\n\n%s\n%s  %s  [%s]%s\n\n%s",
		title, artist, bar, times, volume, status, vibe, helpView,
	)
}

func (m *Model) renderNotice() string {
	switch m.notice.Level {
	case notify.LevelSuccess:
		return styles.ok.Render(m.notice.Message)
	case notify.LevelError:
		return styles.err.Render(m.notice.Message)
	default:
		return styles.warn.Render(m.notice.Message)
	}
}

// progressBar renders elapsed/total as a fixed-width bar.
func progressBar(elapsed, total float64, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat("-", width) + "]"
	}
	filled := int(elapsed / total * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

