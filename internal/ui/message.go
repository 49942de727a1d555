package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/quietfall/tonearm/internal/notify"
	"github.com/quietfall/tonearm/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgEngineUpdated MsgKind = iota
	MsgSessionChanged
	MsgNotice
	MsgAuthResult
	MsgAnalysis
)

// engineUpdatedMsg signals that library or playback state changed.
func engineUpdatedMsg() Msg {
	return Msg{kind: MsgEngineUpdated}
}

// sessionChangedMsg is the constructor for [MsgSessionChanged]
func sessionChangedMsg(sess session.Session) Msg {
	return Msg{kind: MsgSessionChanged, data: sess}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(n notify.Notice) Msg {
	return Msg{kind: MsgNotice, data: n}
}

// authResultMsg is the constructor for [MsgAuthResult]
func authResultMsg(err error) Msg {
	return Msg{kind: MsgAuthResult, data: err}
}

// analysisMsg is the constructor for [MsgAnalysis]
func analysisMsg(text string) Msg {
	return Msg{kind: MsgAnalysis, data: text}
}
