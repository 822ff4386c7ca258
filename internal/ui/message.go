package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/tasks"
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
	MsgCatalogLoaded MsgKind = iota
	MsgSubmitted
	MsgAuthDone
	MsgSignedOut
	MsgNotice
	MsgUploadDone
)

type catalogLoaded struct {
	records []models.CourseRecord
	err     error
}

type authDone struct {
	identity models.Identity
	replayed bool // the held intent was committed by the sign-in
	err      error
}

type uploadDone struct {
	result *models.UploadBatchResult
	err    error
}

// catalogLoadedMsg is the constructor for [MsgCatalogLoaded]
func catalogLoadedMsg(records []models.CourseRecord, err error) Msg {
	return Msg{kind: MsgCatalogLoaded, data: catalogLoaded{records, err}}
}

// submittedMsg is the constructor for [MsgSubmitted]
func submittedMsg(sub tasks.Submission) Msg {
	return Msg{kind: MsgSubmitted, data: sub}
}

// authDoneMsg is the constructor for [MsgAuthDone]
func authDoneMsg(identity models.Identity, replayed bool, err error) Msg {
	return Msg{kind: MsgAuthDone, data: authDone{identity, replayed, err}}
}

// signedOutMsg is the constructor for [MsgSignedOut]
func signedOutMsg(err error) Msg {
	return Msg{kind: MsgSignedOut, data: err}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(n tasks.Notice) Msg {
	return Msg{kind: MsgNotice, data: n}
}

// uploadDoneMsg is the constructor for [MsgUploadDone]
func uploadDoneMsg(result *models.UploadBatchResult, err error) Msg {
	return Msg{kind: MsgUploadDone, data: uploadDone{result, err}}
}
