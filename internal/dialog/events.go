package dialog

import "github.com/dkorchagin/shareup/internal/models"

// Event is one operator input delivered by the chat transport.
type Event interface{ isEvent() }

// StartEvent is the /start command.
type StartEvent struct{}

// CancelEvent is the /cancel command: abort any pending prompt.
type CancelEvent struct{}

// ResetEvent is the /reset command: clear the settings document only.
type ResetEvent struct{}

// TextEvent is a plain message, interpreted according to the open prompt.
type TextEvent struct {
	Text string
}

// CallbackEvent is a button press on an inline keyboard.
type CallbackEvent struct {
	ID        string
	Data      string
	MessageID int
}

func (StartEvent) isEvent()    {}
func (CancelEvent) isEvent()   {}
func (ResetEvent) isEvent()    {}
func (TextEvent) isEvent()     {}
func (CallbackEvent) isEvent() {}

// Snapshot is the read-only view of the system the interpreter renders from.
// The event loop assembles it before every Reduce call.
type Snapshot struct {
	Settings   models.Settings
	Accounts   map[string]models.Account
	LiveRuns   int
	Sessions   int
	LocalDir   string
	LocalFiles int
	LocalBytes int64
}

// Button and Keyboard describe an inline keyboard abstractly; the transport
// boundary renders them.
type Button struct {
	Text string
	Data string
}

type Keyboard [][]Button

// Action is one outbound effect the event loop must execute.
type Action interface{ isAction() }

// Send posts a new message to the operator.
type Send struct {
	Text     string
	Keyboard Keyboard
}

// Edit rewrites an existing message in place.
type Edit struct {
	MessageID int
	Text      string
	Keyboard  Keyboard
}

// Answer acknowledges a callback, optionally with an alert popup.
type Answer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// SetFolder persists a new folder name and completes setup.
type SetFolder struct {
	Name string
}

// ResetSettings rewrites the settings document to its zero value.
type ResetSettings struct{}

// AddAccount authenticates and stores a new account, then dispatches its
// first upload run.
type AddAccount struct {
	Handle string
	Secret string
}

// RemoveAccount cancels the account's live run, evicts its session, and
// deletes it from the accounts document.
type RemoveAccount struct {
	Handle    string
	MessageID int
}

// StartRun dispatches an upload run for one account, reporting progress by
// editing the given message.
type StartRun struct {
	Handle    string
	MessageID int
}

// StartRunAll launches the serialized bulk reupload sweep.
type StartRunAll struct {
	MessageID int
}

func (Send) isAction()          {}
func (Edit) isAction()          {}
func (Answer) isAction()        {}
func (SetFolder) isAction()     {}
func (ResetSettings) isAction() {}
func (AddAccount) isAction()    {}
func (RemoveAccount) isAction() {}
func (StartRun) isAction()      {}
func (StartRunAll) isAction()   {}
