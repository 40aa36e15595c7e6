package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkorchagin/shareup/internal/models"
)

func configuredSnapshot(accounts map[string]models.Account) Snapshot {
	folder := "Films"
	if accounts == nil {
		accounts = map[string]models.Account{}
	}
	return Snapshot{
		Settings: models.Settings{FolderName: &folder, SetupCompleted: true},
		Accounts: accounts,
	}
}

func unconfiguredSnapshot() Snapshot {
	return Snapshot{Accounts: map[string]models.Account{}}
}

// firstOf returns the first action of type T, failing the test when absent.
func firstOf[T Action](t *testing.T, actions []Action) T {
	t.Helper()
	for _, a := range actions {
		if v, ok := a.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T among %#v", zero, actions)
	return zero
}

func hasAction[T Action](actions []Action) bool {
	for _, a := range actions {
		if _, ok := a.(T); ok {
			return true
		}
	}
	return false
}

func TestStartShowsSetupWhenUnconfigured(t *testing.T) {
	st, actions := Reduce(State{}, StartEvent{}, unconfiguredSnapshot())

	assert.Equal(t, PhaseIdle, st.Phase)
	send := firstOf[Send](t, actions)
	assert.Contains(t, send.Text, "set the folder name")
	require.Len(t, send.Keyboard, 1, "setup keyboard has a single button")
	assert.Equal(t, cbSetupFolder, send.Keyboard[0][0].Data)
}

func TestStartShowsMainMenuWhenConfigured(t *testing.T) {
	_, actions := Reduce(State{}, StartEvent{}, configuredSnapshot(nil))

	send := firstOf[Send](t, actions)
	assert.Contains(t, send.Text, "Films")
	assert.Greater(t, len(send.Keyboard), 1)
}

func TestInitialNameTransition(t *testing.T) {
	snap := unconfiguredSnapshot()

	st, actions := Reduce(State{}, CallbackEvent{ID: "cb1", Data: cbSetupFolder, MessageID: 10}, snap)
	assert.Equal(t, PhaseAwaitInitialName, st.Phase)
	edit := firstOf[Edit](t, actions)
	assert.Equal(t, 10, edit.MessageID)

	st, actions = Reduce(st, TextEvent{Text: "  Films  "}, snap)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, "Films", firstOf[SetFolder](t, actions).Name)
	assert.Contains(t, firstOf[Send](t, actions).Text, "Setup complete")
}

func TestInvalidInitialNameRepromptsWithoutTransition(t *testing.T) {
	snap := unconfiguredSnapshot()
	st := State{Phase: PhaseAwaitInitialName}

	for _, bad := range []string{"", "   ", "a/b", `x|y`, "one:two"} {
		next, actions := Reduce(st, TextEvent{Text: bad}, snap)
		assert.Equal(t, PhaseAwaitInitialName, next.Phase, "input %q must not advance the machine", bad)
		assert.False(t, hasAction[SetFolder](actions), "input %q must not set the folder", bad)
		assert.True(t, hasAction[Send](actions), "input %q must re-prompt", bad)
	}
}

func TestRenameFlow(t *testing.T) {
	snap := configuredSnapshot(nil)

	st, _ := Reduce(State{}, CallbackEvent{ID: "cb", Data: cbChangeFolder, MessageID: 3}, snap)
	assert.Equal(t, PhaseAwaitRename, st.Phase)

	st, actions := Reduce(st, TextEvent{Text: "Archive"}, snap)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, "Archive", firstOf[SetFolder](t, actions).Name)
	send := firstOf[Send](t, actions)
	assert.Contains(t, send.Text, "Films")
	assert.Contains(t, send.Text, "Archive")
}

func TestCancelAbortsRename(t *testing.T) {
	snap := configuredSnapshot(nil)
	st := State{Phase: PhaseAwaitRename}

	st, actions := Reduce(st, CancelEvent{}, snap)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.False(t, hasAction[SetFolder](actions))
	assert.True(t, hasAction[Send](actions))
}

func TestResetEmitsSettingsResetOnly(t *testing.T) {
	st, actions := Reduce(State{}, ResetEvent{}, configuredSnapshot(nil))

	assert.Equal(t, PhaseIdle, st.Phase)
	assert.True(t, hasAction[ResetSettings](actions))
	assert.False(t, hasAction[RemoveAccount](actions), "reset never touches accounts")
}

func TestGatingWhenUnconfigured(t *testing.T) {
	snap := unconfiguredSnapshot()

	for _, data := range []string{cbAddAccount, cbListAccounts, cbChangeFolder, cbReuploadAll, cbReuploadPrefix + "a@x.com"} {
		st, actions := Reduce(State{}, CallbackEvent{ID: "cb", Data: data}, snap)
		assert.Equal(t, PhaseIdle, st.Phase, "callback %q must not open a prompt", data)

		answer := firstOf[Answer](t, actions)
		assert.True(t, answer.Alert, "callback %q must alert about required setup", data)
		assert.False(t, hasAction[StartRun](actions))
		assert.False(t, hasAction[StartRunAll](actions))
		assert.False(t, hasAction[Edit](actions))
	}
}

func TestCredentialsFlow(t *testing.T) {
	snap := configuredSnapshot(nil)

	st, _ := Reduce(State{}, CallbackEvent{ID: "cb", Data: cbAddAccount, MessageID: 1}, snap)
	require.Equal(t, PhaseAwaitCredentials, st.Phase)

	t.Run("malformed input re-prompts", func(t *testing.T) {
		next, actions := Reduce(st, TextEvent{Text: "no-colon-here"}, snap)
		assert.Equal(t, PhaseAwaitCredentials, next.Phase)
		assert.False(t, hasAction[AddAccount](actions))
	})

	t.Run("duplicate handle rejected", func(t *testing.T) {
		withAcc := configuredSnapshot(map[string]models.Account{"a@x.com": {}})
		next, actions := Reduce(st, TextEvent{Text: "a@x.com:pw"}, withAcc)
		assert.Equal(t, PhaseIdle, next.Phase)
		assert.False(t, hasAction[AddAccount](actions))
		assert.Contains(t, firstOf[Send](t, actions).Text, "already added")
	})

	t.Run("valid credentials emit AddAccount", func(t *testing.T) {
		next, actions := Reduce(st, TextEvent{Text: "a@x.com:pw:with:colons"}, snap)
		assert.Equal(t, PhaseIdle, next.Phase)
		add := firstOf[AddAccount](t, actions)
		assert.Equal(t, "a@x.com", add.Handle)
		assert.Equal(t, "pw:with:colons", add.Secret, "only the first colon splits")
	})
}

func TestAccountListAndDetail(t *testing.T) {
	link := "https://share.example/f"
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	snap := configuredSnapshot(map[string]models.Account{
		"b@x.com": {Status: models.StatusError},
		"a@x.com": {Status: models.StatusActive, PublicLink: &link, LastUpload: &ts},
	})

	_, actions := Reduce(State{}, CallbackEvent{ID: "cb", Data: cbListAccounts, MessageID: 2}, snap)
	edit := firstOf[Edit](t, actions)
	assert.Contains(t, edit.Text, "a@x.com")
	assert.Contains(t, edit.Text, "b@x.com")
	assert.Contains(t, edit.Text, link)
	// sorted handles, then the back row
	require.Len(t, edit.Keyboard, 3)
	assert.Equal(t, cbAccountPrefix+"a@x.com", edit.Keyboard[0][0].Data)
	assert.Equal(t, cbAccountPrefix+"b@x.com", edit.Keyboard[1][0].Data)
	assert.Equal(t, cbBack, edit.Keyboard[2][0].Data)

	_, actions = Reduce(State{}, CallbackEvent{ID: "cb", Data: cbAccountPrefix + "a@x.com", MessageID: 2}, snap)
	detail := firstOf[Edit](t, actions)
	assert.Contains(t, detail.Text, "a@x.com")
	assert.Contains(t, detail.Text, "Films")
	assert.Contains(t, detail.Text, link)

	_, actions = Reduce(State{}, CallbackEvent{ID: "cb", Data: cbAccountPrefix + "ghost@x.com"}, snap)
	assert.True(t, firstOf[Answer](t, actions).Alert)
}

func TestReuploadAndDeleteCallbacks(t *testing.T) {
	snap := configuredSnapshot(map[string]models.Account{"a@x.com": {}})

	_, actions := Reduce(State{}, CallbackEvent{ID: "cb", Data: cbReuploadPrefix + "a@x.com", MessageID: 7}, snap)
	run := firstOf[StartRun](t, actions)
	assert.Equal(t, "a@x.com", run.Handle)
	assert.Equal(t, 7, run.MessageID)

	_, actions = Reduce(State{}, CallbackEvent{ID: "cb", Data: cbDeletePrefix + "a@x.com", MessageID: 7}, snap)
	del := firstOf[RemoveAccount](t, actions)
	assert.Equal(t, "a@x.com", del.Handle)

	_, actions = Reduce(State{}, CallbackEvent{ID: "cb", Data: cbDeletePrefix + "ghost@x.com"}, snap)
	assert.True(t, firstOf[Answer](t, actions).Alert)
}

func TestReuploadAll(t *testing.T) {
	t.Run("with accounts", func(t *testing.T) {
		snap := configuredSnapshot(map[string]models.Account{"a@x.com": {}})
		_, actions := Reduce(State{}, CallbackEvent{ID: "cb", Data: cbReuploadAll, MessageID: 4}, snap)
		assert.Equal(t, 4, firstOf[StartRunAll](t, actions).MessageID)
	})

	t.Run("without accounts", func(t *testing.T) {
		_, actions := Reduce(State{}, CallbackEvent{ID: "cb", Data: cbReuploadAll}, configuredSnapshot(nil))
		assert.True(t, firstOf[Answer](t, actions).Alert)
		assert.False(t, hasAction[StartRunAll](actions))
	})
}

func TestInfoView(t *testing.T) {
	snap := configuredSnapshot(map[string]models.Account{"a@x.com": {Status: models.StatusActive}})
	snap.LiveRuns = 2
	snap.Sessions = 1
	snap.LocalDir = "./videos"
	snap.LocalFiles = 3
	snap.LocalBytes = 5 << 20

	_, actions := Reduce(State{}, CallbackEvent{ID: "cb", Data: cbInfo, MessageID: 9}, snap)
	edit := firstOf[Edit](t, actions)
	assert.Contains(t, edit.Text, "Accounts: 1 (1 active)")
	assert.Contains(t, edit.Text, "Live uploads: 2")
	assert.Contains(t, edit.Text, "Cached sessions: 1")
	assert.Contains(t, edit.Text, "5.0 MiB")
}

func TestReduceIsPure(t *testing.T) {
	snap := configuredSnapshot(map[string]models.Account{"a@x.com": {}})
	ev := CallbackEvent{ID: "cb", Data: cbListAccounts, MessageID: 1}

	st1, a1 := Reduce(State{}, ev, snap)
	st2, a2 := Reduce(State{}, ev, snap)

	assert.Equal(t, st1, st2)
	assert.Equal(t, a1, a2, "same state, event, and snapshot must produce identical actions")
}
