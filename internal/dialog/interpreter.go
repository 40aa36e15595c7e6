package dialog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/shared"
)

// Callback payloads carried by inline-keyboard buttons.
const (
	cbSetupFolder  = "setup_folder_name"
	cbChangeFolder = "change_folder_name"
	cbAddAccount   = "add_account"
	cbListAccounts = "list_accounts"
	cbReuploadAll  = "reupload_all"
	cbInfo         = "info"
	cbBack         = "back_to_main"

	cbAccountPrefix  = "account:"
	cbReuploadPrefix = "reupload:"
	cbDeletePrefix   = "delete:"
)

// Reduce interprets one operator event. It is pure: it never touches the
// transport or the stores, only emits the actions the event loop must run.
func Reduce(st State, ev Event, snap Snapshot) (State, []Action) {
	switch ev := ev.(type) {
	case StartEvent:
		st.Phase = PhaseIdle
		return st, []Action{Send{Text: welcomeText(snap), Keyboard: menuFor(snap)}}

	case CancelEvent:
		st.Phase = PhaseIdle
		return st, []Action{Send{Text: "Action cancelled.", Keyboard: menuFor(snap)}}

	case ResetEvent:
		st.Phase = PhaseIdle
		return st, []Action{
			ResetSettings{},
			Send{Text: "Settings cleared. Accounts are untouched.\nUse /start to run setup again."},
		}

	case TextEvent:
		return reduceText(st, ev, snap)

	case CallbackEvent:
		return reduceCallback(st, ev, snap)
	}

	return st, nil
}

func reduceText(st State, ev TextEvent, snap Snapshot) (State, []Action) {
	switch st.Phase {
	case PhaseAwaitInitialName, PhaseAwaitRename:
		name, err := ValidateFolderName(ev.Text)
		if err != nil {
			// invalid input re-prompts without a state change
			return st, []Action{Send{Text: folderNameErrorText(err)}}
		}

		rename := st.Phase == PhaseAwaitRename
		st.Phase = PhaseIdle

		done := Snapshot{Settings: models.Settings{FolderName: &name, SetupCompleted: true}, Accounts: snap.Accounts}
		text := fmt.Sprintf("Setup complete. Folder name set to %q.\nAll uploads go into a folder with this name on every account.", name)
		if rename {
			text = fmt.Sprintf("Folder name changed: %q → %q.\nNew uploads will use the new name.", snap.Settings.Folder(), name)
		}
		return st, []Action{SetFolder{Name: name}, Send{Text: text, Keyboard: menuFor(done)}}

	case PhaseAwaitCredentials:
		handle, secret, ok := strings.Cut(strings.TrimSpace(ev.Text), ":")
		if !ok || handle == "" || secret == "" {
			return st, []Action{Send{Text: "Wrong format. Send the account as handle:password, e.g. user@example.com:secret123."}}
		}
		if _, exists := snap.Accounts[handle]; exists {
			st.Phase = PhaseIdle
			return st, []Action{Send{Text: "This account is already added.", Keyboard: menuFor(snap)}}
		}
		st.Phase = PhaseIdle
		return st, []Action{AddAccount{Handle: handle, Secret: secret}}
	}

	return st, []Action{Send{Text: "Use /start to open the menu.", Keyboard: menuFor(snap)}}
}

func reduceCallback(st State, ev CallbackEvent, snap Snapshot) (State, []Action) {
	ack := Answer{CallbackID: ev.ID}

	switch {
	case ev.Data == cbSetupFolder:
		st.Phase = PhaseAwaitInitialName
		return st, []Action{
			Edit{MessageID: ev.MessageID, Text: initialNamePromptText()},
			ack,
		}

	case ev.Data == cbChangeFolder:
		if !snap.Settings.Configured() {
			return st, []Action{setupRequired(ev.ID)}
		}
		st.Phase = PhaseAwaitRename
		return st, []Action{
			Edit{MessageID: ev.MessageID, Text: renamePromptText(snap.Settings.Folder())},
			ack,
		}

	case ev.Data == cbAddAccount:
		if !snap.Settings.Configured() {
			return st, []Action{setupRequired(ev.ID)}
		}
		st.Phase = PhaseAwaitCredentials
		return st, []Action{
			Edit{MessageID: ev.MessageID, Text: credentialsPromptText()},
			ack,
		}

	case ev.Data == cbListAccounts:
		if !snap.Settings.Configured() {
			return st, []Action{setupRequired(ev.ID)}
		}
		if len(snap.Accounts) == 0 {
			return st, []Action{
				Edit{MessageID: ev.MessageID, Text: "No accounts added yet.", Keyboard: mainKeyboard(snap)},
				ack,
			}
		}
		return st, []Action{
			Edit{MessageID: ev.MessageID, Text: accountListText(snap), Keyboard: accountListKeyboard(snap)},
			ack,
		}

	case strings.HasPrefix(ev.Data, cbAccountPrefix):
		handle := strings.TrimPrefix(ev.Data, cbAccountPrefix)
		acc, ok := snap.Accounts[handle]
		if !ok {
			return st, []Action{Answer{CallbackID: ev.ID, Text: "Account not found", Alert: true}}
		}
		return st, []Action{
			Edit{MessageID: ev.MessageID, Text: accountDetailText(handle, acc, snap), Keyboard: accountKeyboard(handle)},
			ack,
		}

	case strings.HasPrefix(ev.Data, cbReuploadPrefix):
		if !snap.Settings.Configured() {
			return st, []Action{setupRequired(ev.ID)}
		}
		handle := strings.TrimPrefix(ev.Data, cbReuploadPrefix)
		if _, ok := snap.Accounts[handle]; !ok {
			return st, []Action{Answer{CallbackID: ev.ID, Text: "Account not found", Alert: true}}
		}
		return st, []Action{StartRun{Handle: handle, MessageID: ev.MessageID}, ack}

	case strings.HasPrefix(ev.Data, cbDeletePrefix):
		handle := strings.TrimPrefix(ev.Data, cbDeletePrefix)
		if _, ok := snap.Accounts[handle]; !ok {
			return st, []Action{Answer{CallbackID: ev.ID, Text: "Account not found", Alert: true}}
		}
		return st, []Action{RemoveAccount{Handle: handle, MessageID: ev.MessageID}, ack}

	case ev.Data == cbReuploadAll:
		if !snap.Settings.Configured() {
			return st, []Action{setupRequired(ev.ID)}
		}
		if len(snap.Accounts) == 0 {
			return st, []Action{Answer{CallbackID: ev.ID, Text: "No accounts to upload to", Alert: true}}
		}
		return st, []Action{StartRunAll{MessageID: ev.MessageID}, ack}

	case ev.Data == cbInfo:
		return st, []Action{
			Edit{MessageID: ev.MessageID, Text: infoText(snap), Keyboard: menuFor(snap)},
			ack,
		}

	case ev.Data == cbBack:
		return st, []Action{
			Edit{MessageID: ev.MessageID, Text: welcomeText(snap), Keyboard: menuFor(snap)},
			ack,
		}
	}

	return st, []Action{ack}
}

func setupRequired(callbackID string) Action {
	return Answer{CallbackID: callbackID, Text: "Set the folder name first", Alert: true}
}

// ---- rendering ----

func menuFor(snap Snapshot) Keyboard {
	if !snap.Settings.Configured() {
		return setupKeyboard()
	}
	return mainKeyboard(snap)
}

func setupKeyboard() Keyboard {
	return Keyboard{
		{{Text: "📁 Set folder name", Data: cbSetupFolder}},
	}
}

func mainKeyboard(snap Snapshot) Keyboard {
	return Keyboard{
		{{Text: "➕ Add account", Data: cbAddAccount}},
		{{Text: "📋 Accounts", Data: cbListAccounts}},
		{{Text: fmt.Sprintf("📁 Folder: %s", snap.Settings.Folder()), Data: cbChangeFolder}},
		{{Text: "🔄 Reupload all", Data: cbReuploadAll}},
		{{Text: "ℹ️ Info", Data: cbInfo}},
	}
}

func accountKeyboard(handle string) Keyboard {
	return Keyboard{
		{{Text: "🔄 Reupload files", Data: cbReuploadPrefix + handle}},
		{{Text: "🗑 Remove account", Data: cbDeletePrefix + handle}},
		{{Text: "⬅️ Back", Data: cbBack}},
	}
}

func accountListKeyboard(snap Snapshot) Keyboard {
	kb := make(Keyboard, 0, len(snap.Accounts)+1)
	for _, handle := range sortedHandles(snap.Accounts) {
		kb = append(kb, []Button{{Text: handle, Data: cbAccountPrefix + handle}})
	}
	kb = append(kb, []Button{{Text: "⬅️ Back", Data: cbBack}})
	return kb
}

func sortedHandles(accounts map[string]models.Account) []string {
	handles := lo.Keys(accounts)
	sort.Strings(handles)
	return handles
}

func statusGlyph(status models.AccountStatus) string {
	switch status {
	case models.StatusActive:
		return "✅"
	case models.StatusWarning:
		return "⚠️"
	default:
		return "❌"
	}
}

func welcomeText(snap Snapshot) string {
	if !snap.Settings.Configured() {
		return "Upload panel.\n\n" +
			"Before anything else, set the folder name used for uploads on every account. " +
			"Account management stays locked until the name is set.\n\n" +
			"Press the button below to start setup."
	}
	return fmt.Sprintf("Upload panel.\n\nCurrent folder: %s\nReady to work. Pick an action:", snap.Settings.Folder())
}

func initialNamePromptText() string {
	return "Folder name setup.\n\n" +
		"Send the name of the folder files will be uploaded into on every account.\n" +
		"You can change it later at any time.\n\n" +
		"Examples: MyVideos, Content_2024, Films"
}

func renamePromptText(current string) string {
	return fmt.Sprintf("Change folder name.\n\nCurrent name: %s\n\nSend the new name, or /cancel to keep it.", current)
}

func credentialsPromptText() string {
	return "Add an account.\n\n" +
		"Send the credentials as handle:password,\n" +
		"e.g. user@example.com:secret123.\n\n" +
		"Send /cancel to abort."
}

func folderNameErrorText(err error) string {
	if errors.Is(err, shared.ErrReservedCharacters) {
		return "The folder name contains reserved characters.\nAvoid: / \\ : * ? \" < > |\n\nTry again:"
	}
	return "The folder name cannot be empty. Try again:"
}

func accountListText(snap Snapshot) string {
	var b strings.Builder
	b.WriteString("Accounts:\n\n")

	for _, handle := range sortedHandles(snap.Accounts) {
		acc := snap.Accounts[handle]
		fmt.Fprintf(&b, "%s %s\n", statusGlyph(acc.Status), handle)
		if acc.PublicLink != nil {
			fmt.Fprintf(&b, "   🔗 %s\n", *acc.PublicLink)
		}
		if acc.LastUpload != nil {
			fmt.Fprintf(&b, "   📅 last upload %s\n", acc.LastUpload.Format("02.01.2006 15:04"))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func accountDetailText(handle string, acc models.Account, snap Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account: %s\n\n", handle)
	fmt.Fprintf(&b, "Status: %s %s\n", statusGlyph(acc.Status), acc.Status)
	fmt.Fprintf(&b, "Folder: %s\n", snap.Settings.Folder())
	fmt.Fprintf(&b, "Added: %s\n", acc.AddedAt.Format("02.01.2006 15:04"))
	if acc.LastUpload != nil {
		fmt.Fprintf(&b, "Last upload: %s\n", acc.LastUpload.Format("02.01.2006 15:04"))
	}
	if acc.PublicLink != nil {
		fmt.Fprintf(&b, "\nPublic link:\n%s", *acc.PublicLink)
	}
	return b.String()
}

func infoText(snap Snapshot) string {
	setup := "no"
	if snap.Settings.Configured() {
		setup = "yes"
	}
	folder := snap.Settings.Folder()
	if folder == "" {
		folder = "not set"
	}

	active := lo.CountBy(lo.Values(snap.Accounts), func(a models.Account) bool {
		return a.Status == models.StatusActive
	})

	var b strings.Builder
	b.WriteString("Panel info.\n\n")
	fmt.Fprintf(&b, "Accounts: %d (%d active)\n", len(snap.Accounts), active)
	fmt.Fprintf(&b, "Live uploads: %d\n", snap.LiveRuns)
	fmt.Fprintf(&b, "Cached sessions: %d\n\n", snap.Sessions)
	fmt.Fprintf(&b, "Folder name: %s\n", folder)
	fmt.Fprintf(&b, "Setup complete: %s\n\n", setup)
	fmt.Fprintf(&b, "Local directory: %s\n", snap.LocalDir)
	fmt.Fprintf(&b, "Files: %d\n", snap.LocalFiles)
	fmt.Fprintf(&b, "Size: %s", humanize.IBytes(uint64(snap.LocalBytes)))
	return b.String()
}
