// Package dialog contains the operator-facing control logic as a pure
// interpreter: (state, incoming event, snapshot) → (new state, outbound
// actions). All chat-transport and service side effects stay at the
// boundary, so the whole surface is testable without a live transport.
package dialog

import (
	"strings"

	"github.com/dkorchagin/shareup/internal/shared"
)

// Phase is the pending-prompt part of the dialog state. Together with the
// persisted settings it forms the configuration machine: unconfigured or
// configured while PhaseIdle, awaiting the initial name or a rename while
// the corresponding prompt is open.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitInitialName
	PhaseAwaitRename
	PhaseAwaitCredentials
)

// State is everything the interpreter carries between events.
type State struct {
	Phase Phase
}

// reservedChars are rejected anywhere in a folder name.
const reservedChars = `/\:*?"<>|`

// ValidateFolderName trims surrounding whitespace and rejects empty results
// and names containing reserved characters. Returns the cleaned name.
func ValidateFolderName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", shared.ErrEmptyFolderName
	}
	if strings.ContainsAny(name, reservedChars) {
		return "", shared.ErrReservedCharacters
	}
	return name, nil
}
