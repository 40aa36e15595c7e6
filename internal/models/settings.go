package models

// Settings is the process-wide singleton configuration record.
//
// Invariant: SetupCompleted is true iff FolderName is non-nil and non-empty.
type Settings struct {
	FolderName     *string `json:"folder_name"`
	SetupCompleted bool    `json:"setup_completed"`
}

// Configured reports whether first-run setup has been completed.
func (s Settings) Configured() bool {
	return s.SetupCompleted && s.FolderName != nil && *s.FolderName != ""
}

// Folder returns the configured folder name, or "" when unconfigured.
func (s Settings) Folder() string {
	if s.FolderName == nil {
		return ""
	}
	return *s.FolderName
}
