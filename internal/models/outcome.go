package models

// OutcomeKind classifies the terminal result of one upload run.
type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "success"
	OutcomePartialSuccess OutcomeKind = "partial_success"
	OutcomeAuthFailed     OutcomeKind = "auth_failed"
	OutcomeFolderFailed   OutcomeKind = "folder_failed"
	OutcomeNoFiles        OutcomeKind = "no_files"
	OutcomeUploadFailed   OutcomeKind = "upload_failed"
)

// Outcome is the terminal result of one account's upload run.
//
// Uploaded/Failed/Total are file counts; Link is set only for OutcomeSuccess.
// Err carries the original failure text for operator-facing reporting and is
// nil for OutcomeSuccess.
type Outcome struct {
	Kind     OutcomeKind
	Link     string
	Uploaded int
	Failed   int
	Total    int
	Err      error
}

// Status maps an outcome to the account status it must persist.
func (o Outcome) Status() AccountStatus {
	switch o.Kind {
	case OutcomeSuccess:
		return StatusActive
	case OutcomePartialSuccess:
		return StatusWarning
	default:
		return StatusError
	}
}

// ReachedUpload reports whether the run got as far as the upload step,
// which is the condition for persisting a last-upload timestamp.
func (o Outcome) ReachedUpload() bool {
	switch o.Kind {
	case OutcomeAuthFailed, OutcomeFolderFailed, OutcomeNoFiles:
		return false
	}
	return true
}
