package shared

import "errors"

var (

	// auth-specific errors
	ErrAuthFailed = errors.New("authentication failed")

	// account-collection errors
	ErrAccountExists   = errors.New("account already added")
	ErrAccountNotFound = errors.New("account not found")

	// folder-name validation
	ErrEmptyFolderName    = errors.New("folder name is empty")
	ErrReservedCharacters = errors.New("folder name contains reserved characters")

	// upload-run errors
	ErrFolderResolution = errors.New("folder resolution failed")
	ErrNoLocalFiles     = errors.New("no local files to upload")
	ErrNothingUploaded  = errors.New("no file uploaded")
	ErrLinkExport       = errors.New("public link export failed")

	// task-registry errors
	ErrRunActive = errors.New("upload run already active for this account")
)
