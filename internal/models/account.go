package models

import "time"

// AccountStatus is the persisted health marker of one storage account,
// mutated only by the outcome of an upload run.
type AccountStatus string

const (
	StatusActive  AccountStatus = "active"
	StatusWarning AccountStatus = "warning"
	StatusError   AccountStatus = "error"
)

// Account holds everything persisted about one storage account.
// The handle (the map key in the accounts document) is not repeated here.
type Account struct {
	Password   string        `json:"password"`
	AddedAt    time.Time     `json:"added_at"`
	Status     AccountStatus `json:"status"`
	LastUpload *time.Time    `json:"last_upload"`
	PublicLink *string       `json:"public_link"`
}
