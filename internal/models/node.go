package models

// NodeType distinguishes folders from files in a remote node listing.
type NodeType int

const (
	NodeFile NodeType = iota
	NodeFolder
)

// RemoteNode mirrors one entry of a remote account's node listing.
// Node IDs are opaque provider-specific strings.
type RemoteNode struct {
	ID       string
	Name     string
	Type     NodeType
	ParentID string
	Size     int64
}
