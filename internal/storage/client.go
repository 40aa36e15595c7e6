// Package storage defines the contract to the external cloud-storage API and
// its two implementations (S3 and MinIO-native). Swap backends by changing
// the Provider injected at startup; the rest of the system only sees these
// two interfaces.
package storage

import (
	"context"
	"strings"

	"github.com/dkorchagin/shareup/internal/models"
)

// Provider authenticates one account against the storage backend.
type Provider interface {
	// Authenticate verifies the credentials and returns a ready session.
	// Failures that mean "bad credentials or unreachable backend" wrap
	// shared.ErrAuthFailed.
	Authenticate(ctx context.Context, handle, secret string) (Session, error)
}

// Session is an authenticated handle to one account's remote tree. Sessions
// are cached per handle by the session store and are not safe to share
// across accounts.
type Session interface {
	// RootID returns the node ID of the account root.
	RootID() string

	// ListNodes enumerates the account's full node listing, keyed by node ID.
	ListNodes(ctx context.Context) (map[string]models.RemoteNode, error)

	// CreateFolder creates a folder under parentID and returns its node ID.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)

	// UploadFile uploads one local file into the folder with the given ID.
	UploadFile(ctx context.Context, localPath, folderID string) error

	// ExportPublicLink issues a shareable URL for the given node.
	ExportPublicLink(ctx context.Context, nodeID string) (string, error)

	// QuotaUsed returns the bytes currently stored. Best effort.
	QuotaUsed(ctx context.Context) (int64, error)

	// QuotaTotal returns the account's advertised capacity in bytes.
	QuotaTotal(ctx context.Context) (int64, error)
}

// BucketName derives a backend-safe bucket name from an account handle:
// lowercase, every run of characters outside [a-z0-9] collapsed to a single
// dash, prefixed, and capped at the 63-character bucket-name limit.
func BucketName(prefix, handle string) string {
	var b strings.Builder
	b.WriteString(prefix)

	dash := false
	for _, r := range strings.ToLower(handle) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	name := strings.Trim(b.String(), "-")
	if len(name) > 63 {
		name = strings.Trim(name[:63], "-")
	}
	return name
}
