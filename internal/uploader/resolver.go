package uploader

import (
	"context"
	"fmt"

	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/storage"
)

// ResolveFolder finds the remote folder with the given name, creating it
// under the account root when absent, and returns its node ID.
//
// The listing is enumerated once per call; the scan matches folder-typed
// nodes by exact, case-sensitive name. Names are single flat segments, no
// path support. Calling twice with the same name never creates a duplicate.
func ResolveFolder(ctx context.Context, sess storage.Session, name string) (string, error) {
	nodes, err := sess.ListNodes(ctx)
	if err != nil {
		return "", fmt.Errorf("list nodes: %w", err)
	}

	for _, node := range nodes {
		if node.Type == models.NodeFolder && node.Name == name {
			return node.ID, nil
		}
	}

	id, err := sess.CreateFolder(ctx, name, sess.RootID())
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return id, nil
}
