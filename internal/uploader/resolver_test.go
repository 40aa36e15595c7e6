package uploader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/storage/storagetest"
)

func TestResolveFolderReusesExisting(t *testing.T) {
	ctx := context.Background()
	sess := storagetest.NewFakeSession()
	sess.Nodes["Films/"] = models.RemoteNode{ID: "Films/", Name: "Films", Type: models.NodeFolder}

	id, err := ResolveFolder(ctx, sess, "Films")
	require.NoError(t, err)
	assert.Equal(t, "Films/", id)
	assert.Zero(t, sess.CreateCalls)
}

func TestResolveFolderCreatesWhenAbsent(t *testing.T) {
	ctx := context.Background()
	sess := storagetest.NewFakeSession()

	id, err := ResolveFolder(ctx, sess, "Films")
	require.NoError(t, err)
	assert.Equal(t, "Films/", id)
	assert.Equal(t, 1, sess.CreateCalls)
}

func TestResolveFolderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sess := storagetest.NewFakeSession()

	first, err := ResolveFolder(ctx, sess, "Films")
	require.NoError(t, err)

	second, err := ResolveFolder(ctx, sess, "Films")
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeat resolution must return the same node id")
	assert.Equal(t, 1, sess.CreateCalls, "repeat resolution must not create a duplicate")
}

func TestResolveFolderMatchIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	sess := storagetest.NewFakeSession()
	sess.Nodes["films/"] = models.RemoteNode{ID: "films/", Name: "films", Type: models.NodeFolder}

	id, err := ResolveFolder(ctx, sess, "Films")
	require.NoError(t, err)
	assert.Equal(t, "Films/", id, "lowercase folder must not satisfy a capitalized name")
	assert.Equal(t, 1, sess.CreateCalls)
}

func TestResolveFolderIgnoresFilesWithMatchingName(t *testing.T) {
	ctx := context.Background()
	sess := storagetest.NewFakeSession()
	sess.Nodes["Films"] = models.RemoteNode{ID: "Films", Name: "Films", Type: models.NodeFile}

	id, err := ResolveFolder(ctx, sess, "Films")
	require.NoError(t, err)
	assert.Equal(t, "Films/", id)
	assert.Equal(t, 1, sess.CreateCalls)
}

func TestResolveFolderListFailure(t *testing.T) {
	sess := storagetest.NewFakeSession()
	sess.ListErr = errors.New("listing broke")

	_, err := ResolveFolder(context.Background(), sess, "Films")
	assert.Error(t, err)
	assert.Zero(t, sess.CreateCalls)
}
