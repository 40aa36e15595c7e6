// Package storagetest provides in-memory fakes of the storage contract for
// tests across the module.
package storagetest

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/storage"
)

// FakeProvider implements storage.Provider against in-memory sessions.
// One FakeSession is created per handle and reused on re-authentication so
// tests can pre-seed remote trees.
type FakeProvider struct {
	mu sync.Mutex

	AuthErr   error
	AuthCalls int

	LastHandle string
	LastSecret string

	sessions map[string]*FakeSession
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{sessions: make(map[string]*FakeSession)}
}

func (p *FakeProvider) Authenticate(ctx context.Context, handle, secret string) (storage.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.AuthCalls++
	p.LastHandle = handle
	p.LastSecret = secret

	if p.AuthErr != nil {
		return nil, p.AuthErr
	}
	return p.session(handle), nil
}

// Session returns the fake session for handle, creating it when absent, so
// tests can seed or inspect remote state without authenticating.
func (p *FakeProvider) Session(handle string) *FakeSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session(handle)
}

func (p *FakeProvider) session(handle string) *FakeSession {
	s, ok := p.sessions[handle]
	if !ok {
		s = NewFakeSession()
		p.sessions[handle] = s
	}
	return s
}

// FakeSession implements storage.Session over an in-memory node map.
// Error fields inject failures; call counters and Uploaded record activity.
type FakeSession struct {
	mu sync.Mutex

	Nodes map[string]models.RemoteNode

	ListErr   error
	CreateErr error
	ExportErr error

	// UploadErrFor, when set, is consulted per local path to decide whether
	// that file's upload fails.
	UploadErrFor func(localPath string) error

	ExportLink string
	Used       int64
	Total      int64

	ListCalls   int
	CreateCalls int
	UploadCalls int
	ExportCalls int

	Uploaded []string
}

func NewFakeSession() *FakeSession {
	return &FakeSession{
		Nodes:      make(map[string]models.RemoteNode),
		ExportLink: "https://share.example/folder",
	}
}

func (s *FakeSession) RootID() string { return "" }

func (s *FakeSession) ListNodes(ctx context.Context) (map[string]models.RemoteNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ListCalls++
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make(map[string]models.RemoteNode, len(s.Nodes))
	for id, n := range s.Nodes {
		out[id] = n
	}
	return out, nil
}

func (s *FakeSession) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CreateCalls++
	if s.CreateErr != nil {
		return "", s.CreateErr
	}
	id := parentID + name + "/"
	s.Nodes[id] = models.RemoteNode{ID: id, Name: name, Type: models.NodeFolder, ParentID: parentID}
	return id, nil
}

func (s *FakeSession) UploadFile(ctx context.Context, localPath, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.UploadCalls++
	if s.UploadErrFor != nil {
		if err := s.UploadErrFor(localPath); err != nil {
			return err
		}
	}
	id := folderID + filepath.Base(localPath)
	s.Nodes[id] = models.RemoteNode{ID: id, Name: filepath.Base(localPath), Type: models.NodeFile, ParentID: folderID}
	s.Uploaded = append(s.Uploaded, localPath)
	return nil
}

func (s *FakeSession) ExportPublicLink(ctx context.Context, nodeID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ExportCalls++
	if s.ExportErr != nil {
		return "", s.ExportErr
	}
	return s.ExportLink, nil
}

func (s *FakeSession) QuotaUsed(ctx context.Context) (int64, error) {
	return s.Used, nil
}

func (s *FakeSession) QuotaTotal(ctx context.Context) (int64, error) {
	return s.Total, nil
}
