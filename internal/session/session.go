// Package session tracks per-session state: the knowledge base handle
// and the set of indexed document identifiers.
package session

import (
	"context"
	"sort"
	"sync"

	"legal-team-rag/internal/index"
	"legal-team-rag/internal/models"
)

// Context is one session's view of the pipeline: the shared knowledge
// base plus the documents this session has uploaded and their status.
// Created at session start, dropped at session end.
type Context struct {
	ID string

	mu        sync.RWMutex
	documents map[string]models.DocumentStatus
}

// Documents lists the session's documents sorted by name.
func (c *Context) Documents() []models.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := make([]models.Document, 0, len(c.documents))
	for name, status := range c.documents {
		docs = append(docs, models.Document{Name: name, Status: status})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

// Status returns the document's status, or StatusUnprocessed when the
// session has never seen it.
func (c *Context) Status(name string) models.DocumentStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if status, ok := c.documents[name]; ok {
		return status
	}
	return models.StatusUnprocessed
}

func (c *Context) setStatus(name string, status models.DocumentStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents[name] = status
}

// Manager owns the sessions and serializes indexing per document
// identifier. The knowledge base is one shared collection: two
// different documents may index concurrently, but re-indexing the same
// name is mutex-guarded.
type Manager struct {
	indexer *index.Indexer

	mu       sync.Mutex
	sessions map[string]*Context
	docLocks map[string]*sync.Mutex
}

func NewManager(indexer *index.Indexer) *Manager {
	return &Manager{
		indexer:  indexer,
		sessions: make(map[string]*Context),
		docLocks: make(map[string]*sync.Mutex),
	}
}

// Get returns the session with the given ID, creating it on first use.
func (m *Manager) Get(id string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		return sess
	}
	sess := &Context{
		ID:        id,
		documents: make(map[string]models.DocumentStatus),
	}
	m.sessions[id] = sess
	return sess
}

// End drops the session's state. Indexed chunks stay in the knowledge
// base; only the session's bookkeeping is discarded.
func (m *Manager) End(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// docLock returns the mutex serializing indexing of one document name.
func (m *Manager) docLock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lock, ok := m.docLocks[name]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	m.docLocks[name] = lock
	return lock
}

// IndexDocument indexes (or re-indexes) the named document for the
// session, driving the status through indexing -> indexed|failed.
// Invalid chunking parameters are rejected before any status change.
func (m *Manager) IndexDocument(ctx context.Context, sess *Context, name string, data []byte, chunkSize, overlap int) error {
	if err := index.ValidateChunking(chunkSize, overlap); err != nil {
		return err
	}

	lock := m.docLock(name)
	lock.Lock()
	defer lock.Unlock()

	sess.setStatus(name, models.StatusIndexing)

	if err := m.indexer.Index(ctx, name, data, chunkSize, overlap); err != nil {
		sess.setStatus(name, models.StatusFailed)
		return err
	}

	sess.setStatus(name, models.StatusIndexed)
	return nil
}
