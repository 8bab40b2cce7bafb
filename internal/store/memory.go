package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/srcmirror/srcmirror/internal/model"
)

// Memory is an in-memory Store. Blocks are sealed on commit; readers receive
// shared pointers and must not mutate them.
type Memory struct {
	mu         sync.RWMutex
	containers map[string]*model.Container
	blocks     map[string]*model.Block
	bySource   map[string][]model.Relationship
	byTarget   map[string][]model.Relationship
	byName     map[string]map[string][]string // containerID -> name -> block ids
	byPath     map[string]string              // snapshotID/path -> container id
	snapshots  map[string]*model.Snapshot
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		containers: make(map[string]*model.Container),
		blocks:     make(map[string]*model.Block),
		bySource:   make(map[string][]model.Relationship),
		byTarget:   make(map[string][]model.Relationship),
		byName:     make(map[string]map[string][]string),
		byPath:     make(map[string]string),
		snapshots:  make(map[string]*model.Snapshot),
	}
}

func (m *Memory) PutContainer(ctx context.Context, c *model.Container) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, b := range c.Blocks {
		if !utf8.ValidString(b.OriginalText) {
			return fmt.Errorf("%w: block %s original slice is not valid UTF-8", model.ErrInvariant, b.ID)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.containers[c.ID]; exists {
		return fmt.Errorf("%w: container %s", ErrDuplicate, c.ID)
	}
	for _, b := range c.Blocks {
		if _, exists := m.blocks[b.ID]; exists {
			return fmt.Errorf("%w: block %s", ErrDuplicate, b.ID)
		}
	}

	m.containers[c.ID] = c
	m.byPath[c.SnapshotID+"/"+c.Path] = c.ID
	names := make(map[string][]string)
	for _, b := range c.Blocks {
		m.blocks[b.ID] = b
		if b.Name != "" {
			names[b.Name] = append(names[b.Name], b.ID)
		}
	}
	m.byName[c.ID] = names
	for _, r := range c.Relationships {
		m.bySource[r.SourceID] = append(m.bySource[r.SourceID], r)
		m.byTarget[r.TargetID] = append(m.byTarget[r.TargetID], r)
	}
	return nil
}

func (m *Memory) GetContainer(ctx context.Context, id string) (*model.Container, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[id]
	if !ok {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, id)
	}
	meta := *c
	meta.Blocks = nil
	meta.Relationships = nil
	return &meta, nil
}

func (m *Memory) Blocks(ctx context.Context, containerID string) ([]*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[containerID]
	if !ok {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
	}
	out := make([]*model.Block, len(c.Blocks))
	copy(out, c.Blocks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position.StartByte < out[j].Position.StartByte
	})
	return out, nil
}

func (m *Memory) Block(ctx context.Context, id string) (*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[id]
	if !ok {
		return nil, fmt.Errorf("%w: block %s", ErrNotFound, id)
	}
	return b, nil
}

func (m *Memory) RelationshipsFrom(ctx context.Context, blockID string) ([]model.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Relationship(nil), m.bySource[blockID]...), nil
}

func (m *Memory) RelationshipsTo(ctx context.Context, blockID string) ([]model.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Relationship(nil), m.byTarget[blockID]...), nil
}

func (m *Memory) ByCanonicalName(ctx context.Context, containerID, name string) ([]*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names, ok := m.byName[containerID]
	if !ok {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
	}
	var out []*model.Block
	for _, id := range names[name] {
		out = append(out, m.blocks[id])
	}
	return out, nil
}

func (m *Memory) PutRelationships(ctx context.Context, rels []model.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rels {
		if _, ok := m.blocks[r.SourceID]; !ok {
			return fmt.Errorf("%w: source %s", ErrEndpoint, r.SourceID)
		}
		if _, ok := m.blocks[r.TargetID]; !ok {
			return fmt.Errorf("%w: target %s", ErrEndpoint, r.TargetID)
		}
	}
	for _, r := range rels {
		m.bySource[r.SourceID] = append(m.bySource[r.SourceID], r)
		m.byTarget[r.TargetID] = append(m.byTarget[r.TargetID], r)
	}
	return nil
}

func (m *Memory) PutSnapshot(ctx context.Context, s *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.snapshots[s.ID]; exists {
		return fmt.Errorf("%w: snapshot %s", ErrDuplicate, s.ID)
	}
	m.snapshots[s.ID] = s
	return nil
}

func (m *Memory) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("%w: snapshot %s", ErrNotFound, id)
	}
	return s, nil
}

func (m *Memory) ContainerByPath(ctx context.Context, snapshotID, path string) (*model.Container, error) {
	m.mu.RLock()
	id, ok := m.byPath[snapshotID+"/"+path]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: path %s", ErrNotFound, path)
	}
	return m.GetContainer(ctx, id)
}

func (m *Memory) Close() error { return nil }
