// Package store persists containers, blocks and relationships. Two
// implementations share one contract: an in-memory store for single-run
// pipelines and tests, and a SQLite store for durable snapshots.
package store

import (
	"context"
	"errors"

	"github.com/srcmirror/srcmirror/internal/model"
)

var (
	// ErrNotFound indicates the requested id is not in the store.
	ErrNotFound = errors.New("not found in store")
	// ErrDuplicate indicates a container or snapshot id was inserted twice.
	// A re-extraction of the same file must produce a fresh container.
	ErrDuplicate = errors.New("duplicate id")
	// ErrEndpoint indicates a relationship names a block the store does not
	// hold. Unresolved references are never persisted.
	ErrEndpoint = errors.New("relationship endpoint missing")
)

// Store is the block store contract. Containers commit atomically and are
// read-only afterwards. Implementations support concurrent readers; writers
// on the same container serialize.
type Store interface {
	// PutContainer inserts a container with all its blocks and intra-container
	// relationships atomically. It validates invariants I1-I5 first and
	// inserts nothing on failure.
	PutContainer(ctx context.Context, c *model.Container) error
	// GetContainer returns container metadata and root ordering. The Blocks
	// slice is not populated; use Blocks for traversal.
	GetContainer(ctx context.Context, id string) (*model.Container, error)
	// Blocks returns all blocks of a container in source order (parents
	// before children, siblings by index).
	Blocks(ctx context.Context, containerID string) ([]*model.Block, error)
	// Block fetches a single block with all attributes.
	Block(ctx context.Context, id string) (*model.Block, error)
	// RelationshipsFrom returns the edges whose source is the given block.
	RelationshipsFrom(ctx context.Context, blockID string) ([]model.Relationship, error)
	// RelationshipsTo returns the edges whose target is the given block.
	RelationshipsTo(ctx context.Context, blockID string) ([]model.Relationship, error)
	// ByCanonicalName looks blocks up by canonical name within a container.
	ByCanonicalName(ctx context.Context, containerID, name string) ([]*model.Block, error)
	// PutRelationships persists additional (possibly cross-container) edges.
	// Both endpoints must already exist.
	PutRelationships(ctx context.Context, rels []model.Relationship) error
	// PutSnapshot records a repository snapshot. Immutable once written.
	PutSnapshot(ctx context.Context, s *model.Snapshot) error
	// GetSnapshot fetches a snapshot by id.
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	// ContainerByPath resolves a container id from a snapshot-relative path.
	ContainerByPath(ctx context.Context, snapshotID, path string) (*model.Container, error)

	Close() error
}
