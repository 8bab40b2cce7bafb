package model

import (
	"errors"
	"fmt"
	"time"
)

// Container is the unit corresponding to one source file. It owns an ordered
// list of top-level blocks and never retains the raw file bytes once
// extraction commits; regeneration works from the blocks alone.
type Container struct {
	ID            string         `json:"id"`
	SnapshotID    string         `json:"snapshot_id,omitempty"`
	Path          string         `json:"path"` // repo-relative
	Language      string         `json:"language"`
	ContentHash   string         `json:"content_hash"` // sha256 of the original bytes
	LineEnding    string         `json:"line_ending"`
	Roots         []string       `json:"roots"` // top-level block ids in source order
	Blocks        []*Block       `json:"blocks"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// Snapshot is an immutable set of containers extracted from one repository
// at one commit.
type Snapshot struct {
	ID           string    `json:"id"`
	OriginURL    string    `json:"origin_url,omitempty"`
	Commit       string    `json:"commit,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ContainerIDs []string  `json:"container_ids"`
}

// ErrInvariant marks a structural invariant violation in a container.
var ErrInvariant = errors.New("invariant violation")

// BlockByID returns the block with the given id, or nil.
func (c *Container) BlockByID(id string) *Block {
	for _, b := range c.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Validate checks the structural invariants that must hold before a
// container may be committed:
//
//   - every block belongs to this container
//   - parent/child links form a forest rooted at Roots, with no cycles
//   - sibling indices are dense from zero in source order
//   - sibling byte ranges are disjoint and increasing, and each child's
//     range lies within its parent's
//   - every relationship endpoint is a block of this container
func (c *Container) Validate() error {
	byID := make(map[string]*Block, len(c.Blocks))
	for _, b := range c.Blocks {
		if b.ContainerID != c.ID {
			return fmt.Errorf("%w: block %s belongs to container %s, not %s", ErrInvariant, b.ID, b.ContainerID, c.ID)
		}
		if _, dup := byID[b.ID]; dup {
			return fmt.Errorf("%w: duplicate block id %s", ErrInvariant, b.ID)
		}
		byID[b.ID] = b
	}

	for _, b := range c.Blocks {
		if b.ParentID == "" {
			continue
		}
		parent, ok := byID[b.ParentID]
		if !ok {
			return fmt.Errorf("%w: block %s has unknown parent %s", ErrInvariant, b.ID, b.ParentID)
		}
		if b.Position.StartByte < parent.Position.StartByte || b.Position.EndByte > parent.Position.EndByte {
			return fmt.Errorf("%w: block %s byte range [%d,%d) escapes parent %s [%d,%d)",
				ErrInvariant, b.ID, b.Position.StartByte, b.Position.EndByte,
				parent.ID, parent.Position.StartByte, parent.Position.EndByte)
		}
	}

	// Walk the forest from the roots, checking cycles, density and
	// sibling ordering along the way.
	seen := make(map[string]bool, len(c.Blocks))
	var checkSiblings func(parentID string, ids []string) error
	checkSiblings = func(parentID string, ids []string) error {
		var prevEnd uint64
		for i, id := range ids {
			b, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: unknown block id %s under parent %q", ErrInvariant, id, parentID)
			}
			if seen[id] {
				return fmt.Errorf("%w: block %s reachable twice (cycle)", ErrInvariant, id)
			}
			seen[id] = true
			if b.ParentID != parentID {
				return fmt.Errorf("%w: block %s listed under %q but has parent %q", ErrInvariant, id, parentID, b.ParentID)
			}
			if b.Position.SiblingIndex != i {
				return fmt.Errorf("%w: block %s sibling index %d, want %d", ErrInvariant, id, b.Position.SiblingIndex, i)
			}
			if i > 0 && b.Position.StartByte < prevEnd {
				return fmt.Errorf("%w: block %s overlaps preceding sibling", ErrInvariant, id)
			}
			prevEnd = b.Position.EndByte
			if err := checkSiblings(id, b.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := checkSiblings("", c.Roots); err != nil {
		return err
	}
	if len(seen) != len(c.Blocks) {
		return fmt.Errorf("%w: %d blocks unreachable from roots", ErrInvariant, len(c.Blocks)-len(seen))
	}

	for _, r := range c.Relationships {
		if _, ok := byID[r.SourceID]; !ok {
			return fmt.Errorf("%w: relationship source %s not in container", ErrInvariant, r.SourceID)
		}
		if _, ok := byID[r.TargetID]; !ok {
			return fmt.Errorf("%w: relationship target %s not in container", ErrInvariant, r.TargetID)
		}
	}
	return nil
}
