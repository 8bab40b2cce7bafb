package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/srcmirror/srcmirror/internal/model"
)

// each reports both implementations under one test.
func each(t *testing.T, fn func(t *testing.T, st Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		fn(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		st, err := OpenInMemory()
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		fn(t, st)
	})
}

func sampleContainer(id, snapshotID, path string) *model.Container {
	fn := &model.Block{
		ID:          id + "-fn",
		ContainerID: id,
		Kind:        model.Function,
		Language:    "python",
		Name:        "greet",
		Position:    model.Position{StartLine: 1, EndLine: 2, StartByte: 0, EndByte: 30, SiblingIndex: 0},
		Children:    []string{id + "-stmt"},
		Params:      []model.Param{{Name: "name", TypeAnno: "str"}},
		Hints: model.ReconstructionHints{
			PreferOriginal: true,
			Template:       "def {name}({params}):{body}",
			Body:           model.BodyExtraction{Method: model.BodyIndent},
			Formatting:     model.Formatting{IndentUnit: "    ", LineEnding: "\n"},
		},
		OriginalText: "def greet(name: str):\n    pass",
	}
	stmt := &model.Block{
		ID:           id + "-stmt",
		ContainerID:  id,
		ParentID:     id + "-fn",
		Kind:         model.Statement,
		Language:     "python",
		Position:     model.Position{StartLine: 2, EndLine: 2, StartByte: 26, EndByte: 30, SiblingIndex: 0},
		OriginalText: "pass",
		Hints:        model.ReconstructionHints{PreferOriginal: true},
	}
	v := &model.Block{
		ID:           id + "-var",
		ContainerID:  id,
		Kind:         model.Variable,
		Language:     "python",
		Name:         "answer",
		Position:     model.Position{StartLine: 4, EndLine: 4, StartByte: 32, EndByte: 43, SiblingIndex: 1},
		OriginalText: "answer = 42",
		Hints:        model.ReconstructionHints{PreferOriginal: true},
	}
	return &model.Container{
		ID:          id,
		SnapshotID:  snapshotID,
		Path:        path,
		Language:    "python",
		ContentHash: "hash-" + id,
		LineEnding:  "\n",
		Roots:       []string{id + "-fn", id + "-var"},
		Blocks:      []*model.Block{fn, stmt, v},
		Relationships: []model.Relationship{
			{SourceID: id + "-var", TargetID: id + "-fn", Kind: model.Calls},
		},
	}
}

func TestPutGetContainer(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		c := sampleContainer("c1", "s1", "pkg/a.py")
		require.NoError(t, st.PutContainer(ctx, c))

		got, err := st.GetContainer(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, "pkg/a.py", got.Path)
		require.Equal(t, "python", got.Language)
		require.Equal(t, []string{"c1-fn", "c1-var"}, got.Roots)
		require.Empty(t, got.Blocks)
	})
}

func TestPutContainerDuplicate(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c1", "s1", "a.py")))
		err := st.PutContainer(ctx, sampleContainer("c1", "s1", "a.py"))
		require.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestPutContainerRejectsInvalid(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		c := sampleContainer("c1", "s1", "a.py")
		c.Blocks[1].ParentID = "ghost"
		err := st.PutContainer(ctx, c)
		require.ErrorIs(t, err, model.ErrInvariant)

		// Nothing committed.
		_, err = st.GetContainer(ctx, "c1")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPutContainerRejectsInvalidUTF8(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		c := sampleContainer("c1", "s1", "a.py")
		c.Blocks[2].OriginalText = "answer = \xff\xfe"
		err := st.PutContainer(ctx, c)
		require.ErrorIs(t, err, model.ErrInvariant)

		_, err = st.GetContainer(ctx, "c1")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBlocksSourceOrder(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c1", "s1", "a.py")))

		blocks, err := st.Blocks(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, blocks, 3)
		for i := 1; i < len(blocks); i++ {
			require.GreaterOrEqual(t, blocks[i].Position.StartByte, blocks[i-1].Position.StartByte)
		}
	})
}

func TestBlockRoundTripsAttributes(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c1", "s1", "a.py")))

		b, err := st.Block(ctx, "c1-fn")
		require.NoError(t, err)
		require.Equal(t, model.Function, b.Kind)
		require.Equal(t, "greet", b.Name)
		require.Equal(t, []string{"c1-stmt"}, b.Children)
		require.Equal(t, "str", b.Params[0].TypeAnno)
		require.True(t, b.Hints.PreferOriginal)
		require.Equal(t, model.BodyIndent, b.Hints.Body.Method)
		require.Equal(t, "    ", b.Hints.Formatting.IndentUnit)

		_, err = st.Block(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRelationships(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c1", "s1", "a.py")))

		from, err := st.RelationshipsFrom(ctx, "c1-var")
		require.NoError(t, err)
		require.Len(t, from, 1)
		require.Equal(t, "c1-fn", from[0].TargetID)
		require.Equal(t, model.Calls, from[0].Kind)

		to, err := st.RelationshipsTo(ctx, "c1-fn")
		require.NoError(t, err)
		require.Len(t, to, 1)
	})
}

func TestPutRelationshipsCrossContainer(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c1", "s1", "a.py")))
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c2", "s1", "b.py")))

		rel := model.Relationship{
			SourceID: "c1-fn",
			TargetID: "c2-fn",
			Kind:     model.Calls,
			Metadata: map[string]string{"cross_container": "true"},
		}
		require.NoError(t, st.PutRelationships(ctx, []model.Relationship{rel}))

		got, err := st.RelationshipsFrom(ctx, "c1-fn")
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "true", got[0].Metadata["cross_container"])

		err = st.PutRelationships(ctx, []model.Relationship{
			{SourceID: "c1-fn", TargetID: "nowhere", Kind: model.Calls},
		})
		require.ErrorIs(t, err, ErrEndpoint)
	})
}

func TestByCanonicalName(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c1", "s1", "a.py")))

		blocks, err := st.ByCanonicalName(ctx, "c1", "greet")
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		require.Equal(t, "c1-fn", blocks[0].ID)

		blocks, err = st.ByCanonicalName(ctx, "c1", "nonexistent")
		require.NoError(t, err)
		require.Empty(t, blocks)
	})
}

func TestSnapshots(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c1", "s1", "a.py")))
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c2", "s1", "b.py")))

		snap := &model.Snapshot{
			ID:           "s1",
			CreatedAt:    time.Now(),
			ContainerIDs: []string{"c1", "c2"},
		}
		require.NoError(t, st.PutSnapshot(ctx, snap))
		require.ErrorIs(t, st.PutSnapshot(ctx, snap), ErrDuplicate)

		got, err := st.GetSnapshot(ctx, "s1")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"c1", "c2"}, got.ContainerIDs)

		_, err = st.GetSnapshot(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestContainerByPath(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutContainer(ctx, sampleContainer("c1", "s1", "pkg/a.py")))

		got, err := st.ContainerByPath(ctx, "s1", "pkg/a.py")
		require.NoError(t, err)
		require.Equal(t, "c1", got.ID)

		_, err = st.ContainerByPath(ctx, "s1", "pkg/missing.py")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConcurrentReaders(t *testing.T) {
	t.Parallel()
	each(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		for i := 0; i < 4; i++ {
			c := sampleContainer(fmt.Sprintf("c%d", i), "s1", fmt.Sprintf("f%d.py", i))
			require.NoError(t, st.PutContainer(ctx, c))
		}

		done := make(chan error, 8)
		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("c%d", i%4)
			go func() {
				_, err := st.Blocks(ctx, id)
				done <- err
			}()
		}
		for i := 0; i < 8; i++ {
			require.NoError(t, <-done)
		}
	})
}
