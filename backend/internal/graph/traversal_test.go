package graph

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital-twin/backend/internal/props"
	apperrors "digital-twin/backend/pkg/errors"
)

// chain builds A-B-C-D where every link points right and returns the ids
func chain(t *testing.T, engine *Engine) []string {
	t.Helper()
	ctx := context.Background()

	ids := make([]string, 0, 4)
	for _, name := range []string{"A", "B", "C", "D"} {
		obj, err := engine.Objects.SaveObject(ctx, &Object{ID: name, Type: "Node", Properties: props.Properties{}})
		require.NoError(t, err)
		ids = append(ids, obj.ID)
	}
	for i := 0; i < len(ids)-1; i++ {
		_, err := engine.Links.CreateLink(ctx, "NEXT", ids[i], ids[i+1], nil)
		require.NoError(t, err)
	}
	return ids
}

func objectIDs(objects []*Object) []string {
	ids := make([]string, 0, len(objects))
	for _, obj := range objects {
		ids = append(ids, obj.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestConnectedObjects_Depths(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, store, 10)
	chain(t, engine)
	ctx := context.Background()

	tests := []struct {
		name  string
		root  string
		depth int
		want  []string
	}{
		{name: "one hop", root: "A", depth: 1, want: []string{"B"}},
		{name: "two hops", root: "A", depth: 2, want: []string{"B", "C"}},
		{name: "whole chain", root: "A", depth: 10, want: []string{"B", "C", "D"}},
		{name: "zero depth", root: "A", depth: 0, want: []string{}},
		{name: "negative depth", root: "A", depth: -3, want: []string{}},
		{name: "against link direction", root: "D", depth: 2, want: []string{"B", "C"}},
		{name: "both directions", root: "B", depth: 1, want: []string{"A", "C"}},
		{name: "missing root", root: "nope", depth: 3, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Traversal.ConnectedObjects(ctx, tt.root, tt.depth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, objectIDs(got))
		})
	}
}

func TestConnectedObjects_CyclesVisitedOnce(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, store, 0)
	ids := chain(t, engine)
	ctx := context.Background()

	// close the loop and add a parallel edge
	_, err := engine.Links.CreateLink(ctx, "NEXT", ids[3], ids[0], nil)
	require.NoError(t, err)
	_, err = engine.Links.CreateLink(ctx, "ALSO", ids[0], ids[1], nil)
	require.NoError(t, err)

	got, err := engine.Traversal.ConnectedObjects(ctx, "A", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, objectIDs(got))
}

func TestConnectedObjects_RejectsDepthAboveMax(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, store, 2)
	chain(t, engine)
	ctx := context.Background()

	got, err := engine.Traversal.ConnectedObjects(ctx, "A", 3)
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	assert.Nil(t, got)

	got, err = engine.Traversal.ConnectedObjects(ctx, "A", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, objectIDs(got))
}

func TestConnectedObjects_UnboundedWithoutMax(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, store, 0)
	chain(t, engine)

	got, err := engine.Traversal.ConnectedObjects(context.Background(), "A", 99)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, objectIDs(got))
}

func TestConnectedObjects_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, store, 0)
	chain(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Traversal.ConnectedObjects(ctx, "A", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNeighborsByLinkType(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, store, 0)
	ids := chain(t, engine)
	ctx := context.Background()

	_, err := engine.Links.CreateLink(ctx, "OWNS", ids[2], ids[1], nil)
	require.NoError(t, err)
	_, err = engine.Links.CreateLink(ctx, "OWNS", ids[1], ids[3], nil)
	require.NoError(t, err)

	got, err := engine.Traversal.NeighborsByLinkType(ctx, "B", "OWNS")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, objectIDs(got))

	// one hop only: A is reachable through NEXT, never through OWNS
	got, err = engine.Traversal.NeighborsByLinkType(ctx, "C", "OWNS")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, objectIDs(got))

	got, err = engine.Traversal.NeighborsByLinkType(ctx, "A", "MISSING")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNeighborsByLinkType_RequiresType(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, store, 0)
	chain(t, engine)

	got, err := engine.Traversal.NeighborsByLinkType(context.Background(), "B", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	assert.Nil(t, got)
}

func TestExpand_SkipsOrphanedLinks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.PutObject(ctx, &Object{ID: "A", Type: "Node"})
	require.NoError(t, err)
	_, err = store.PutObject(ctx, &Object{ID: "B", Type: "Node"})
	require.NoError(t, err)

	// written straight to the store, bypassing endpoint checks
	_, err = store.PutLink(ctx, &Link{ID: "l1", Type: "NEXT", SourceID: "A", TargetID: "ghost"})
	require.NoError(t, err)
	_, err = store.PutLink(ctx, &Link{ID: "l2", Type: "NEXT", SourceID: "A", TargetID: "B"})
	require.NoError(t, err)

	got, err := store.Neighbors(ctx, "A", 3, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, objectIDs(got))

	link, err := store.GetLink(ctx, "l1")
	require.NoError(t, err)
	assert.Nil(t, link)
}
