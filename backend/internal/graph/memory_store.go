package graph

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store and ActionLog. Link records are the
// single source of truth; the source/target indexes are derived from them
// and updated in the same critical section. A link whose endpoint is
// missing is hidden from every read.
type MemoryStore struct {
	mu       sync.RWMutex
	objects  map[string]*Object
	links    map[string]*Link
	bySource map[string]map[string]struct{}
	byTarget map[string]map[string]struct{}
	actions  []*Action
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ ActionLog = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string]*Object),
		links:    make(map[string]*Link),
		bySource: make(map[string]map[string]struct{}),
		byTarget: make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) GetObject(ctx context.Context, id string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lockedView{s}.GetObject(ctx, id)
}

func (s *MemoryStore) ListObjects(ctx context.Context, typeFilter string) ([]*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Object, 0, len(s.objects))
	for _, obj := range s.objects {
		if typeFilter == "" || obj.Type == typeFilter {
			out = append(out, obj.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) PutObject(ctx context.Context, obj *Object) (*Object, error) {
	stored := obj.Clone()

	s.mu.Lock()
	s.objects[stored.ID] = stored
	s.mu.Unlock()

	return stored.Clone(), nil
}

// DeleteObject removes the object and drops the link records that touch
// it, so a later object with the same id starts without edges.
func (s *MemoryStore) DeleteObject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, id)
	for _, idx := range []map[string]map[string]struct{}{s.bySource, s.byTarget} {
		for linkID := range idx[id] {
			s.dropLink(linkID)
		}
	}
	return nil
}

func (s *MemoryStore) GetLink(ctx context.Context, id string) (*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[id]
	if !ok || !s.live(link) {
		return nil, nil
	}
	return link.Clone(), nil
}

func (s *MemoryStore) ListLinks(ctx context.Context, typeFilter string) ([]*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Link, 0, len(s.links))
	for _, link := range s.links {
		if (typeFilter == "" || link.Type == typeFilter) && s.live(link) {
			out = append(out, link.Clone())
		}
	}
	sortLinks(out)
	return out, nil
}

func (s *MemoryStore) LinksFrom(ctx context.Context, sourceID string) ([]*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lockedView{s}.LinksFrom(ctx, sourceID)
}

func (s *MemoryStore) LinksTo(ctx context.Context, targetID string) ([]*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lockedView{s}.LinksTo(ctx, targetID)
}

// PutLink upserts a link record and moves its index entries when the
// endpoints change.
func (s *MemoryStore) PutLink(ctx context.Context, link *Link) (*Link, error) {
	stored := link.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.links[stored.ID]; ok {
		unindex(s.bySource, prev.SourceID, prev.ID)
		unindex(s.byTarget, prev.TargetID, prev.ID)
	}
	s.links[stored.ID] = stored
	index(s.bySource, stored.SourceID, stored.ID)
	index(s.byTarget, stored.TargetID, stored.ID)

	return stored.Clone(), nil
}

func (s *MemoryStore) DeleteLink(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropLink(id)
	return nil
}

// dropLink removes a link record and its index entries. Caller holds mu.
func (s *MemoryStore) dropLink(id string) {
	link, ok := s.links[id]
	if !ok {
		return
	}
	delete(s.links, id)
	unindex(s.bySource, link.SourceID, id)
	unindex(s.byTarget, link.TargetID, id)
}

// Neighbors expands over a consistent snapshot: writers are held off for
// the duration of the search.
func (s *MemoryStore) Neighbors(ctx context.Context, id string, maxDepth int, linkType string) ([]*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Expand(ctx, lockedView{s}, id, maxDepth, linkType)
}

func (s *MemoryStore) AppendAction(ctx context.Context, action *Action) (*Action, error) {
	stored := action.Clone()

	s.mu.Lock()
	s.actions = append(s.actions, stored)
	s.mu.Unlock()

	return stored.Clone(), nil
}

func (s *MemoryStore) ListActions(ctx context.Context, filter ActionFilter) ([]*Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*Action{}
	for _, action := range s.actions {
		if filter.Matches(action) {
			out = append(out, action.Clone())
		}
	}
	return out, nil
}

// live reports whether both endpoints of a link still exist. Caller holds mu.
func (s *MemoryStore) live(link *Link) bool {
	_, src := s.objects[link.SourceID]
	_, dst := s.objects[link.TargetID]
	return src && dst
}

func (s *MemoryStore) indexed(idx map[string]map[string]struct{}, key string) []*Link {
	ids := idx[key]
	out := make([]*Link, 0, len(ids))
	for id := range ids {
		if link := s.links[id]; link != nil && s.live(link) {
			out = append(out, link.Clone())
		}
	}
	sortLinks(out)
	return out
}

// lockedView reads the store without locking; the caller holds mu.
type lockedView struct {
	s *MemoryStore
}

func (v lockedView) GetObject(ctx context.Context, id string) (*Object, error) {
	obj, ok := v.s.objects[id]
	if !ok {
		return nil, nil
	}
	return obj.Clone(), nil
}

func (v lockedView) LinksFrom(ctx context.Context, sourceID string) ([]*Link, error) {
	return v.s.indexed(v.s.bySource, sourceID), nil
}

func (v lockedView) LinksTo(ctx context.Context, targetID string) ([]*Link, error) {
	return v.s.indexed(v.s.byTarget, targetID), nil
}

func index(idx map[string]map[string]struct{}, key, linkID string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[linkID] = struct{}{}
}

func unindex(idx map[string]map[string]struct{}, key, linkID string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, linkID)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func sortLinks(links []*Link) {
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
}
