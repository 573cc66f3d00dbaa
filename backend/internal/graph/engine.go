package graph

// Engine bundles the graph services over one store. The services share a
// single NodeLocks set.
type Engine struct {
	Objects   *ObjectService
	Links     *LinkService
	Actions   *ActionService
	Traversal *Traverser
}

// NewEngine wires the services. Traversals deeper than maxDepth are rejected;
// maxDepth <= 0 means unbounded.
func NewEngine(store Store, actions ActionLog, maxDepth int) *Engine {
	locks := NewNodeLocks()
	objects := NewObjectService(store, locks)

	return &Engine{
		Objects:   objects,
		Links:     NewLinkService(store, locks),
		Actions:   NewActionService(actions, objects),
		Traversal: NewTraverser(store, maxDepth),
	}
}
