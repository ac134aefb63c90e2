package apidata

// Registry holds the entities of one run in insertion order together with the
// diagnostics recorded while building them.
type Registry struct {
	entities map[string]*Entity
	order    []string

	Errors   []Diagnostic
	Warnings []Diagnostic
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*Entity)}
}

// Get returns the entity with the given id.
func (r *Registry) Get(id string) (*Entity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// Add registers e. An entity with the same id is replaced in place.
func (r *Registry) Add(e *Entity) {
	if _, ok := r.entities[e.ID]; !ok {
		r.order = append(r.order, e.ID)
	}
	r.entities[e.ID] = e
}

// Entities returns the entities in insertion order.
func (r *Registry) Entities() []*Entity {
	out := make([]*Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id])
	}
	return out
}

// Len returns the number of entities.
func (r *Registry) Len() int {
	return len(r.order)
}

// Error records an error. loc may be nil.
func (r *Registry) Error(msg string, loc *Location) {
	r.Errors = append(r.Errors, Diagnostic{Message: msg, Location: loc})
}

// Warn records a warning. loc may be nil.
func (r *Registry) Warn(msg string, loc *Location) {
	r.Warnings = append(r.Warnings, Diagnostic{Message: msg, Location: loc})
}
