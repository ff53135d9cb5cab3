package session

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// Adapter is the client-side proxy of a server-side model object. Concrete
// adapters embed AdapterBase and implement the two model callbacks, which run on the
// session loop in the order the server sent the events.
type Adapter interface {
	Base() *AdapterBase
	OnModelAction(ev *Event) error
	OnModelPropertyChange(ev *Event) error
}

// Destroyer is implemented by adapters that release resources when destroyed
type Destroyer interface {
	Destroy()
}

// OfflineAware is implemented by adapters that react to connectivity changes
type OfflineAware interface {
	GoOffline()
	GoOnline()
}

// AdapterBase holds the identity and tree links of an adapter. An adapter has one
// owner, which destroys it, and one parent in the rendering tree.
type AdapterBase struct {
	mu         sync.RWMutex
	id         string
	objectType string
	owner      Adapter
	parent     Adapter
	children   []Adapter
	owned      []Adapter
	rendered   bool
	cloneOf    string
}

// Init sets the identity of the node. It must be called before the adapter
// is registered.
func (n *AdapterBase) Init(id, objectType string) {
	n.mu.Lock()
	n.id, n.objectType = id, objectType
	n.mu.Unlock()
}

// Base returns n, so types embedding AdapterBase satisfy Adapter's Base method
func (n *AdapterBase) Base() *AdapterBase { return n }

func (n *AdapterBase) ID() string { return n.id }

func (n *AdapterBase) ObjectType() string { return n.objectType }

func (n *AdapterBase) Owner() Adapter {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.owner
}

func (n *AdapterBase) Parent() Adapter {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

func (n *AdapterBase) Children() []Adapter {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.children)
}

func (n *AdapterBase) Owned() []Adapter {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.owned)
}

// Rendered reports whether the adapter is currently shown. Rendered adapters
// keep their parent when looked up again.
func (n *AdapterBase) Rendered() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.rendered
}

func (n *AdapterBase) SetRendered(rendered bool) {
	n.mu.Lock()
	n.rendered = rendered
	n.mu.Unlock()
}

// CloneOf returns the id of the adapter this one mirrors, or ""
func (n *AdapterBase) CloneOf() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cloneOf
}

func (n *AdapterBase) String() string {
	return fmt.Sprintf("%s[%s]", n.objectType, n.id)
}

func (n *AdapterBase) setLinks(owner, parent Adapter) {
	n.mu.Lock()
	n.owner, n.parent = owner, parent
	n.mu.Unlock()
}

func (n *AdapterBase) setParent(parent Adapter) {
	n.mu.Lock()
	n.parent = parent
	n.mu.Unlock()
}

func (n *AdapterBase) addChild(a Adapter) {
	n.mu.Lock()
	n.children = append(n.children, a)
	n.mu.Unlock()
}

func (n *AdapterBase) removeChild(a Adapter) {
	n.mu.Lock()
	n.children = slices.DeleteFunc(n.children, func(c Adapter) bool { return c == a })
	n.mu.Unlock()
}

func (n *AdapterBase) addOwned(a Adapter) {
	n.mu.Lock()
	n.owned = append(n.owned, a)
	n.mu.Unlock()
}

func (n *AdapterBase) removeOwned(a Adapter) {
	n.mu.Lock()
	n.owned = slices.DeleteFunc(n.owned, func(c Adapter) bool { return c == a })
	n.mu.Unlock()
}

func (n *AdapterBase) setCloneOf(id string) {
	n.mu.Lock()
	n.cloneOf = id
	n.mu.Unlock()
}

// AdapterData is the server's description of an adapter that does not exist
// on the client yet.
type AdapterData struct {
	ID         string          `json:"id"`
	ObjectType string          `json:"objectType"`
	Owner      string          `json:"owner,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Decode unmarshals the full adapter data into v
func (d *AdapterData) Decode(v any) error {
	if err := json.Unmarshal(d.Raw, v); err != nil {
		return fmt.Errorf("decode adapter data %s: %w", d.ID, err)
	}
	return nil
}

// FactoryFunc builds an adapter for one object type. The returned adapter's
// base must carry data.ID.
type FactoryFunc func(s *Session, data *AdapterData) (Adapter, error)

// ObjectFactory maps object types to adapter constructors
type ObjectFactory struct {
	mu        sync.RWMutex
	factories map[string]FactoryFunc
}

// NewObjectFactory creates a factory with the given constructors
func NewObjectFactory(factories map[string]FactoryFunc) *ObjectFactory {
	f := &ObjectFactory{factories: make(map[string]FactoryFunc, len(factories))}
	for objectType, fn := range factories {
		f.factories[objectType] = fn
	}
	return f
}

// Register adds or replaces the constructor for objectType
func (f *ObjectFactory) Register(objectType string, fn FactoryFunc) {
	f.mu.Lock()
	f.factories[objectType] = fn
	f.mu.Unlock()
}

// Create builds an adapter from data
func (f *ObjectFactory) Create(s *Session, data *AdapterData) (Adapter, error) {
	f.mu.RLock()
	fn, ok := f.factories[data.ObjectType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("create %s: %w: %q", data.ID, ErrUnknownObjectType, data.ObjectType)
	}
	a, err := fn(s, data)
	if err != nil {
		return nil, fmt.Errorf("create %s %s: %w", data.ObjectType, data.ID, err)
	}
	return a, nil
}

// registry tracks live adapters, their clones and adapter data received from
// the server but not yet turned into adapters.
type registry struct {
	mu          sync.RWMutex
	adapters    map[string]Adapter
	clones      map[string][]Adapter
	adapterData map[string]*AdapterData
}

func newRegistry() *registry {
	return &registry{
		adapters:    make(map[string]Adapter),
		clones:      make(map[string][]Adapter),
		adapterData: make(map[string]*AdapterData),
	}
}

func (r *registry) get(id string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[id]
}

func (r *registry) put(a Adapter) error {
	id := a.Base().ID()
	if id == "" {
		return ErrMissingAdapterID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.adapters[id]; ok && existing != a {
		return fmt.Errorf("register %s: %w", id, ErrDuplicateAdapter)
	}
	r.adapters[id] = a
	return nil
}

func (r *registry) remove(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adapters[a.Base().ID()] == a {
		delete(r.adapters, a.Base().ID())
	}
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

func (r *registry) all() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// storeData caches adapter data from a response
func (r *registry) storeData(raw map[string]json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, msg := range raw {
		d := &AdapterData{}
		if err := json.Unmarshal(msg, d); err != nil {
			return fmt.Errorf("adapter data %s: %w", id, err)
		}
		d.ID = id
		d.Raw = msg
		r.adapterData[id] = d
	}
	return nil
}

// takeData removes and returns the cached data for id. Each entry can be
// taken once.
func (r *registry) takeData(id string) *AdapterData {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.adapterData[id]
	delete(r.adapterData, id)
	return d
}

func (r *registry) dataLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapterData)
}
