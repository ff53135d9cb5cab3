package session

import (
	"fmt"
	"slices"
)

// rootAdapter parents adapters that arrive without a rendered parent
type rootAdapter struct {
	AdapterBase
}

func (*rootAdapter) OnModelAction(*Event) error         { return nil }
func (*rootAdapter) OnModelPropertyChange(*Event) error { return nil }

// ObjectFactory returns the factory used to create adapters
func (s *Session) ObjectFactory() *ObjectFactory { return s.factory }

// RootAdapter returns the adapter that parents top-level adapters
func (s *Session) RootAdapter() Adapter { return s.root }

// RegisterAdapter makes a available under its id
func (s *Session) RegisterAdapter(a Adapter) error {
	return s.registry.put(a)
}

// UnregisterAdapter removes a from the registry without destroying it
func (s *Session) UnregisterAdapter(a Adapter) {
	s.registry.remove(a)
}

// Adapter returns the registered adapter with the given id, or nil
func (s *Session) Adapter(id string) Adapter {
	return s.registry.get(id)
}

// GetOrCreateAdapter returns the adapter for id, creating it from cached
// adapter data if necessary. An existing adapter that is not rendered is
// re-linked to parent. A new adapter is owned by the owner named in its data,
// or else by parent.
func (s *Session) GetOrCreateAdapter(id string, parent Adapter) (Adapter, error) {
	if id == "" {
		return nil, ErrMissingAdapterID
	}

	if adapter := s.registry.get(id); adapter != nil {
		base := adapter.Base()
		if parent != nil && !base.Rendered() {
			if old := base.Parent(); old != nil {
				old.Base().removeChild(adapter)
			}
			base.setParent(parent)
			parent.Base().addChild(adapter)
		}
		return adapter, nil
	}

	data := s.registry.takeData(id)
	if data == nil {
		return nil, fmt.Errorf("adapter %s: %w", id, ErrNoAdapterData)
	}

	var owner Adapter
	if data.Owner != "" {
		owner = s.registry.get(data.Owner)
		if owner == nil {
			return nil, fmt.Errorf("adapter %s: owner %s: %w", id, data.Owner, ErrNoParent)
		}
		if parent == nil {
			parent = owner
		}
	} else {
		if parent == nil {
			return nil, fmt.Errorf("adapter %s: %w", id, ErrNoParent)
		}
		owner = parent
	}

	adapter, err := s.factory.Create(s, data)
	if err != nil {
		return nil, err
	}
	base := adapter.Base()
	if base.ID() == "" {
		base.Init(data.ID, data.ObjectType)
	}
	base.setLinks(owner, parent)
	if err := s.registry.put(adapter); err != nil {
		return nil, err
	}
	owner.Base().addOwned(adapter)
	parent.Base().addChild(adapter)
	s.log().Debug("Created adapter", "adapter", base.String(), "owner", owner.Base().ID(), "parent", parent.Base().ID())
	return adapter, nil
}

// GetOrCreateAdapters resolves ids in order
func (s *Session) GetOrCreateAdapters(ids []string, parent Adapter) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetOrCreateAdapter(id, parent)
		if err != nil {
			return adapters, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// DestroyAdapter destroys the adapters owned by a, then unlinks and
// unregisters a itself.
func (s *Session) DestroyAdapter(a Adapter) {
	base := a.Base()
	for _, owned := range base.Owned() {
		s.DestroyAdapter(owned)
	}
	if parent := base.Parent(); parent != nil {
		parent.Base().removeChild(a)
	}
	if owner := base.Owner(); owner != nil {
		owner.Base().removeOwned(a)
	}
	base.setLinks(nil, nil)
	base.SetRendered(false)
	s.registry.remove(a)
	_ = s.UnregisterAllAdapterClones(a)
	if d, ok := a.(Destroyer); ok {
		d.Destroy()
	}
}

// RegisterAdapterClone registers clone as a mirror of a. Events for a are
// also delivered to its clones.
func (s *Session) RegisterAdapterClone(a, clone Adapter) {
	clone.Base().setCloneOf(a.Base().ID())
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	id := a.Base().ID()
	s.registry.clones[id] = append(s.registry.clones[id], clone)
}

// AdapterClones returns the clones registered for a
func (s *Session) AdapterClones(a Adapter) []Adapter {
	s.registry.mu.RLock()
	defer s.registry.mu.RUnlock()
	return slices.Clone(s.registry.clones[a.Base().ID()])
}

// UnregisterAllAdapterClones drops every clone of a
func (s *Session) UnregisterAllAdapterClones(a Adapter) error {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	id := a.Base().ID()
	if _, ok := s.registry.clones[id]; !ok {
		return fmt.Errorf("adapter %s: %w", id, ErrNoClones)
	}
	delete(s.registry.clones, id)
	return nil
}

// UnregisterAdapterClone drops one clone
func (s *Session) UnregisterAdapterClone(clone Adapter) error {
	of := clone.Base().CloneOf()
	if of == "" {
		return fmt.Errorf("adapter %s: %w", clone.Base().ID(), ErrNotAClone)
	}
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	entry, ok := s.registry.clones[of]
	if !ok {
		return fmt.Errorf("adapter %s: %w", of, ErrNoClones)
	}
	i := slices.Index(entry, clone)
	if i < 0 {
		return fmt.Errorf("adapter %s: %w", clone.Base().ID(), ErrCloneNotRegistered)
	}
	s.registry.clones[of] = slices.Delete(entry, i, i+1)
	return nil
}
