package registry

import "dposcore/core/types"

// Store persists Delegate records. The in-memory implementation backs tests
// and the Coordinator's replay-from-genesis path; storage/models provides a
// GORM-backed implementation for the running node.
type Store interface {
	Get(id uint64) (types.Delegate, bool, error)
	GetByName(name string) (types.Delegate, bool, error)
	Put(d types.Delegate) error
	Delete(id uint64) error
	All() ([]types.Delegate, error)
}

// memStore is a simple in-memory Store, safe for use by a single Registry
// instance under the Coordinator's write lock.
type memStore struct {
	byID   map[uint64]types.Delegate
	byName map[string]uint64
}

// NewMemStore returns an in-memory Store.
func NewMemStore() Store {
	return &memStore{
		byID:   make(map[uint64]types.Delegate),
		byName: make(map[string]uint64),
	}
}

func (m *memStore) Get(id uint64) (types.Delegate, bool, error) {
	d, ok := m.byID[id]
	return d, ok, nil
}

func (m *memStore) GetByName(name string) (types.Delegate, bool, error) {
	id, ok := m.byName[name]
	if !ok {
		return types.Delegate{}, false, nil
	}
	return m.Get(id)
}

func (m *memStore) Put(d types.Delegate) error {
	if existing, ok := m.byID[d.ID]; ok && existing.Name != d.Name {
		delete(m.byName, existing.Name)
	}
	m.byID[d.ID] = d
	m.byName[d.Name] = d.ID
	return nil
}

func (m *memStore) Delete(id uint64) error {
	if d, ok := m.byID[id]; ok {
		delete(m.byName, d.Name)
	}
	delete(m.byID, id)
	return nil
}

func (m *memStore) All() ([]types.Delegate, error) {
	out := make([]types.Delegate, 0, len(m.byID))
	for _, d := range m.byID {
		out = append(out, d)
	}
	return out, nil
}

// OverlayStore lets a batch of registry mutations (e.g. the registrations
// and renewals embedded in one block) be validated and applied against a
// scratch copy-on-write layer, then discarded or merged into the base store
// as a single atomic unit — mirroring the ledger's Builder/Commit pattern so
// a failing block never leaves a partial registry mutation visible (§5).
type OverlayStore struct {
	base    Store
	puts    map[uint64]types.Delegate
	deletes map[uint64]struct{}
}

// NewOverlay wraps base with a scratch mutation layer.
func NewOverlay(base Store) *OverlayStore {
	return &OverlayStore{
		base:    base,
		puts:    make(map[uint64]types.Delegate),
		deletes: make(map[uint64]struct{}),
	}
}

func (o *OverlayStore) Get(id uint64) (types.Delegate, bool, error) {
	if _, deleted := o.deletes[id]; deleted {
		return types.Delegate{}, false, nil
	}
	if d, ok := o.puts[id]; ok {
		return d, true, nil
	}
	return o.base.Get(id)
}

func (o *OverlayStore) GetByName(name string) (types.Delegate, bool, error) {
	for _, d := range o.puts {
		if d.Name == name {
			return d, true, nil
		}
	}
	base, ok, err := o.base.GetByName(name)
	if err != nil || !ok {
		return base, ok, err
	}
	if _, deleted := o.deletes[base.ID]; deleted {
		return types.Delegate{}, false, nil
	}
	if _, overridden := o.puts[base.ID]; overridden {
		// The overlay's own copy (checked above) is authoritative; reaching
		// here means the overlay renamed it away from this name.
		return types.Delegate{}, false, nil
	}
	return base, true, nil
}

func (o *OverlayStore) Put(d types.Delegate) error {
	delete(o.deletes, d.ID)
	o.puts[d.ID] = d
	return nil
}

func (o *OverlayStore) Delete(id uint64) error {
	delete(o.puts, id)
	o.deletes[id] = struct{}{}
	return nil
}

func (o *OverlayStore) All() ([]types.Delegate, error) {
	base, err := o.base.All()
	if err != nil {
		return nil, err
	}
	out := make([]types.Delegate, 0, len(base)+len(o.puts))
	for _, d := range base {
		if _, deleted := o.deletes[d.ID]; deleted {
			continue
		}
		if _, overridden := o.puts[d.ID]; overridden {
			continue
		}
		out = append(out, d)
	}
	for _, d := range o.puts {
		out = append(out, d)
	}
	return out, nil
}

// Merge applies every pending put/delete into the base store. Call only
// after every transaction in the batch has validated successfully.
func (o *OverlayStore) Merge() error {
	for id := range o.deletes {
		if err := o.base.Delete(id); err != nil {
			return err
		}
	}
	for _, d := range o.puts {
		if err := o.base.Put(d); err != nil {
			return err
		}
	}
	return nil
}
