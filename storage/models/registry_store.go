package models

import (
	"errors"

	"gorm.io/gorm"

	"dposcore/core/registry"
	"dposcore/core/types"
)

// RegistryStore adapts a GORM database into a registry.Store, letting the
// delegate registry (C2) persist across restarts the way the teacher's
// services persist through models.AutoMigrate-backed GORM tables rather than
// an in-memory map.
type RegistryStore struct {
	db *gorm.DB
}

// NewRegistryStore wraps db, which must already have been migrated via
// AutoMigrate (or Open, which does this for you).
func NewRegistryStore(db *gorm.DB) *RegistryStore {
	return &RegistryStore{db: db}
}

var _ registry.Store = (*RegistryStore)(nil)

func toModel(d types.Delegate) Delegate {
	return Delegate{
		ID:           d.ID,
		Name:         d.Name,
		Data:         d.Data,
		RegisteredAt: d.RegisteredAt,
		ExpiresAt:    d.ExpiresAt,
		Resigned:     d.Resigned,
	}
}

func fromModel(m Delegate) types.Delegate {
	return types.Delegate{
		ID:           m.ID,
		Name:         m.Name,
		Data:         m.Data,
		RegisteredAt: m.RegisteredAt,
		ExpiresAt:    m.ExpiresAt,
		Resigned:     m.Resigned,
	}
}

// Get implements registry.Store.
func (s *RegistryStore) Get(id uint64) (types.Delegate, bool, error) {
	var m Delegate
	err := s.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Delegate{}, false, nil
	}
	if err != nil {
		return types.Delegate{}, false, err
	}
	return fromModel(m), true, nil
}

// GetByName implements registry.Store.
func (s *RegistryStore) GetByName(name string) (types.Delegate, bool, error) {
	var m Delegate
	err := s.db.First(&m, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Delegate{}, false, nil
	}
	if err != nil {
		return types.Delegate{}, false, err
	}
	return fromModel(m), true, nil
}

// Put implements registry.Store, upserting on the delegate's primary key.
func (s *RegistryStore) Put(d types.Delegate) error {
	m := toModel(d)
	return s.db.Save(&m).Error
}

// Delete implements registry.Store.
func (s *RegistryStore) Delete(id uint64) error {
	return s.db.Delete(&Delegate{}, "id = ?", id).Error
}

// All implements registry.Store.
func (s *RegistryStore) All() ([]types.Delegate, error) {
	var ms []Delegate
	if err := s.db.Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]types.Delegate, len(ms))
	for i, m := range ms {
		out[i] = fromModel(m)
	}
	return out, nil
}
