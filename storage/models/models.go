// Package models defines the GORM-backed persistence schema for the
// delegate registry (C2) and retired score observations (C5 archival),
// mirroring the teacher's services/otc-gateway/models package: plain
// structs with gorm struct tags and a single AutoMigrate entry point.
package models

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Delegate is the persisted form of core/types.Delegate (C2).
type Delegate struct {
	ID           uint64 `gorm:"primaryKey"`
	Name         string `gorm:"uniqueIndex;size:32"`
	Data         []byte `gorm:"type:blob"`
	RegisteredAt uint64 `gorm:"index"`
	ExpiresAt    uint64 `gorm:"index"`
	Resigned     bool   `gorm:"index"`
	UpdatedAt    time.Time
}

// Observation is the persisted form of a native/score.Observation snapshot,
// taken periodically for archival and audit (storage/archive exports these
// to Parquet once retired).
type Observation struct {
	ID                    uint64 `gorm:"primaryKey;autoIncrement"`
	DelegateID            uint64 `gorm:"index"`
	Height                uint64 `gorm:"index"`
	Produced              uint64
	Missed                uint64
	LateLatencyMedian     float64
	EarlyLatencyMedian    float64
	ExpectedTxIncluded    float64
	UnexpectedTxIncluded  float64
	InvalidSigned         uint64
	FeeFractionMedian     float64
	Score                 float64
	Archived              bool `gorm:"index"`
	CreatedAt             time.Time
}

// Open opens (creating if absent) a sqlite-backed GORM database at path and
// runs AutoMigrate, mirroring the teacher's
// gorm.Open(sqlite.Open(dsn), &gorm.Config{}) + models.AutoMigrate(db)
// startup sequence.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate performs all schema migrations for the node.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Delegate{},
		&Observation{},
	)
}
