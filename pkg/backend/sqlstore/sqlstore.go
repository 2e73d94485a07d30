// Package sqlstore is a persistent backend that keeps objects in a SQL
// database through gorm. Attribute values are stored in the same text form
// ASIC_DB uses, one row per attribute.
package sqlstore

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/meta"
	"github.com/newtron-network/sairedis/pkg/registry"
	"github.com/newtron-network/sairedis/pkg/sai"
	"github.com/newtron-network/sairedis/pkg/util"
)

var (
	_ dispatch.Handler = (*Store)(nil)
	_ dispatch.Lister  = (*Store)(nil)
)

// ObjectRow is a row in the objects table.
type ObjectRow struct {
	OID       uint64 `gorm:"column:oid;primaryKey;autoIncrement:false"`
	Type      int32  `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ObjectRow) TableName() string { return "objects" }

// AttributeRow is a row in the object_attributes table.
type AttributeRow struct {
	ID        uint   `gorm:"primaryKey"`
	OID       uint64 `gorm:"column:oid;uniqueIndex:idx_object_attribute"`
	Name      string `gorm:"uniqueIndex:idx_object_attribute"`
	Value     string
	UpdatedAt time.Time
}

func (AttributeRow) TableName() string { return "object_attributes" }

// CounterName names the object id counter row, after ASIC_DB's VIDCOUNTER.
const CounterName = "VIDCOUNTER"

// CounterRow is a row in the counters table.
type CounterRow struct {
	Name  string `gorm:"primaryKey"`
	Value uint64
}

func (CounterRow) TableName() string { return "counters" }

// Store implements dispatch.Handler on a gorm database.
type Store struct {
	db     *gorm.DB
	schema meta.Schema
}

// Open opens (or creates) the sqlite database at dsn and migrates it.
func Open(dsn string, schema meta.Schema) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dsn, err)
	}
	s, err := New(db, schema)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	util.WithBackend("sql").WithField("dsn", dsn).Info("Opened object store")
	return s, nil
}

// New wraps an open database, migrating the object tables. A nil schema
// uses meta.Default().
func New(db *gorm.DB, schema meta.Schema) (*Store, error) {
	if schema == nil {
		schema = meta.Default()
	}
	if err := db.AutoMigrate(&ObjectRow{}, &AttributeRow{}, &CounterRow{}); err != nil {
		return nil, fmt.Errorf("migrating object tables: %w", err)
	}
	return &Store{db: db, schema: schema}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Sequence returns the id sequence kept in the counters table, so ids of
// removed objects are not reissued after the store is reopened.
func (s *Store) Sequence() registry.Sequence {
	return &vidCounter{db: s.db}
}

type vidCounter struct {
	db *gorm.DB
}

func (c *vidCounter) Next() (uint64, error) {
	var next uint64
	err := c.db.Transaction(func(tx *gorm.DB) error {
		row := CounterRow{Name: CounterName}
		if err := tx.FirstOrCreate(&row, CounterRow{Name: CounterName}).Error; err != nil {
			return err
		}
		next = row.Value + 1
		return tx.Model(&CounterRow{}).Where("name = ?", CounterName).Update("value", next).Error
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", CounterName, err)
	}
	return next, nil
}

// Create implements dispatch.Handler.
func (s *Store) Create(t sai.ObjectType, id sai.ObjectID, attrs []sai.Attribute) error {
	fields, err := meta.Serialize(s.schema, t, attrs)
	if err != nil {
		return fmt.Errorf("%w: %v", sai.StatusInvalidParameter, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ObjectRow{}).Where("oid = ?", uint64(id)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", sai.StatusItemAlreadyExists, id)
		}

		if err := tx.Create(&ObjectRow{OID: uint64(id), Type: int32(t)}).Error; err != nil {
			return fmt.Errorf("inserting %s: %w", id, err)
		}

		rows := make([]AttributeRow, 0, len(fields))
		for name, value := range fields {
			if name == meta.NullField {
				continue
			}
			rows = append(rows, AttributeRow{OID: uint64(id), Name: name, Value: value})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("inserting attributes of %s: %w", id, err)
		}
		return nil
	})
}

// Remove implements dispatch.Handler.
func (s *Store) Remove(t sai.ObjectType, id sai.ObjectID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := lookup(tx, t, id); err != nil {
			return err
		}
		if err := tx.Where("oid = ?", uint64(id)).Delete(&AttributeRow{}).Error; err != nil {
			return fmt.Errorf("deleting attributes of %s: %w", id, err)
		}
		if err := tx.Delete(&ObjectRow{}, uint64(id)).Error; err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		return nil
	})
}

// Set implements dispatch.Handler.
func (s *Store) Set(t sai.ObjectType, id sai.ObjectID, attr sai.Attribute) error {
	fields, err := meta.Serialize(s.schema, t, []sai.Attribute{attr})
	if err != nil {
		return fmt.Errorf("%w: %v", sai.StatusInvalidParameter, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := lookup(tx, t, id); err != nil {
			return err
		}
		row := AttributeRow{OID: uint64(id), Name: string(attr.ID), Value: fields[string(attr.ID)]}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "oid"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("writing %s of %s: %w", attr.ID, id, err)
		}
		return tx.Model(&ObjectRow{}).Where("oid = ?", uint64(id)).Update("updated_at", time.Now()).Error
	})
}

// Get implements dispatch.Handler. An attribute that is not stored fails
// the whole read with StatusItemNotFound.
func (s *Store) Get(t sai.ObjectType, id sai.ObjectID, ids []sai.AttrID) ([]sai.Attribute, error) {
	if _, err := lookup(s.db, t, id); err != nil {
		return nil, err
	}

	names := make([]string, len(ids))
	for i, attrID := range ids {
		names[i] = string(attrID)
	}
	var rows []AttributeRow
	if err := s.db.Where("oid = ? AND name IN ?", uint64(id), names).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading attributes of %s: %w", id, err)
	}

	fields := make(map[string]string, len(rows))
	for _, r := range rows {
		fields[r.Name] = r.Value
	}
	for _, name := range names {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("%w: %s has no %s", sai.StatusItemNotFound, id, name)
		}
	}
	attrs, err := meta.Deserialize(s.schema, t, fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sai.StatusFailure, err)
	}
	return attrs, nil
}

// Objects implements dispatch.Lister.
func (s *Store) Objects() ([]sai.ObjectKey, error) {
	var rows []ObjectRow
	if err := s.db.Order("oid").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	keys := make([]sai.ObjectKey, len(rows))
	for i, r := range rows {
		keys[i] = sai.ObjectKey{Type: sai.ObjectType(r.Type), ID: sai.ObjectID(r.OID)}
	}
	return keys, nil
}

func lookup(db *gorm.DB, t sai.ObjectType, id sai.ObjectID) (*ObjectRow, error) {
	var row ObjectRow
	err := db.First(&row, "oid = ?", uint64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", sai.StatusItemNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", id, err)
	}
	if sai.ObjectType(row.Type) != t {
		return nil, fmt.Errorf("%w: %s is %s", sai.StatusInvalidObjectType, id, sai.ObjectType(row.Type))
	}
	return &row, nil
}
