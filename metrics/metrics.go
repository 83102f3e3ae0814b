// Package metrics records index lifecycle events to an optional Postgres
// audit log, grounded on db/postgres.go's RabbitLog/GORM-AutoMigrate pattern.
// A Recorder with no configured DATABASE_URL is a nil-safe no-op so the rest
// of the process never has to branch on whether auditing is enabled.
package metrics

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// EventKind names the index lifecycle transitions this audit log records.
type EventKind string

const (
	EventIndexCreated     EventKind = "index_created"
	EventIndexBuilt       EventKind = "index_built"
	EventIndexInvalidated EventKind = "index_invalidated"
	EventIndexRemoved     EventKind = "index_removed"
	EventUpdateProcessed  EventKind = "update_processed"
)

// IndexEvent is one row of the audit log.
type IndexEvent struct {
	gorm.Model
	Kind     string `gorm:"index"`
	TypeName string `gorm:"index"`
	GroupKey string
	Subject  string
	Detail   string
}

// Recorder writes IndexEvent rows. The zero value (db == nil) is a valid,
// inert Recorder.
type Recorder struct {
	db *gorm.DB
}

// Open connects to pgURL and migrates the audit table. An empty pgURL
// returns a no-op Recorder rather than an error, since the audit log is an
// optional ambient concern.
func Open(pgURL string) (*Recorder, error) {
	if pgURL == "" {
		return &Recorder{}, nil
	}

	db, err := gorm.Open(postgres.Open(pgURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&IndexEvent{}); err != nil {
		return nil, err
	}

	return &Recorder{db: db}, nil
}

// Record inserts one audit row. A nil Recorder or a Recorder opened without
// a database silently does nothing.
func (r *Recorder) Record(kind EventKind, typeName, groupKey, subject, detail string) {
	if r == nil || r.db == nil {
		return
	}
	event := IndexEvent{
		Kind:     string(kind),
		TypeName: typeName,
		GroupKey: groupKey,
		Subject:  subject,
		Detail:   detail,
	}
	r.db.Create(&event)
}

// RecentByType returns the most recent limit events recorded for typeName,
// newest first. Returns an empty slice, never an error, when auditing is
// disabled.
func (r *Recorder) RecentByType(typeName string, limit int) ([]IndexEvent, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	var events []IndexEvent
	err := r.db.Where("type_name = ?", typeName).Order("created_at desc").Limit(limit).Find(&events).Error
	return events, err
}
