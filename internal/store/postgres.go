package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type snapshotRow struct {
	Key       string `gorm:"primaryKey"`
	Payload   string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (snapshotRow) TableName() string { return "lobby_snapshots" }

// Postgres persists snapshots through gorm.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Load(ctx context.Context, key string) (Snapshot, bool, error) {
	var row snapshotRow
	err := p.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	snap, err := decode(row.Payload)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (p *Postgres) Save(ctx context.Context, key string, snap Snapshot) error {
	payload, err := encode(snap)
	if err != nil {
		return err
	}
	row := snapshotRow{Key: key, Payload: payload, UpdatedAt: time.Now().UTC()}
	err = p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
