package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	ledgeropts "github.com/kart-io/valuerag/pkg/options/ledger"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

// SourceRecord 一次来源导入的台账记录。
type SourceRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SourceID  string    `gorm:"size:512;index" json:"source_id"`
	Kind      string    `gorm:"size:16" json:"kind"`
	Location  string    `gorm:"size:1024" json:"location"`
	Strategy  string    `gorm:"size:32" json:"strategy"`
	Status    string    `gorm:"size:16;index" json:"status"`
	Chunks    int       `json:"chunks"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	Duration  int64     `json:"duration_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名。
func (SourceRecord) TableName() string {
	return "ingest_sources"
}

// Ledger 记录每个来源的导入结果，数据库为 sqlite / mysql / postgres。
type Ledger struct {
	db *gorm.DB
}

// OpenLedger opens the ledger database and migrates the schema.
func OpenLedger(opts *ledgeropts.Options) (*Ledger, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	return NewLedger(db)
}

// NewLedger wraps an existing gorm handle and migrates the schema.
func NewLedger(db *gorm.DB) (*Ledger, error) {
	if err := db.AutoMigrate(&SourceRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func dialectorFor(opts *ledgeropts.Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case ledgeropts.DriverSQLite:
		if dir := filepath.Dir(opts.DSN); opts.DSN != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create ledger dir: %w", err)
			}
		}
		return sqlite.Open(opts.DSN), nil
	case ledgeropts.DriverMySQL:
		return mysql.Open(opts.DSN), nil
	case ledgeropts.DriverPostgres:
		return postgres.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s", opts.Driver)
	}
}

// Record 写入一条导入结果。
func (l *Ledger) Record(ctx context.Context, res *model.IngestResult) error {
	rec := &SourceRecord{
		SourceID: res.SourceID,
		Kind:     string(res.Kind),
		Location: res.Source.Location,
		Strategy: res.Strategy,
		Status:   res.Status,
		Chunks:   res.Chunks,
		Error:    res.Error,
		Duration: res.Duration.Milliseconds(),
	}
	if err := l.db.WithContext(ctx).Create(rec).Error; err != nil {
		return errors.ErrLedger.WithCause(fmt.Errorf("failed to write ledger record: %w", err))
	}
	return nil
}

// Recent 返回最近的导入记录，按时间倒序。
func (l *Ledger) Recent(ctx context.Context, limit int) ([]SourceRecord, error) {
	var records []SourceRecord
	err := l.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, errors.ErrLedger.WithCause(fmt.Errorf("failed to list ledger records: %w", err))
	}
	return records, nil
}

// Latest 返回某个来源最近一次记录，没有时返回 nil。
func (l *Ledger) Latest(ctx context.Context, sourceID string) (*SourceRecord, error) {
	var records []SourceRecord
	err := l.db.WithContext(ctx).Where("source_id = ?", sourceID).Order("id DESC").Limit(1).Find(&records).Error
	if err != nil {
		return nil, errors.ErrLedger.WithCause(fmt.Errorf("failed to query ledger: %w", err))
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
