package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// activePairIndex keeps at most one active session per (job, candidate).
const activePairIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_interview_sessions_active_pair
ON interview_sessions (job_id, candidate_id) WHERE status = 'active'`

// Store is a gorm-backed interview.Store for SQLite and PostgreSQL.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ interview.Store = (*Store)(nil)

// Open connects to the database and migrates the schema.
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3":
		dialector = sqlite.Open(dsn)
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	store := New(db, log)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// New wraps an existing connection. Call Migrate before first use.
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.WithFields(log, zap.String("store", "sql")),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&sessionRecord{}, &turnRecord{}); err != nil {
		return fmt.Errorf("migrate interview schema: %w", err)
	}
	if err := db.Exec(activePairIndex).Error; err != nil {
		return fmt.Errorf("create active pair index: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, session *interview.Session) error {
	rec := toRecord(session)
	err := s.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return interview.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) FindActive(ctx context.Context, jobID, candidateID string) (*interview.Session, error) {
	return s.first(ctx, "job_id = ? AND candidate_id = ? AND status = ?", jobID, candidateID, string(interview.StatusActive))
}

func (s *Store) Get(ctx context.Context, id string) (*interview.Session, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Store) first(ctx context.Context, query string, args ...any) (*interview.Session, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).
		Preload("Turns", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(query, args...).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, interview.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return rec.toSession(), nil
}

// Save updates the session row guarded by its version and appends turns the
// database does not have yet, in one transaction.
func (s *Store) Save(ctx context.Context, session *interview.Session, expectedVersion int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&sessionRecord{}).
			Where("id = ? AND version = ?", session.ID, expectedVersion).
			Updates(map[string]any{
				"status":           string(session.Status),
				"current_question": session.CurrentQuestion,
				"version":          session.Version,
				"updated_at":       session.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&sessionRecord{}).Where("id = ?", session.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("check session: %w", err)
			}
			if count == 0 {
				return interview.ErrSessionNotFound
			}
			return interview.ErrConflict
		}

		var stored int64
		if err := tx.Model(&turnRecord{}).Where("session_id = ?", session.ID).Count(&stored).Error; err != nil {
			return fmt.Errorf("count turns: %w", err)
		}
		if int(stored) > len(session.Turns) {
			return fmt.Errorf("%w: session %s has %d stored turns, got %d", interview.ErrConflict, session.ID, stored, len(session.Turns))
		}

		if fresh := toTurnRecords(session.ID, session.Turns, int(stored)); len(fresh) > 0 {
			if err := tx.Create(&fresh).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return interview.ErrConflict
				}
				return fmt.Errorf("insert turns: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, interview.ErrConflict) && !errors.Is(err, interview.ErrNotFound) {
			s.logger.Error("save session failed", zap.String(logger.FieldSessionID, session.ID), zap.Error(err))
		}
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql handle: %w", err)
	}
	return sqlDB.Close()
}
