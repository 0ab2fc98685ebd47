package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/dungeon-master/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// jsonState stores a GameState in a jsonb column.
type jsonState models.GameState

func (j jsonState) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *jsonState) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("scan jsonState: unsupported type %T", src)
	}
	return json.Unmarshal(b, j)
}

type saveRow struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	PlayerID  string    `gorm:"size:100;not null;uniqueIndex:idx_saves_player_slot;index:idx_saves_player_time,priority:1"`
	SaveSlot  int       `gorm:"not null;uniqueIndex:idx_saves_player_slot"`
	SaveName  string    `gorm:"size:200"`
	GameState jsonState `gorm:"type:jsonb"`
	SavedAt   time.Time `gorm:"not null;index:idx_saves_player_time,priority:2,sort:desc"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (saveRow) TableName() string { return "saves" }

type playerRow struct {
	PlayerID   string `gorm:"primaryKey;size:100"`
	LastPlayed time.Time
	CreatedAt  time.Time
}

func (playerRow) TableName() string { return "players" }

// Postgres stores saves in a "saves" table with the game state as jsonb.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres opens dsn, configures the pool and migrates the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, unavailable(fmt.Errorf("open postgres: %w", err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, unavailable(err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, unavailable(fmt.Errorf("ping postgres: %w", err))
	}
	if err := db.WithContext(ctx).AutoMigrate(&saveRow{}, &playerRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

const upsertSaveSQL = `
INSERT INTO saves (id, player_id, save_slot, save_name, game_state, saved_at, is_active, created_at)
VALUES (?, ?, ?, ?, ?, ?, TRUE, ?)
ON CONFLICT (player_id, save_slot) DO UPDATE SET
	save_name = EXCLUDED.save_name,
	game_state = EXCLUDED.game_state,
	saved_at = EXCLUDED.saved_at,
	is_active = TRUE
RETURNING id::text AS id, (xmax = 0) AS inserted`

func (p *Postgres) Upsert(ctx context.Context, rec *models.SaveRecord) (models.UpsertResult, error) {
	var out struct {
		ID       string
		Inserted bool
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(upsertSaveSQL,
			uuid.NewString(), rec.PlayerID, rec.SaveSlot, rec.SaveName,
			jsonState(rec.GameState), rec.Timestamp, rec.Timestamp,
		).Scan(&out).Error
		if err != nil {
			return fmt.Errorf("upsert save: %w", err)
		}

		player := playerRow{PlayerID: rec.PlayerID, LastPlayed: rec.Timestamp, CreatedAt: rec.Timestamp}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_played"}),
		}).Create(&player).Error
		if err != nil {
			return fmt.Errorf("touch player: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.UpsertResult{}, pgErr(err)
	}
	return models.UpsertResult{SaveID: out.ID, Created: out.Inserted}, nil
}

func (p *Postgres) ListByPlayer(ctx context.Context, playerID string, limit int64) ([]models.SaveSummary, error) {
	q := p.db.WithContext(ctx).
		Model(&saveRow{}).
		Select("id", "save_name", "save_slot", "saved_at").
		Where("player_id = ? AND is_active", playerID).
		Order("saved_at DESC")
	if limit > 0 {
		q = q.Limit(int(limit))
	}

	var rows []saveRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, pgErr(fmt.Errorf("list saves: %w", err))
	}
	out := make([]models.SaveSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.SaveSummary{
			SaveID:    r.ID,
			SaveName:  r.SaveName,
			SaveSlot:  r.SaveSlot,
			Timestamp: r.SavedAt.UTC(),
		})
	}
	return out, nil
}

func (p *Postgres) LoadByID(ctx context.Context, id string) (models.GameState, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidKey
	}
	var row saveRow
	err := p.db.WithContext(ctx).Where("id = ? AND is_active", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, pgErr(fmt.Errorf("load save: %w", err))
	}
	if row.GameState == nil {
		return nil, ErrNotFound
	}
	return models.GameState(row.GameState), nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidKey
	}
	res := p.db.WithContext(ctx).
		Model(&saveRow{}).
		Where("id = ? AND is_active", id).
		Update("is_active", false)
	if res.Error != nil {
		return pgErr(fmt.Errorf("delete save: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Close(context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func pgErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return unavailable(err)
	}
	return err
}
