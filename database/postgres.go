package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type roomRow struct {
	Name      string    `gorm:"primaryKey;size:255"`
	ID        string    `gorm:"size:24;uniqueIndex;not null"`
	CreatorID string    `gorm:"size:64;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (roomRow) TableName() string { return "rooms" }

type messageRow struct {
	ID        string    `gorm:"primaryKey;size:24"`
	Room      string    `gorm:"size:255;index:idx_messages_room_ts,priority:1;not null"`
	Author    string    `gorm:"size:255;not null"`
	Text      string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"index:idx_messages_room_ts,priority:2;not null"`
}

func (messageRow) TableName() string { return "messages" }

type userRow struct {
	ID       string `gorm:"primaryKey;size:24"`
	Username string `gorm:"size:64;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"`
}

func (userRow) TableName() string { return "users" }

// PostgresStore 以 PostgreSQL (gorm) 實作 Store
type PostgresStore struct {
	db *gorm.DB
}

// ConnectPostgres 建立連線並執行 AutoMigrate
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&roomRow{}, &messageRow{}, &userRow{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info().Str("module", "database").Msg("connected to PostgreSQL")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) FindRoomByName(ctx context.Context, name string) (*models.Room, error) {
	var row roomRow
	err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	room := toRoom(row)
	return &room, nil
}

func (s *PostgresStore) FindRoomsByCreator(ctx context.Context, creatorID string) ([]models.Room, error) {
	var rows []roomRow
	if err := s.db.WithContext(ctx).Where("creator_id = ?", creatorID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	rooms := make([]models.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, toRoom(row))
	}
	return rooms, nil
}

func (s *PostgresStore) InsertRoom(ctx context.Context, room *models.Room) error {
	id := primitive.NewObjectID()
	row := roomRow{
		Name:      room.Name,
		ID:        id.Hex(),
		CreatorID: room.CreatorID,
		CreatedAt: room.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomExists
		}
		return err
	}
	room.ID = id
	return nil
}

func (s *PostgresStore) DeleteRoom(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Delete(&roomRow{}, "name = ?", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	id := primitive.NewObjectID()
	row := messageRow{
		ID:        id.Hex(),
		Room:      msg.Room,
		Author:    msg.Author,
		Text:      msg.Text,
		Timestamp: msg.Timestamp.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	msg.ID = id
	return nil
}

func (s *PostgresStore) DeleteMessagesForRoom(ctx context.Context, room string) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&messageRow{}, "room = ?", room)
	return res.RowsAffected, res.Error
}

func (s *PostgresStore) FindRecentMessages(ctx context.Context, room string, limit int64) ([]models.Message, error) {
	var rows []messageRow
	if err := s.db.WithContext(ctx).
		Where("room = ?", room).
		Order("timestamp DESC").
		Limit(int(limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessage(row))
	}
	slices.Reverse(messages)
	return messages, nil
}

func (s *PostgresStore) PruneMessages(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&messageRow{}, "timestamp < ?", before.UTC())
	return res.RowsAffected, res.Error
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).First(&row, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	id, _ := primitive.ObjectIDFromHex(row.ID)
	return &models.User{ID: id, Username: row.Username, Password: row.Password}, nil
}

func (s *PostgresStore) InsertUser(ctx context.Context, user *models.User) error {
	id := primitive.NewObjectID()
	row := userRow{ID: id.Hex(), Username: user.Username, Password: user.Password}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return err
	}
	user.ID = id
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRoom(row roomRow) models.Room {
	id, _ := primitive.ObjectIDFromHex(row.ID)
	return models.Room{
		ID:        id,
		Name:      row.Name,
		CreatorID: row.CreatorID,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func toMessage(row messageRow) models.Message {
	id, _ := primitive.ObjectIDFromHex(row.ID)
	return models.Message{
		ID:        id,
		Room:      row.Room,
		Author:    row.Author,
		Text:      row.Text,
		Timestamp: row.Timestamp.UTC(),
	}
}
