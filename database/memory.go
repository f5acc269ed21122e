package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arjun7095/Chat-Application/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore 是僅存於記憶體的 Store，用於測試與本機開發
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]models.Room
	messages map[string][]models.Message
	users    map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]models.Room),
		messages: make(map[string][]models.Message),
		users:    make(map[string]models.User),
	}
}

func (s *MemoryStore) FindRoomByName(ctx context.Context, name string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return &room, nil
}

func (s *MemoryStore) FindRoomsByCreator(ctx context.Context, creatorID string) ([]models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := []models.Room{}
	for _, room := range s.rooms {
		if room.CreatorID == creatorID {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (s *MemoryStore) InsertRoom(ctx context.Context, room *models.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.Name]; ok {
		return ErrRoomExists
	}
	room.ID = primitive.NewObjectID()
	s.rooms[room.Name] = *room
	return nil
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[name]; !ok {
		return ErrRoomNotFound
	}
	delete(s.rooms, name)
	return nil
}

func (s *MemoryStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = primitive.NewObjectID()
	s.messages[msg.Room] = append(s.messages[msg.Room], *msg)
	return nil
}

func (s *MemoryStore) DeleteMessagesForRoom(ctx context.Context, room string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.messages[room]))
	delete(s.messages, room)
	return n, nil
}

func (s *MemoryStore) FindRecentMessages(ctx context.Context, room string, limit int64) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[room]
	start := 0
	if limit > 0 && int64(len(all)) > limit {
		start = len(all) - int(limit)
	}
	out := make([]models.Message, len(all)-start)
	copy(out, all[start:])
	return out, nil
}

func (s *MemoryStore) PruneMessages(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int64
	for room, msgs := range s.messages {
		kept := msgs[:0]
		for _, m := range msgs {
			if m.Timestamp.Before(before) {
				pruned++
				continue
			}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			delete(s.messages, room)
			continue
		}
		s.messages[room] = kept
	}
	return pruned, nil
}

func (s *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *MemoryStore) InsertUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return ErrUserExists
	}
	user.ID = primitive.NewObjectID()
	s.users[user.Username] = *user
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close(context.Context) error { return nil }
