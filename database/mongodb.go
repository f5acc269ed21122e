package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/arjun7095/Chat-Application/models" // 引入 models 套件

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson" // 引入 bson 套件
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	roomsCollection    = "rooms"
	messagesCollection = "messages"
	usersCollection    = "users"
)

// MongoStore 以 MongoDB 實作 Store
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongoDB 建立並初始化 MongoDB 連線，並建立所需索引
func ConnectMongoDB(ctx context.Context, uri, name string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(name)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Str("module", "database").Str("db", name).Msg("connected to MongoDB")
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	// 房間名稱唯一，避免並發建立同名房間
	if _, err := s.db.Collection(roomsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create rooms index: %w", err)
	}
	if _, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	if _, err := s.db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room", Value: 1}, {Key: "timestamp", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create messages index: %w", err)
	}
	return nil
}

func (s *MongoStore) FindRoomByName(ctx context.Context, name string) (*models.Room, error) {
	var room models.Room
	err := s.db.Collection(roomsCollection).FindOne(ctx, bson.M{"name": name}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *MongoStore) FindRoomsByCreator(ctx context.Context, creatorID string) ([]models.Room, error) {
	cursor, err := s.db.Collection(roomsCollection).Find(ctx,
		bson.M{"creatorId": creatorID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rooms := []models.Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *MongoStore) InsertRoom(ctx context.Context, room *models.Room) error {
	result, err := s.db.Collection(roomsCollection).InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return ErrRoomExists
	}
	if err != nil {
		return err
	}
	room.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) DeleteRoom(ctx context.Context, name string) error {
	res, err := s.db.Collection(roomsCollection).DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// InsertMessage 將新的聊天訊息插入到 MongoDB，並回填 ID
func (s *MongoStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	result, err := s.db.Collection(messagesCollection).InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	msg.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) DeleteMessagesForRoom(ctx context.Context, room string) (int64, error) {
	res, err := s.db.Collection(messagesCollection).DeleteMany(ctx, bson.M{"room": room})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindRecentMessages 獲取指定聊天室最近的歷史訊息
func (s *MongoStore) FindRecentMessages(ctx context.Context, room string, limit int64) ([]models.Message, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)

	cursor, err := s.db.Collection(messagesCollection).Find(ctx, bson.M{"room": room}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	// 查詢為由新到舊，反轉成由舊到新
	slices.Reverse(messages)
	return messages, nil
}

func (s *MongoStore) PruneMessages(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.Collection(messagesCollection).DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) InsertUser(ctx context.Context, user *models.User) error {
	result, err := s.db.Collection(usersCollection).InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	if err != nil {
		return err
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close 關閉 MongoDB 連線
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return err
	}
	log.Info().Str("module", "database").Msg("disconnected from MongoDB")
	return nil
}
