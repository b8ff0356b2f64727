package repo

import (
	"context"
	"errors"
	"fmt"

	"homehub/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDeviceStore — хранилище устройств в коллекции MongoDB (по умолчанию home_devices).
// Реле лежат внутри документа в массиве equipments.
type MongoDeviceStore struct {
	coll *mongo.Collection
}

func NewMongoDeviceStore(coll *mongo.Collection) *MongoDeviceStore {
	return &MongoDeviceStore{coll: coll}
}

// InsertDevice вставляет документ и заново создаёт индекс по devices_id (операция идемпотентна).
func (s *MongoDeviceStore) InsertDevice(ctx context.Context, d *models.Device) (string, error) {
	res, err := s.coll.InsertOne(ctx, d)
	if err != nil {
		return "", fmt.Errorf("insert device %s: %w", d.DevicesID, err)
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (s *MongoDeviceStore) FindDeviceByID(ctx context.Context, devicesID string) (*models.Device, error) {
	var d models.Device
	err := s.coll.FindOne(ctx, bson.M{"devices_id": devicesID}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("find device %s: %w", devicesID, err)
	}
	return &d, nil
}

// UpdateEquipmentState — один updateOne: фильтр по devices_id и eqp_no в массиве,
// позиционный $set меняет eqp_state именно найденного реле.
func (s *MongoDeviceStore) UpdateEquipmentState(ctx context.Context, devicesID, eqpNo string, state any) (bool, error) {
	filter := bson.M{"devices_id": devicesID, "equipments.eqp_no": eqpNo}
	update := bson.M{"$set": bson.M{"equipments.$.eqp_state": state}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update equipment %s/%s: %w", devicesID, eqpNo, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoDeviceStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "devices_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create devices_id index: %w", err)
	}
	return nil
}

func (s *MongoDeviceStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}
