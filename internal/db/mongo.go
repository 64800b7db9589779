package db

import (
	"context"
	"fmt"
	"time"

	"bill_spider/internal/config"
	"bill_spider/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	client  *mongo.Client
	bills   *mongo.Collection
	history *mongo.Collection
}

// billDocument is a BillRecord keyed by its crawl key.
type billDocument struct {
	Key               string `bson:"_id"`
	models.BillRecord `bson:",inline"`
}

func NewMongoDB(cfg config.DBConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	d := &MongoDB{
		client:  client,
		bills:   database.Collection(collectionName(cfg.Collections.Bills, "bills")),
		history: database.Collection(collectionName(cfg.Collections.History, "crawl_history")),
	}

	if err := d.createIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("can't create indices: %w", err)
	}

	return d, nil
}

func collectionName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func (d *MongoDB) createIndexes(ctx context.Context) error {
	_, err := d.bills.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "session", Value: 1},
			{Key: "chamber", Value: 1},
			{Key: "bill_number", Value: 1},
		},
	})
	return err
}

func (d *MongoDB) Load(ctx context.Context) (models.BillSet, error) {
	cursor, err := d.bills.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find bills: %w", err)
	}
	defer cursor.Close(ctx)

	bills := models.BillSet{}
	for cursor.Next(ctx) {
		var doc billDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode bill: %w", err)
		}
		record := doc.BillRecord
		bills[doc.Key] = &record
	}
	return bills, cursor.Err()
}

// Save upserts every bill, then deletes documents whose key is not in bills.
func (d *MongoDB) Save(ctx context.Context, bills models.BillSet) error {
	keys := make([]string, 0, len(bills))
	writes := make([]mongo.WriteModel, 0, len(bills))
	for key, b := range bills {
		keys = append(keys, key)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": key}).
			SetReplacement(billDocument{Key: key, BillRecord: *b}).
			SetUpsert(true))
	}

	if len(writes) > 0 {
		if _, err := d.bills.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("upsert bills: %w", err)
		}
	}

	if _, err := d.bills.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": keys}}); err != nil {
		return fmt.Errorf("prune bills: %w", err)
	}
	return nil
}

func (d *MongoDB) SaveRun(ctx context.Context, run *models.CrawlRun) error {
	_, err := d.history.InsertOne(ctx, run)
	return err
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}
