package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voxlead/server/domain/entities"
	"github.com/voxlead/server/domain/repositories"
)

type LeadRepository struct {
	collection *mongo.Collection
}

// NewLeadRepository creates a new MongoDB lead repository
func NewLeadRepository(db *mongo.Database) repositories.LeadRepository {
	return &LeadRepository{
		collection: db.Collection("leads"),
	}
}

// Create implements repositories.LeadRepository
func (r *LeadRepository) Create(ctx context.Context, lead *entities.Lead) error {
	if lead == nil {
		return errors.New("lead cannot be nil")
	}

	if err := lead.Validate(); err != nil {
		return err
	}

	if lead.CapturedAt.IsZero() {
		lead.CapturedAt = time.Now()
	}

	doc := bson.M{
		"session_id":  lead.SessionID,
		"name":        lead.Name,
		"email":       lead.Email,
		"phone":       lead.Phone,
		"interest":    lead.Interest,
		"summary":     lead.Summary,
		"captured_at": lead.CapturedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		lead.ID = oid.Hex()
	}

	return nil
}

// List implements repositories.LeadRepository
func (r *LeadRepository) List(ctx context.Context) ([]*entities.Lead, error) {
	opts := options.Find().SetSort(bson.M{"captured_at": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer cursor.Close(ctx)

	var leads []*entities.Lead
	for cursor.Next(ctx) {
		var doc struct {
			ID         primitive.ObjectID `bson:"_id"`
			SessionID  string             `bson:"session_id"`
			Name       string             `bson:"name"`
			Email      string             `bson:"email"`
			Phone      string             `bson:"phone"`
			Interest   string             `bson:"interest"`
			Summary    string             `bson:"summary"`
			CapturedAt time.Time          `bson:"captured_at"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode lead: %w", err)
		}

		leads = append(leads, &entities.Lead{
			ID:         doc.ID.Hex(),
			SessionID:  doc.SessionID,
			Name:       doc.Name,
			Email:      doc.Email,
			Phone:      doc.Phone,
			Interest:   doc.Interest,
			Summary:    doc.Summary,
			CapturedAt: doc.CapturedAt,
		})
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while listing leads: %w", err)
	}

	return leads, nil
}
