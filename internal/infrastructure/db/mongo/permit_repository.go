package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/facilityops/facility-system/internal/core/domain"
)

const (
	permitsCollection = "permits"
	historyCollection = "permit_history"
)

type PermitRepository struct {
	permits *mongo.Collection
	history *mongo.Collection
}

func NewPermitRepository(db *mongo.Database) *PermitRepository {
	return &PermitRepository{
		permits: db.Collection(permitsCollection),
		history: db.Collection(historyCollection),
	}
}

func (r *PermitRepository) Create(ctx context.Context, p *domain.Permit) (*domain.Permit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	created := *p
	created.ID = uuid.NewString()
	if _, err := r.permits.InsertOne(ctx, created); err != nil {
		return nil, fmt.Errorf("insert permit: %w", err)
	}
	return &created, nil
}

func (r *PermitRepository) FindByID(ctx context.Context, id string) (*domain.Permit, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByNumber returns the active permit carrying the number. Superseded
// permits keep their number, so the lookup is scoped to active records.
func (r *PermitRepository) FindByNumber(ctx context.Context, number string) (*domain.Permit, error) {
	return r.findOne(ctx, bson.M{"number": number, "is_active": true})
}

func (r *PermitRepository) findOne(ctx context.Context, filter bson.M) (*domain.Permit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.Permit
	if err := r.permits.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPermitNotFound
		}
		return nil, fmt.Errorf("find permit: %w", err)
	}
	return &p, nil
}

// List returns permits, newest first. When facilityID is non-empty the
// result is scoped to that facility.
func (r *PermitRepository) List(ctx context.Context, facilityID string) ([]*domain.Permit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if facilityID != "" {
		filter["facility_id"] = facilityID
	}

	cur, err := r.permits.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list permits: %w", err)
	}
	defer cur.Close(ctx)

	var permits []*domain.Permit
	for cur.Next(ctx) {
		var p domain.Permit
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode permit: %w", err)
		}
		permits = append(permits, &p)
	}
	return permits, cur.Err()
}

func (r *PermitRepository) Update(ctx context.Context, p *domain.Permit) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.permits.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("update permit: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPermitNotFound
	}
	return nil
}

// Delete permanently removes a permit and its history. Supersession keeps
// records; an explicit delete is the one path that destroys them.
func (r *PermitRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.permits.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete permit: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrPermitNotFound
	}
	if _, err := r.history.DeleteMany(ctx, bson.M{"permit_id": id}); err != nil {
		return fmt.Errorf("delete permit history: %w", err)
	}
	return nil
}

func (r *PermitRepository) AppendHistory(ctx context.Context, entry *domain.PermitHistoryEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := *entry
	doc.ID = uuid.NewString()
	if _, err := r.history.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// History returns the audit trail for a permit, newest first.
func (r *PermitRepository) History(ctx context.Context, permitID string) ([]*domain.PermitHistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.history.Find(ctx, bson.M{"permit_id": permitID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer cur.Close(ctx)

	var entries []*domain.PermitHistoryEntry
	for cur.Next(ctx) {
		var e domain.PermitHistoryEntry
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, cur.Err()
}

// EnsureIndexes creates the indexes used by list and history queries.
func (r *PermitRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	// The number index is not unique: a renewal reuses the number while the
	// superseded record keeps it. The service enforces uniqueness among
	// active permits.
	permitIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "number", Value: 1}}},
		{Keys: bson.D{{Key: "facility_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := r.permits.Indexes().CreateMany(ctx, permitIndexes); err != nil {
		return err
	}

	historyIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "permit_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := r.history.Indexes().CreateMany(ctx, historyIndexes)
	return err
}
