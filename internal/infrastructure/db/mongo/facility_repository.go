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

const facilitiesCollection = "facilities"

// FacilityRepository stores facilities with their tanks embedded in the same
// document, so tank edits are a single replace.
type FacilityRepository struct {
	coll *mongo.Collection
}

func NewFacilityRepository(db *mongo.Database) *FacilityRepository {
	return &FacilityRepository{coll: db.Collection(facilitiesCollection)}
}

func (r *FacilityRepository) Create(ctx context.Context, f *domain.Facility) (*domain.Facility, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	created := *f
	created.ID = uuid.NewString()
	if _, err := r.coll.InsertOne(ctx, created); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateFacility
		}
		return nil, fmt.Errorf("insert facility: %w", err)
	}
	return &created, nil
}

func (r *FacilityRepository) FindByID(ctx context.Context, id string) (*domain.Facility, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var f domain.Facility
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFacilityNotFound
		}
		return nil, fmt.Errorf("find facility: %w", err)
	}
	return &f, nil
}

func (r *FacilityRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Facility, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	defer cur.Close(ctx)

	var facilities []*domain.Facility
	for cur.Next(ctx) {
		var f domain.Facility
		if err := cur.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode facility: %w", err)
		}
		facilities = append(facilities, &f)
	}
	return facilities, cur.Err()
}

func (r *FacilityRepository) Update(ctx context.Context, f *domain.Facility) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": f.ID}, f)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateFacility
		}
		return fmt.Errorf("update facility: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrFacilityNotFound
	}
	return nil
}

func (r *FacilityRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete facility: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrFacilityNotFound
	}
	return nil
}

// EnsureIndexes creates the unique facility name index.
func (r *FacilityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
