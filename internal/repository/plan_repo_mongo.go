package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qs3c/fit_go_server/internal/model"
)

const planCollection = "workout_plans"

// MongoPlanRepository 把训练计划按文档存进 MongoDB
type MongoPlanRepository struct {
	coll *mongo.Collection
}

func NewMongoPlanRepository(db *mongo.Database) *MongoPlanRepository {
	return &MongoPlanRepository{coll: db.Collection(planCollection)}
}

// EnsureIndexes 建立 user_id 唯一索引
func (r *MongoPlanRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoPlanRepository) Upsert(ctx context.Context, plan *model.WorkoutPlan) error {
	now := time.Now().UTC()
	plan.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"items":      plan.Items,
			"start_date": plan.StartDate,
			"end_date":   plan.EndDate,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"user_id":    plan.UserID,
			"created_at": now,
		},
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"user_id": plan.UserID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *MongoPlanRepository) GetByUserID(ctx context.Context, userID int64) (*model.WorkoutPlan, error) {
	var plan model.WorkoutPlan
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *MongoPlanRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
