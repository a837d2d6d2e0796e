package users

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cert-chain/credential-portal/credential-portal-backend/internal/database"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByWallet(ctx context.Context, wallet string) (*User, error)
	ListByRole(ctx context.Context, role Role) ([]User, error)
	SetBlockchainRegistered(ctx context.Context, id primitive.ObjectID, registered bool) error
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(database.UsersCollection)}
}

func (r *mongoRepository) Create(ctx context.Context, user *User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		return database.Translate(err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var user User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, database.Translate(err)
	}
	return &user, nil
}

func (r *mongoRepository) GetByWallet(ctx context.Context, wallet string) (*User, error) {
	var user User
	if err := r.coll.FindOne(ctx, bson.M{"walletAddress": NormalizeWallet(wallet)}).Decode(&user); err != nil {
		return nil, database.Translate(err)
	}
	return &user, nil
}

func (r *mongoRepository) ListByRole(ctx context.Context, role Role) ([]User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"userType": role}, opts)
	if err != nil {
		return nil, err
	}
	users := []User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoRepository) SetBlockchainRegistered(ctx context.Context, id primitive.ObjectID, registered bool) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isBlockchainRegistered": registered,
		"updatedAt":              time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}
