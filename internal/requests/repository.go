package requests

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cert-chain/credential-portal/credential-portal-backend/internal/database"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
)

type Repository interface {
	Create(ctx context.Context, req *CertificateRequest) error
	// GetForOrganization returns database.ErrNotFound unless id exists and targets orgID.
	GetForOrganization(ctx context.Context, id, orgID primitive.ObjectID) (*CertificateRequest, error)
	GetDetails(ctx context.Context, id primitive.ObjectID) (*RequestDetails, error)
	ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]RequestDetails, error)
	// ListByStudent filters by status unless status is empty.
	ListByStudent(ctx context.Context, studentID primitive.ObjectID, status Status) ([]RequestDetails, error)
	// UpdateDecision sets status and remarks in one write unless the request is already issued.
	UpdateDecision(ctx context.Context, id, orgID primitive.ObjectID, status Status, remarks string) error
	// MarkIssued moves an accepted request to issued in one write.
	MarkIssued(ctx context.Context, id, orgID primitive.ObjectID, ipfsHash string, issuedAt time.Time) error
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(database.RequestsCollection)}
}

// detailsDoc is the shape produced by the lookup pipeline.
type detailsDoc struct {
	CertificateRequest `bson:",inline"`
	StudentRef         *users.Summary `bson:"studentRef,omitempty"`
	OrganizationRef    *users.Summary `bson:"organizationRef,omitempty"`
}

func (d detailsDoc) details() RequestDetails {
	return RequestDetails{CertificateRequest: d.CertificateRequest, Student: d.StudentRef, Organization: d.OrganizationRef}
}

func (r *mongoRepository) Create(ctx context.Context, req *CertificateRequest) error {
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, req)
	if err != nil {
		return database.Translate(err)
	}
	req.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoRepository) GetForOrganization(ctx context.Context, id, orgID primitive.ObjectID) (*CertificateRequest, error) {
	var req CertificateRequest
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "organization": orgID}).Decode(&req)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &req, nil
}

func (r *mongoRepository) GetDetails(ctx context.Context, id primitive.ObjectID) (*RequestDetails, error) {
	list, err := r.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, database.ErrNotFound
	}
	return &list[0], nil
}

func (r *mongoRepository) ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]RequestDetails, error) {
	return r.aggregate(ctx, bson.M{"organization": orgID})
}

func (r *mongoRepository) ListByStudent(ctx context.Context, studentID primitive.ObjectID, status Status) ([]RequestDetails, error) {
	filter := bson.M{"student": studentID}
	if status != "" {
		filter["status"] = status
	}
	return r.aggregate(ctx, filter)
}

func (r *mongoRepository) UpdateDecision(ctx context.Context, id, orgID primitive.ObjectID, status Status, remarks string) error {
	filter := bson.M{
		"_id":          id,
		"organization": orgID,
		"status":       bson.M{"$ne": StatusIssued},
	}
	update := bson.M{"$set": bson.M{
		"status":    status,
		"remarks":   remarks,
		"updatedAt": time.Now().UTC(),
	}}
	return r.updateOne(ctx, filter, update)
}

func (r *mongoRepository) MarkIssued(ctx context.Context, id, orgID primitive.ObjectID, ipfsHash string, issuedAt time.Time) error {
	filter := bson.M{
		"_id":          id,
		"organization": orgID,
		"status":       StatusAccepted,
	}
	update := bson.M{"$set": bson.M{
		"status":    StatusIssued,
		"ipfsHash":  ipfsHash,
		"issuedAt":  issuedAt.UTC(),
		"updatedAt": time.Now().UTC(),
	}}
	return r.updateOne(ctx, filter, update)
}

func (r *mongoRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return database.Translate(err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *mongoRepository) aggregate(ctx context.Context, match bson.M) ([]RequestDetails, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		lookupStage("student", "studentRef"),
		lookupStage("organization", "organizationRef"),
		{{Key: "$set", Value: bson.D{
			{Key: "studentRef", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$studentRef", 0}}}},
			{Key: "organizationRef", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$organizationRef", 0}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "studentRef.password", Value: 0},
			{Key: "organizationRef.password", Value: 0},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline, options.Aggregate())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []RequestDetails{}
	for cur.Next(ctx) {
		var doc detailsDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.details())
	}
	return out, cur.Err()
}

func lookupStage(localField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: database.UsersCollection},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: as},
	}}}
}
