package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"loanbroker/internal/application/models"
	"loanbroker/internal/emi"
	id "loanbroker/pkg/domain"
	"loanbroker/pkg/platform/sentinel"
)

// CollectionName is the collection holding application documents.
const CollectionName = "applications"

// MongoStore persists one document per application. Updates are guarded by
// the version field.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the reference, owner and queue indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "queue_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure application indexes: %w", err)
	}
	return nil
}

type estimateDocument struct {
	Installment   float64 `bson:"installment"`
	TotalPayment  float64 `bson:"total_payment"`
	TotalInterest float64 `bson:"total_interest"`
}

type applicationDocument struct {
	ID          string             `bson:"_id"`
	Reference   string             `bson:"reference"`
	UserID      string             `bson:"user_id"`
	LoanType    string             `bson:"loan_type"`
	Status      string             `bson:"status"`
	Applicant   *models.Applicant  `bson:"applicant,omitempty"`
	Employment  *models.Employment `bson:"employment,omitempty"`
	Loan        *models.LoanTerms  `bson:"loan,omitempty"`
	Details     map[string]string  `bson:"details,omitempty"`
	Estimate    *estimateDocument  `bson:"estimate,omitempty"`
	ReviewNote  string             `bson:"review_note,omitempty"`
	ReviewedBy  string             `bson:"reviewed_by,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	SubmittedAt *time.Time         `bson:"submitted_at,omitempty"`
	ReviewedAt  *time.Time         `bson:"reviewed_at,omitempty"`
	QueueAt     time.Time          `bson:"queue_at"`
	Version     int                `bson:"version"`
}

func toDocument(app *models.Application) applicationDocument {
	doc := applicationDocument{
		ID:          app.ID.String(),
		Reference:   app.Reference,
		UserID:      app.UserID.String(),
		LoanType:    string(app.LoanType),
		Status:      string(app.Status),
		Applicant:   app.Applicant,
		Employment:  app.Employment,
		Loan:        app.Loan,
		Details:     app.Details,
		ReviewNote:  app.ReviewNote,
		CreatedAt:   app.CreatedAt,
		UpdatedAt:   app.UpdatedAt,
		SubmittedAt: app.SubmittedAt,
		ReviewedAt:  app.ReviewedAt,
		QueueAt:     queueTime(app),
		Version:     app.Version,
	}
	if app.Estimate != nil {
		doc.Estimate = &estimateDocument{
			Installment:   app.Estimate.Installment,
			TotalPayment:  app.Estimate.TotalPayment,
			TotalInterest: app.Estimate.TotalInterest,
		}
	}
	if app.ReviewedBy != nil {
		doc.ReviewedBy = app.ReviewedBy.String()
	}
	return doc
}

func (d applicationDocument) toModel() (*models.Application, error) {
	appID, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode application id: %w", err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}
	app := &models.Application{
		ID:          id.ApplicationID(appID),
		Reference:   d.Reference,
		UserID:      id.UserID(userID),
		LoanType:    id.LoanType(d.LoanType),
		Status:      models.Status(d.Status),
		Applicant:   d.Applicant,
		Employment:  d.Employment,
		Loan:        d.Loan,
		Details:     d.Details,
		ReviewNote:  d.ReviewNote,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		SubmittedAt: utcPtr(d.SubmittedAt),
		ReviewedAt:  utcPtr(d.ReviewedAt),
		Version:     d.Version,
	}
	if d.Estimate != nil {
		app.Estimate = &emi.Result{
			Installment:   d.Estimate.Installment,
			TotalPayment:  d.Estimate.TotalPayment,
			TotalInterest: d.Estimate.TotalInterest,
		}
	}
	if d.ReviewedBy != "" {
		reviewer, err := uuid.Parse(d.ReviewedBy)
		if err != nil {
			return nil, fmt.Errorf("decode reviewer id: %w", err)
		}
		rid := id.UserID(reviewer)
		app.ReviewedBy = &rid
	}
	return app, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func (s *MongoStore) Create(ctx context.Context, app *models.Application) error {
	if _, err := s.coll.InsertOne(ctx, toDocument(app)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	var doc applicationDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": appID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return doc.toModel()
}

func (s *MongoStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("list applications by user: %w", err)
	}
	return decodeAll(ctx, cur)
}

func (s *MongoStore) List(ctx context.Context, filter models.ReviewFilter) ([]*models.Application, int, error) {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if filter.LoanType != "" {
		query["loan_type"] = string(filter.LoanType)
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "queue_at", Value: 1}, {Key: "reference", Value: 1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	apps, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return apps, int(total), nil
}

func (s *MongoStore) Update(ctx context.Context, app *models.Application) error {
	res, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": app.ID.String(), "version": app.Version - 1},
		toDocument(app),
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": app.ID.String()})
	if err != nil {
		return fmt.Errorf("check application: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrStale
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]*models.Application, error) {
	defer cur.Close(ctx)

	apps := []*models.Application{}
	for cur.Next(ctx) {
		var doc applicationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode application: %w", err)
		}
		app, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}
