// Package mongo stores built business summaries, one document per
// (business_id, version).
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"opinion_mining/internal/domain"
)

const summariesColl = "summaries"

// summaryDoc is the stored shape: the served summary plus bookkeeping.
type summaryDoc struct {
	domain.BusinessSummary `bson:",inline"`
	UpdatedAt              time.Time `bson:"updated_at"`
}

type Repo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func New(db *mongo.Database) *Repo {
	return &Repo{coll: db.Collection(summariesColl), now: time.Now}
}

// Connect dials uri and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "business_id", Value: 1}, {Key: "version", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	})
	return err
}

// SaveSummary replaces any previous summary of the same business and version.
func (r *Repo) SaveSummary(ctx context.Context, s domain.BusinessSummary) error {
	doc := summaryDoc{BusinessSummary: s, UpdatedAt: r.now().UTC()}
	filter := bson.D{{Key: "business_id", Value: s.BusinessID}, {Key: "version", Value: s.Version}}
	_, err := r.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *Repo) GetSummary(ctx context.Context, businessID, version string) (domain.BusinessSummary, error) {
	filter := bson.D{{Key: "business_id", Value: businessID}}
	if version != "" {
		filter = append(filter, bson.E{Key: "version", Value: version})
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	var doc summaryDoc
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.BusinessSummary{}, domain.ErrNotFound
		}
		return domain.BusinessSummary{}, err
	}
	return doc.BusinessSummary, nil
}

// ListSummaries returns the most recently updated summaries without their
// aspect payloads.
func (r *Repo) ListSummaries(ctx context.Context, limit int) ([]domain.SummaryRef, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{
			{Key: "business_id", Value: 1},
			{Key: "version", Value: 1},
			{Key: "business_name", Value: 1},
			{Key: "updated_at", Value: 1},
		})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.SummaryRef{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
