package source

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

// DefaultMongoCollection holds uploaded rows as {fields: {...}, uploadedBy: ObjectID}.
const DefaultMongoCollection = "datarows"

type mongoOpener struct{}

func (mongoOpener) CanOpen(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "mongodb://") || strings.HasPrefix(lower, "mongodb+srv://")
}

func (mongoOpener) Open(ctx context.Context, target string, opt Options) (*Dataset, error) {
	dbName := opt.MongoDatabase
	if dbName == "" {
		dbName = databaseFromURI(target)
	}
	if dbName == "" {
		return nil, fmt.Errorf("mongo target needs a database (add it to the URI path or set mongo_database)")
	}
	collName := opt.MongoCollection
	if collName == "" {
		collName = DefaultMongoCollection
	}
	filter, err := ownerFilter(opt.MongoOwner)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(target))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opt.Timeout)
		defer cancel()
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Dataset{
		Source: NewMongoRows(client.Database(dbName).Collection(collName), filter),
		Name:   Redact(target) + " " + dbName + "." + collName,
		Kind:   "mongodb",
		close:  func() error { return client.Disconnect(context.Background()) },
	}, nil
}

// databaseFromURI extracts the path segment of a mongodb:// URI.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(strings.ToLower(rest), prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	path, _, _ = strings.Cut(path, "?")
	return path
}

func ownerFilter(owner string) (bson.D, error) {
	if owner == "" {
		return bson.D{}, nil
	}
	oid, err := bson.ObjectIDFromHex(owner)
	if err != nil {
		return nil, fmt.Errorf("invalid mongo owner id %q: %w", owner, err)
	}
	return bson.D{{Key: "uploadedBy", Value: oid}}, nil
}

// rowProjection reads only the requested subkeys of fields.
func rowProjection(fields []string) bson.D {
	proj := bson.D{{Key: "_id", Value: 0}}
	if fields == nil {
		return append(proj, bson.E{Key: "fields", Value: 1})
	}
	for _, f := range fields {
		proj = append(proj, bson.E{Key: "fields." + f, Value: 1})
	}
	return proj
}

// MongoRows reads DataRow documents from one collection.
type MongoRows struct {
	coll   *mongo.Collection
	filter bson.D
}

func NewMongoRows(coll *mongo.Collection, filter bson.D) *MongoRows {
	if filter == nil {
		filter = bson.D{}
	}
	return &MongoRows{coll: coll, filter: filter}
}

func (m *MongoRows) Count(ctx context.Context) (int, error) {
	n, err := m.coll.CountDocuments(ctx, m.filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", m.coll.Name(), err)
	}
	return int(n), nil
}

type dataRow struct {
	Fields bson.M `bson:"fields"`
}

func (m *MongoRows) Fetch(ctx context.Context, req pipeline.PageRequest) ([]pipeline.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	opts := options.Find().
		SetProjection(rowProjection(req.Fields)).
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(req.Offset())).
		SetLimit(int64(req.Limit))
	cur, err := m.coll.Find(ctx, m.filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.coll.Name(), err)
	}
	defer cur.Close(ctx)

	out := []pipeline.Record{}
	for cur.Next(ctx) {
		var row dataRow
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode %s: %w", m.coll.Name(), err)
		}
		out = append(out, bsonRecord(row.Fields))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", m.coll.Name(), err)
	}
	return out, nil
}

func bsonRecord(fields bson.M) pipeline.Record {
	rec := make(pipeline.Record, len(fields))
	for k, v := range fields {
		rec[k] = bsonValue(v)
	}
	return rec
}

// bsonValue maps BSON scalars onto cells. Nested documents and arrays are
// rendered as extended JSON strings.
func bsonValue(v any) pipeline.Value {
	switch x := v.(type) {
	case bson.DateTime:
		return pipeline.FromAny(x.Time())
	case bson.ObjectID:
		return pipeline.String(x.Hex())
	case bson.Decimal128:
		return pipeline.String(x.String())
	case bson.Null, bson.Undefined:
		return pipeline.Null()
	case bson.M, bson.D, bson.A:
		b, err := bson.MarshalExtJSON(bson.M{"v": x}, false, false)
		if err != nil {
			return pipeline.String(fmt.Sprint(x))
		}
		s := strings.TrimSuffix(strings.TrimPrefix(string(b), `{"v":`), "}")
		return pipeline.String(s)
	}
	return pipeline.FromAny(v)
}
