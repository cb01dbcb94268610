// Package qdrant provides a vector driver for a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/leo/pkg/vector"
)

const (
	defaultCollectionName = "leo"
	defaultPort           = 6334

	payloadDocID     = "doc_id"
	payloadUserID    = "user_id"
	payloadKind      = "kind"
	payloadSourceID  = "source_id"
	payloadProfileID = "profile_id"
	payloadText      = "text"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Addr is the gRPC address, "host" or "host:port". The port defaults
	// to 6334.
	Addr string

	APIKey string
	UseTLS bool

	// CollectionName defaults to "leo".
	CollectionName string

	// Dimensions sizes the collection when it is created.
	Dimensions uint
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and creates the collection and payload
// indexes when missing.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Addr == "" {
		return nil, errors.New("qdrant address is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}
	if c.CollectionName == "" {
		c.CollectionName = defaultCollectionName
	}

	host, port, err := splitAddr(c.Addr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	d := &Driver{client: client, collection: c.CollectionName, logger: logger}
	if err := d.ensureCollection(ctx, c.Dimensions); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to qdrant",
		"addr", c.Addr,
		"collection", c.CollectionName,
		"dimensions", c.Dimensions,
	)
	return d, nil
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// no port given
		return addr, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}

func (d *Driver) ensureCollection(ctx context.Context, dimensions uint) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %w", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", d.collection, err)
	}

	for field, fieldType := range map[string]qdrant.FieldType{
		payloadUserID: qdrant.FieldType_FieldTypeInteger,
		payloadKind:   qdrant.FieldType_FieldTypeKeyword,
	} {
		_, err := d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: d.collection,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
		})
		if err != nil {
			return fmt.Errorf("indexing payload field %s: %w", field, err)
		}
	}
	return nil
}

// pointID maps a document id onto the UUID space Qdrant accepts.
func pointID(docID string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String())
}

// Add stores documents with their embeddings. Existing ids are overwritten.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadDocID:     doc.ID,
				payloadUserID:    doc.UserID,
				payloadKind:      doc.Kind,
				payloadSourceID:  doc.SourceID,
				payloadProfileID: doc.ProfileID,
				payloadText:      doc.Text,
			}),
		}
	}

	wait := true
	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant", "count", len(docs))
	return nil
}

// Query finds the topK most similar documents matching the filter.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	must := []*qdrant.Condition{qdrant.NewMatchInt(payloadUserID, filter.UserID)}
	if filter.Kind != "" {
		must = append(must, qdrant.NewMatch(payloadKind, filter.Kind))
	}

	limit := uint64(topK)
	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         &qdrant.Filter{Must: must},
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Document: fromPayload(p.GetPayload()),
			Score:    p.GetScore(),
		})
	}
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := fromPayload(p.GetPayload())
		doc.Embedding = p.GetVectors().GetVector().GetData()
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	wait := true
	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func fromPayload(payload map[string]*qdrant.Value) vector.Document {
	return vector.Document{
		ID:        payload[payloadDocID].GetStringValue(),
		UserID:    payload[payloadUserID].GetIntegerValue(),
		Kind:      payload[payloadKind].GetStringValue(),
		SourceID:  payload[payloadSourceID].GetIntegerValue(),
		ProfileID: payload[payloadProfileID].GetIntegerValue(),
		Text:      payload[payloadText].GetStringValue(),
	}
}
