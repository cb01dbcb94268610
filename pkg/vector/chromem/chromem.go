// Package chromem provides an embedded vector driver on chromem-go. It needs
// no external service and can optionally persist to a directory.
package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/papercomputeco/leo/pkg/vector"
)

const defaultCollectionPrefix = "leo"

var kinds = []string{
	vector.KindURL,
	vector.KindChatMessage,
	vector.KindContextURL,
	vector.KindContextChatMessage,
}

// Config holds configuration for the chromem driver.
type Config struct {
	// PersistPath is a directory for the database files. Empty keeps
	// everything in memory.
	PersistPath string

	// Compress gzips persisted files.
	Compress bool

	// CollectionPrefix prefixes every collection name. Defaults to "leo".
	CollectionPrefix string
}

// Driver implements vector.Driver using chromem-go. Each user and kind pair
// gets its own collection, so queries never see another owner's documents.
type Driver struct {
	db     *chromem.DB
	prefix string
	logger *slog.Logger

	// mu serializes collection creation.
	mu sync.Mutex
}

// NewDriver creates a chromem driver.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	prefix := c.CollectionPrefix
	if prefix == "" {
		prefix = defaultCollectionPrefix
	}

	var (
		db  *chromem.DB
		err error
	)
	if c.PersistPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(c.PersistPath, c.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening chromem at %s: %w", vector.ErrConnection, c.PersistPath, err)
		}
	}

	logger.Info("chromem vector driver initialized",
		"persist_path", c.PersistPath,
		"collections", len(db.ListCollections()),
	)

	return &Driver{db: db, prefix: prefix, logger: logger}, nil
}

func (d *Driver) collectionName(userID int64, kind string) string {
	return d.prefix + "_u" + strconv.FormatInt(userID, 10) + "_" + kind
}

func (d *Driver) collection(userID int64, kind string, create bool) (*chromem.Collection, error) {
	name := d.collectionName(userID, kind)
	if col := d.db.GetCollection(name, nil); col != nil || !create {
		return col, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	col, err := d.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", name, err)
	}
	return col, nil
}

// Add stores documents with their embeddings. Existing ids are overwritten.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		col, err := d.collection(doc.UserID, doc.Kind, true)
		if err != nil {
			return err
		}

		err = col.AddDocument(ctx, chromem.Document{
			ID:        doc.ID,
			Metadata:  toMetadata(doc),
			Embedding: doc.Embedding,
			Content:   doc.Text,
		})
		if err != nil {
			return fmt.Errorf("adding document %s: %w", doc.ID, err)
		}
	}

	d.logger.Debug("added documents to chromem", "count", len(docs))
	return nil
}

// Query finds the topK most similar documents matching the filter.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	searchKinds := kinds
	if filter.Kind != "" {
		searchKinds = []string{filter.Kind}
	}

	var results []vector.QueryResult
	for _, kind := range searchKinds {
		col, err := d.collection(filter.UserID, kind, false)
		if err != nil {
			return nil, err
		}
		if col == nil || col.Count() == 0 {
			continue
		}

		// chromem rejects nResults larger than the collection
		matches, err := col.QueryEmbedding(ctx, embedding, min(topK, col.Count()), nil, nil)
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", kind, err)
		}

		for _, m := range matches {
			doc := vector.Document{ID: m.ID, Text: m.Content, Embedding: m.Embedding}
			fromMetadata(&doc, m.Metadata)
			results = append(results, vector.QueryResult{Document: doc, Score: m.Similarity})
		}
	}

	slices.SortStableFunc(results, func(a, b vector.QueryResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Get retrieves documents by their IDs. Unknown IDs are skipped.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cols := d.db.ListCollections()
	var docs []vector.Document
	for _, id := range ids {
		for _, col := range cols {
			found, err := col.GetByID(ctx, id)
			if err != nil {
				// not in this collection
				continue
			}
			doc := vector.Document{ID: found.ID, Text: found.Content, Embedding: found.Embedding}
			fromMetadata(&doc, found.Metadata)
			docs = append(docs, doc)
			break
		}
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	for name, col := range d.db.ListCollections() {
		if err := col.Delete(ctx, nil, nil, ids...); err != nil {
			return fmt.Errorf("deleting from %s: %w", name, err)
		}
	}

	d.logger.Debug("deleted documents from chromem", "count", len(ids))
	return nil
}

// Close is a no-op; persistent databases write through on every change.
func (d *Driver) Close() error {
	return nil
}

func toMetadata(doc vector.Document) map[string]string {
	return map[string]string{
		"user_id":    strconv.FormatInt(doc.UserID, 10),
		"kind":       doc.Kind,
		"source_id":  strconv.FormatInt(doc.SourceID, 10),
		"profile_id": strconv.FormatInt(doc.ProfileID, 10),
	}
}

func fromMetadata(doc *vector.Document, md map[string]string) {
	doc.UserID, _ = strconv.ParseInt(md["user_id"], 10, 64)
	doc.SourceID, _ = strconv.ParseInt(md["source_id"], 10, 64)
	doc.ProfileID, _ = strconv.ParseInt(md["profile_id"], 10, 64)
	doc.Kind = md["kind"]
}
