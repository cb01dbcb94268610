// Package indexed decorates a storage.Driver with a vector search index.
// Writes go to the wrapped driver first; the index is then updated in the
// background, so a slow or failing vector store never fails a write.
package indexed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/leo/pkg/embeddings"
	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
	"github.com/papercomputeco/leo/pkg/vector"
	"github.com/papercomputeco/leo/pkg/worker"
)

// Index operations reported in storage.IndexWriteError.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Config configures the decorator.
type Config struct {
	// Vectors stores the mirrored documents. Required.
	Vectors vector.Driver

	// Embedder turns document text into vectors. Required.
	Embedder embeddings.Embedder

	// Workers, QueueSize, MaxRetries and Timeout tune the background pool.
	// Zero values use the pool defaults.
	Workers    uint
	QueueSize  uint
	MaxRetries uint
	Timeout    time.Duration

	// OnIndexError is called for every index write that was dropped or
	// failed after retries.
	OnIndexError func(storage.IndexWriteError)

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Driver implements storage.Driver. Reads and non-indexed writes go straight
// to the embedded driver.
type Driver struct {
	storage.Driver

	vectors  vector.Driver
	embedder embeddings.Embedder
	pool     *worker.Pool
	logger   *slog.Logger
	onError  func(storage.IndexWriteError)
}

// New wraps inner with a vector index.
func New(inner storage.Driver, c Config) (*Driver, error) {
	if inner == nil {
		return nil, errors.New("inner storage driver is required")
	}
	if c.Vectors == nil {
		return nil, errors.New("vector driver is required")
	}
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	d := &Driver{
		Driver:   inner,
		vectors:  c.Vectors,
		embedder: c.Embedder,
		logger:   log,
		onError:  c.OnIndexError,
	}

	pool, err := worker.NewPool(&worker.Config{
		NumWorkers: c.Workers,
		QueueSize:  c.QueueSize,
		MaxRetries: c.MaxRetries,
		Timeout:    c.Timeout,
		OnFailure:  d.reportFailure,
		Logger:     log.With("component", "indexer"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating index worker pool: %w", err)
	}
	d.pool = pool

	return d, nil
}

// reportFailure turns a failed pool job into an IndexWriteError.
func (d *Driver) reportFailure(job worker.Job, err error) {
	op, docID, _ := strings.Cut(job.Name, " ")
	iwe := storage.IndexWriteError{Op: op, DocID: docID, Err: err}

	d.logger.Warn("search index write failed", "op", iwe.Op, "doc_id", iwe.DocID, "error", err)
	if d.onError != nil {
		d.onError(iwe)
	}
}

// upsert queues embedding and storing doc. doc.Embedding is filled by the job.
func (d *Driver) upsert(doc vector.Document) {
	if strings.TrimSpace(doc.Text) == "" {
		return
	}

	d.pool.Enqueue(worker.Job{
		Name: OpUpsert + " " + doc.ID,
		Key:  doc.ID,
		Run: func(ctx context.Context) error {
			emb, err := d.embedder.Embed(ctx, doc.Text)
			if err != nil {
				return err
			}
			doc.Embedding = emb
			return d.vectors.Add(ctx, []vector.Document{doc})
		},
	})
}

// remove queues deleting the document with id.
func (d *Driver) remove(id string) {
	d.pool.Enqueue(worker.Job{
		Name: OpDelete + " " + id,
		Key:  id,
		Run: func(ctx context.Context) error {
			return d.vectors.Delete(ctx, []string{id})
		},
	})
}

func urlDocument(kind string, u *model.URL, profileID int64) vector.Document {
	parts := []string{u.URL}
	for _, s := range []*string{u.Title, u.Notes, u.Content} {
		if s != nil && *s != "" {
			parts = append(parts, *s)
		}
	}
	if len(u.Analysis) > 0 && string(u.Analysis) != "null" {
		parts = append(parts, string(u.Analysis))
	}

	return vector.Document{
		ID:        vector.DocID(kind, u.ID),
		UserID:    u.UserID,
		Kind:      kind,
		SourceID:  u.ID,
		ProfileID: profileID,
		Text:      strings.Join(parts, "\n"),
	}
}

func messageDocument(kind string, m *model.ChatMessage, profileID int64) vector.Document {
	return vector.Document{
		ID:        vector.DocID(kind, m.ID),
		UserID:    m.UserID,
		Kind:      kind,
		SourceID:  m.ID,
		ProfileID: profileID,
		Text:      m.Content,
	}
}

// CreateURL saves the URL and indexes it.
func (d *Driver) CreateURL(ctx context.Context, userID int64, in model.NewURL) (*model.URL, error) {
	u, err := d.Driver.CreateURL(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	d.upsert(urlDocument(vector.KindURL, u, 0))
	return u, nil
}

// DeleteURL removes the URL and its indexed document.
func (d *Driver) DeleteURL(ctx context.Context, id, userID int64) (bool, error) {
	deleted, err := d.Driver.DeleteURL(ctx, id, userID)
	if err != nil || !deleted {
		return deleted, err
	}
	d.remove(vector.DocID(vector.KindURL, id))
	return true, nil
}

// UpdateURLAnalysis updates the analysis and re-indexes the URL.
func (d *Driver) UpdateURLAnalysis(ctx context.Context, id, userID int64, analysis json.RawMessage) (*model.URL, error) {
	u, err := d.Driver.UpdateURLAnalysis(ctx, id, userID, analysis)
	if err != nil {
		return nil, err
	}
	d.upsert(urlDocument(vector.KindURL, u, 0))
	return u, nil
}

// UpdateURLContent updates the content and re-indexes the URL.
func (d *Driver) UpdateURLContent(ctx context.Context, id, userID int64, content string) (*model.URL, error) {
	u, err := d.Driver.UpdateURLContent(ctx, id, userID, content)
	if err != nil {
		return nil, err
	}
	d.upsert(urlDocument(vector.KindURL, u, 0))
	return u, nil
}

// CreateChatMessage appends the message and indexes it.
func (d *Driver) CreateChatMessage(ctx context.Context, userID int64, in model.NewChatMessage) (*model.ChatMessage, error) {
	m, err := d.Driver.CreateChatMessage(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	d.upsert(messageDocument(vector.KindChatMessage, m, 0))
	return m, nil
}

// ClearChatHistory clears the history and removes the indexed messages.
func (d *Driver) ClearChatHistory(ctx context.Context, userID int64) error {
	// A message created between the listing and the clear keeps its index
	// document. Search never returns it and prunes it when it comes up.
	messages, err := d.Driver.GetChatMessages(ctx, userID)
	if err != nil {
		return err
	}

	if err := d.Driver.ClearChatHistory(ctx, userID); err != nil {
		return err
	}

	for _, m := range messages {
		d.remove(vector.DocID(vector.KindChatMessage, m.ID))
	}
	return nil
}

// CreateContextURL saves the profile URL and indexes it.
func (d *Driver) CreateContextURL(ctx context.Context, userID, profileID int64, in model.NewURL) (*model.ContextURL, error) {
	u, err := d.Driver.CreateContextURL(ctx, userID, profileID, in)
	if err != nil {
		return nil, err
	}
	d.upsert(urlDocument(vector.KindContextURL, &u.URL, u.ProfileID))
	return u, nil
}

// CreateContextChatMessage appends the profile message and indexes it.
func (d *Driver) CreateContextChatMessage(ctx context.Context, userID, profileID int64, in model.NewChatMessage) (*model.ContextChatMessage, error) {
	m, err := d.Driver.CreateContextChatMessage(ctx, userID, profileID, in)
	if err != nil {
		return nil, err
	}
	d.upsert(messageDocument(vector.KindContextChatMessage, &m.ChatMessage, m.ProfileID))
	return m, nil
}

// MigrateDataToContext copies unscoped rows into the profile and indexes the
// profile's rows when anything was copied.
func (d *Driver) MigrateDataToContext(ctx context.Context, userID, profileID int64) (model.ContextCounts, error) {
	counts, err := d.Driver.MigrateDataToContext(ctx, userID, profileID)
	if err != nil || counts.URLs+counts.Messages == 0 {
		return counts, err
	}

	// Upserts are idempotent, so re-indexing rows copied earlier is harmless.
	urls, err := d.Driver.GetContextURLs(ctx, userID, profileID)
	if err != nil {
		d.logger.Warn("listing migrated urls for indexing", "user_id", userID, "profile_id", profileID, "error", err)
		return counts, nil
	}
	for _, u := range urls {
		d.upsert(urlDocument(vector.KindContextURL, &u.URL, u.ProfileID))
	}

	messages, err := d.Driver.GetContextChatMessages(ctx, userID, profileID)
	if err != nil {
		d.logger.Warn("listing migrated messages for indexing", "user_id", userID, "profile_id", profileID, "error", err)
		return counts, nil
	}
	for _, m := range messages {
		d.upsert(messageDocument(vector.KindContextChatMessage, &m.ChatMessage, m.ProfileID))
	}

	return counts, nil
}

// Close drains pending index writes, then closes the vector driver, the
// embedder and the wrapped driver.
func (d *Driver) Close() error {
	d.pool.Close()
	return errors.Join(
		d.vectors.Close(),
		d.embedder.Close(),
		d.Driver.Close(),
	)
}
