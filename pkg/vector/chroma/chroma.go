// Package chroma provides a Chroma vector store driver over the Chroma v2
// REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/leo/pkg/vector"
)

const (
	defaultCollectionName = "leo"
	defaultTenant         = "default_tenant"
	defaultDatabase       = "default_database"

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second

	// tokenHeader carries the API key for Chroma Cloud and token-auth servers.
	tokenHeader = "x-chroma-token"
)

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// APIKey is sent as the x-chroma-token header when set.
	APIKey string

	// Tenant and Database select the namespace. Both default to Chroma's
	// defaults.
	Tenant   string
	Database string

	// CollectionName is the name of the collection to use.
	// Defaults to "leo" if not specified.
	CollectionName string

	// MaxRetries bounds connection attempts during startup.
	MaxRetries int

	// RetryDelay is the first backoff delay. It doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Driver implements vector.Driver using Chroma.
type Driver struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	collectionID string
	logger       *slog.Logger
}

// NewDriver creates a new Chroma vector driver. The collection is created if
// it does not exist, retrying while the server is still starting.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}
	if c.CollectionName == "" {
		c.CollectionName = defaultCollectionName
	}
	if c.Tenant == "" {
		c.Tenant = defaultTenant
	}
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = defaultMaxRetryDelay
	}

	d := &Driver{
		client: &http.Client{Timeout: 30 * time.Second},
		baseURL: fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s",
			strings.TrimSuffix(c.URL, "/"),
			url.PathEscape(c.Tenant),
			url.PathEscape(c.Database),
		),
		apiKey: c.APIKey,
		logger: logger,
	}

	ctx := context.Background()
	delay := c.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		id, err := d.getOrCreateCollection(ctx, c.CollectionName)
		if err == nil {
			d.collectionID = id
			logger.Info("connected to chroma",
				"url", c.URL,
				"collection", c.CollectionName,
				"collection_id", id,
			)
			return d, nil
		}

		lastErr = err
		if attempt == c.MaxRetries {
			break
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		time.Sleep(delay)
		delay = min(delay*2, c.MaxRetryDelay)
	}

	return nil, fmt.Errorf("%w: connecting to chroma after %d attempts: %w", vector.ErrConnection, c.MaxRetries, lastErr)
}

func (d *Driver) getOrCreateCollection(ctx context.Context, name string) (string, error) {
	var coll chromaCollection
	err := d.do(ctx, http.MethodPost, "/collections", chromaCreateCollectionRequest{
		Name:        name,
		GetOrCreate: true,
	}, &coll)
	if err != nil {
		return "", err
	}
	return coll.ID, nil
}

// Add stores documents with their embeddings. Existing ids are overwritten.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Metadatas[i] = toMetadata(doc)
		req.Documents[i] = doc.Text
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("/upsert"), req, nil); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	d.logger.Debug("added documents to chroma", "count", len(docs))
	return nil
}

// Query finds the topK most similar documents matching the filter.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	req := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Where:           whereClause(filter),
		Include:         []string{"metadatas", "documents", "distances"},
	}

	var resp chromaQueryResponse
	if err := d.do(ctx, http.MethodPost, d.collectionPath("/query"), req, &resp); err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	results := make([]vector.QueryResult, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		doc := vector.Document{ID: id}
		if i < len(resp.Metadatas[0]) {
			fromMetadata(&doc, resp.Metadatas[0][i])
		}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) && resp.Documents[0][i] != nil {
			doc.Text = *resp.Documents[0][i]
		}

		var score float32
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			// Chroma returns distances; lower is closer.
			score = 1 - resp.Distances[0][i]
		}
		results = append(results, vector.QueryResult{Document: doc, Score: score})
	}

	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var resp chromaGetResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("/get"), chromaGetRequest{
		IDs:     ids,
		Include: []string{"metadatas", "documents", "embeddings"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, 0, len(resp.IDs))
	for i, id := range resp.IDs {
		doc := vector.Document{ID: id}
		if i < len(resp.Metadatas) {
			fromMetadata(&doc, resp.Metadatas[i])
		}
		if i < len(resp.Documents) && resp.Documents[i] != nil {
			doc.Text = *resp.Documents[i]
		}
		if i < len(resp.Embeddings) {
			doc.Embedding = resp.Embeddings[i]
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("/delete"), chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

// Close is a no-op for the HTTP client.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) collectionPath(suffix string) string {
	return "/collections/" + d.collectionID + suffix
}

// do sends a JSON request and decodes the JSON response into out when out is
// non-nil.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set(tokenHeader, d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chroma returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func toMetadata(doc vector.Document) map[string]any {
	return map[string]any{
		"user_id":    doc.UserID,
		"kind":       doc.Kind,
		"source_id":  doc.SourceID,
		"profile_id": doc.ProfileID,
	}
}

// fromMetadata restores document fields. JSON numbers decode as float64.
func fromMetadata(doc *vector.Document, md map[string]any) {
	doc.UserID = metaInt(md, "user_id")
	doc.SourceID = metaInt(md, "source_id")
	doc.ProfileID = metaInt(md, "profile_id")
	if kind, ok := md["kind"].(string); ok {
		doc.Kind = kind
	}
}

func metaInt(md map[string]any, key string) int64 {
	if v, ok := md[key].(float64); ok {
		return int64(v)
	}
	return 0
}

func whereClause(f vector.Filter) map[string]any {
	userClause := map[string]any{"user_id": map[string]any{"$eq": f.UserID}}
	if f.Kind == "" {
		return userClause
	}
	return map[string]any{
		"$and": []map[string]any{
			userClause,
			{"kind": map[string]any{"$eq": f.Kind}},
		},
	}
}
