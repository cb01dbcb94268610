package indexed

import (
	"context"
	"strings"

	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/vector"
)

const defaultSearchLimit = 10

// SearchURLs returns the user's URLs most related to query. Hits come from
// the vector index and are resolved against storage, so deleted rows never
// show up. When the index is unavailable or has no hits, URLs whose text
// contains query (case-insensitively) are returned instead, newest first.
func (d *Driver) SearchURLs(ctx context.Context, userID int64, query string, limit int) ([]*model.URL, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	urls, err := d.Driver.GetURLs(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.URL, len(urls))
	for _, u := range urls {
		byID[u.ID] = u
	}

	var (
		found []*model.URL
		maxID int64
	)
	for _, u := range urls {
		maxID = max(maxID, u.ID)
	}
	for _, id := range d.semanticHits(ctx, userID, vector.KindURL, query, limit) {
		if u, ok := byID[id]; ok {
			found = append(found, u)
			continue
		}
		d.prune(vector.KindURL, id, maxID)
	}
	if len(found) > 0 {
		return found, nil
	}

	for _, u := range urls {
		if len(found) == limit {
			break
		}
		if containsFold(query, u.URL, deref(u.Title), deref(u.Notes), deref(u.Content)) {
			found = append(found, u)
		}
	}
	return found, nil
}

// SearchChatMessages returns the user's messages most related to query, with
// the same fallback as SearchURLs. Fallback results are newest first.
func (d *Driver) SearchChatMessages(ctx context.Context, userID int64, query string, limit int) ([]*model.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	messages, err := d.Driver.GetChatMessages(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.ChatMessage, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
	}

	var (
		found []*model.ChatMessage
		maxID int64
	)
	for _, m := range messages {
		maxID = max(maxID, m.ID)
	}
	for _, id := range d.semanticHits(ctx, userID, vector.KindChatMessage, query, limit) {
		if m, ok := byID[id]; ok {
			found = append(found, m)
			continue
		}
		d.prune(vector.KindChatMessage, id, maxID)
	}
	if len(found) > 0 {
		return found, nil
	}

	for i := len(messages) - 1; i >= 0 && len(found) < limit; i-- {
		if containsFold(query, messages[i].Content) {
			found = append(found, messages[i])
		}
	}
	return found, nil
}

// prune queues removal of an index document whose row is gone. Rows newer
// than the listing used to resolve hits may not be visible yet, so only ids at
// or below maxID are removed.
func (d *Driver) prune(kind string, id, maxID int64) {
	if id > maxID {
		return
	}
	d.logger.Debug("pruning stale search index document", "kind", kind, "source_id", id)
	d.remove(vector.DocID(kind, id))
}

// semanticHits returns source row ids from the vector index, best first.
// Errors are logged and yield no hits.
func (d *Driver) semanticHits(ctx context.Context, userID int64, kind, query string, limit int) []int64 {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	emb, err := d.embedder.Embed(ctx, query)
	if err != nil {
		d.logger.Warn("embedding search query, falling back to text match", "kind", kind, "error", err)
		return nil
	}

	results, err := d.vectors.Query(ctx, emb, limit, vector.Filter{UserID: userID, Kind: kind})
	if err != nil {
		d.logger.Warn("querying search index, falling back to text match", "kind", kind, "error", err)
		return nil
	}

	ids := make([]int64, 0, len(results))
	for _, r := range results {
		// never surface another owner's rows
		if r.UserID != userID {
			continue
		}
		ids = append(ids, r.SourceID)
	}

	d.logger.Debug("search index hits", "user_id", userID, "kind", kind, "hits", len(ids))
	return ids
}

func containsFold(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
