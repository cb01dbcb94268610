package chroma_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/vector"
	"github.com/papercomputeco/leo/pkg/vector/chroma"
)

// fakeChroma records requests and answers the collection endpoints.
type fakeChroma struct {
	mu       sync.Mutex
	paths    []string
	tokens   []string
	lastBody map[string]any
}

func (f *fakeChroma) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.paths = append(f.paths, r.URL.Path)
		f.tokens = append(f.tokens, r.Header.Get("x-chroma-token"))
		f.lastBody = body
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/collections"):
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "coll-1", "name": "leo"})
		case strings.HasSuffix(r.URL.Path, "/query"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ids":       [][]string{{"url:7"}},
				"distances": [][]float32{{0.25}},
				"metadatas": [][]map[string]any{{{
					"user_id": 3, "kind": "url", "source_id": 7, "profile_id": 0,
				}}},
				"documents": [][]string{{"go concurrency patterns"}},
			})
		case strings.HasSuffix(r.URL.Path, "/get"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ids":        []string{"url:7"},
				"metadatas":  []map[string]any{{"user_id": 3, "kind": "url", "source_id": 7}},
				"documents":  []string{"go concurrency patterns"},
				"embeddings": [][]float32{{1, 0}},
			})
		default:
			_, _ = w.Write([]byte("{}"))
		}
	})
}

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= 3 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "test-collection-id", "name": "leo"})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(Equal(int32(4)))
		})

		It("should return an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(vector.ErrConnection))
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})

		It("should address the configured tenant and database", func() {
			fake := &fakeChroma{}
			server := httptest.NewServer(fake.handler())
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:      server.URL,
				APIKey:   "ck-secret",
				Tenant:   "acme",
				Database: "prod",
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.paths).To(ConsistOf("/api/v2/tenants/acme/databases/prod/collections"))
			Expect(fake.tokens).To(ConsistOf("ck-secret"))
		})
	})

	Describe("operations", func() {
		var (
			fake   *fakeChroma
			server *httptest.Server
			driver *chroma.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			fake = &fakeChroma{}
			server = httptest.NewServer(fake.handler())

			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
			server.Close()
		})

		It("upserts documents with owner metadata", func() {
			err := driver.Add(ctx, []vector.Document{{
				ID:        vector.DocID(vector.KindURL, 7),
				UserID:    3,
				Kind:      vector.KindURL,
				SourceID:  7,
				Text:      "go concurrency patterns",
				Embedding: []float32{1, 0},
			}})
			Expect(err).NotTo(HaveOccurred())

			Expect(fake.paths).To(ContainElement("/api/v2/tenants/default_tenant/databases/default_database/collections/coll-1/upsert"))
			Expect(fake.lastBody["ids"]).To(Equal([]any{"url:7"}))
			metadatas := fake.lastBody["metadatas"].([]any)
			Expect(metadatas[0]).To(HaveKeyWithValue("user_id", BeNumerically("==", 3)))
			Expect(metadatas[0]).To(HaveKeyWithValue("kind", "url"))
		})

		It("skips the request for an empty batch", func() {
			Expect(driver.Add(ctx, nil)).To(Succeed())
			Expect(fake.paths).To(HaveLen(1))
		})

		It("filters queries by owner and kind", func() {
			results, err := driver.Query(ctx, []float32{1, 0}, 5, vector.Filter{UserID: 3, Kind: vector.KindURL})
			Expect(err).NotTo(HaveOccurred())

			where := fake.lastBody["where"].(map[string]any)
			Expect(where).To(HaveKey("$and"))

			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("url:7"))
			Expect(results[0].UserID).To(Equal(int64(3)))
			Expect(results[0].SourceID).To(Equal(int64(7)))
			Expect(results[0].Kind).To(Equal(vector.KindURL))
			Expect(results[0].Text).To(Equal("go concurrency patterns"))
			Expect(results[0].Score).To(BeNumerically("~", 0.75, 0.0001))
		})

		It("filters by owner only when no kind is given", func() {
			_, err := driver.Query(ctx, []float32{1, 0}, 5, vector.Filter{UserID: 3})
			Expect(err).NotTo(HaveOccurred())

			where := fake.lastBody["where"].(map[string]any)
			Expect(where).To(HaveKey("user_id"))
			Expect(where).NotTo(HaveKey("$and"))
		})

		It("gets documents by id", func() {
			docs, err := driver.Get(ctx, []string{"url:7"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(Equal([]float32{1, 0}))
			Expect(docs[0].UserID).To(Equal(int64(3)))
		})

		It("deletes documents by id", func() {
			Expect(driver.Delete(ctx, []string{"url:7"})).To(Succeed())
			Expect(fake.paths[len(fake.paths)-1]).To(HaveSuffix("/collections/coll-1/delete"))
			Expect(fake.lastBody["ids"]).To(Equal([]any{"url:7"}))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})
})
