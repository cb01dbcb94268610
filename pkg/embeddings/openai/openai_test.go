package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/embeddings/openai"
	"github.com/papercomputeco/leo/pkg/vector"
)

var _ = Describe("Embedder", func() {
	It("requires an api key or a base url", func() {
		_, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).To(HaveOccurred())
	})

	Describe("against a compatible server", func() {
		var (
			server *httptest.Server
			auth   string
			model  string
			fail   bool
		)

		BeforeEach(func() {
			fail = false
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")

				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				model, _ = body["model"].(string)

				if fail || !strings.HasSuffix(r.URL.Path, "/embeddings") {
					http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"object": "list",
					"data": []map[string]any{{
						"object":    "embedding",
						"index":     0,
						"embedding": []float32{0.5, 0.25},
					}},
					"model": model,
					"usage": map[string]int{"prompt_tokens": 1, "total_tokens": 1},
				})
			}))
			DeferCleanup(server.Close)
		})

		It("embeds text with the configured model", func() {
			e, err := openai.NewEmbedder(openai.EmbedderConfig{
				BaseURL: server.URL,
				APIKey:  "sk-test",
				Model:   "nomic-embed-text",
			})
			Expect(err).NotTo(HaveOccurred())

			vec, err := e.Embed(context.Background(), "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(vec).To(Equal([]float32{0.5, 0.25}))
			Expect(model).To(Equal("nomic-embed-text"))
			Expect(auth).To(Equal("Bearer sk-test"))
			Expect(e.Close()).To(Succeed())
		})

		It("wraps failures as embedding errors", func() {
			fail = true
			e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())

			_, err = e.Embed(context.Background(), "hello")
			Expect(err).To(MatchError(vector.ErrEmbedding))
		})
	})
})
