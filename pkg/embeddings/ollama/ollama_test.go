package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/embeddings/ollama"
	"github.com/papercomputeco/leo/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		received map[string]string
		status   int
	)

	BeforeEach(func() {
		status = http.StatusOK
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&received)

			if r.URL.Path != "/api/embed" {
				http.NotFound(w, r)
				return
			}
			if status != http.StatusOK {
				http.Error(w, "model not found", status)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2, 0.3}},
			})
		}))
		DeferCleanup(server.Close)
	})

	It("defaults the model", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(received).To(HaveKeyWithValue("model", ollama.DefaultEmbeddingModel))
		Expect(received).To(HaveKeyWithValue("input", "hello"))
	})

	It("returns the first embedding", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL + "/", Model: "all-minilm"})
		Expect(err).NotTo(HaveOccurred())

		vec, err := e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2, 0.3}))
		Expect(received).To(HaveKeyWithValue("model", "all-minilm"))
	})

	It("wraps server errors as embedding errors", func() {
		status = http.StatusNotFound
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("status 404"))
	})
})
