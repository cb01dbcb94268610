package searchcmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	searchcmder "github.com/papercomputeco/leo/cmd/leo/search"
	"github.com/papercomputeco/leo/pkg/auth"
	"github.com/papercomputeco/leo/pkg/config"
	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
	storageutils "github.com/papercomputeco/leo/pkg/storage/utils"
)

// fakeOllama embeds text mentioning "golang" along one axis and everything
// else along another.
func fakeOllama() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		embedding := []float32{0, 1, 0}
		if strings.Contains(strings.ToLower(req.Input), "golang") {
			embedding = []float32{1, 0, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{embedding}})
	}))
}

func ptr(s string) *string { return &s }

var _ = Describe("Search Command", func() {
	var (
		dbPath     string
		vectorsDir string
		server     *httptest.Server
	)

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := searchcmder.NewSearchCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	indexFlags := func() []string {
		return []string{
			"--sqlite", dbPath,
			"--vector-store-provider", "chromem",
			"--vector-store-target", vectorsDir,
			"--embedding-provider", "ollama",
			"--embedding-target", server.URL,
		}
	}

	BeforeEach(func() {
		ctx := context.Background()
		dir := GinkgoT().TempDir()
		dbPath = filepath.Join(dir, "leo.sqlite")
		vectorsDir = filepath.Join(dir, "vectors")

		server = fakeOllama()
		DeferCleanup(server.Close)

		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
			SQLitePath:  dbPath,
			VectorStore: config.VectorStoreConfig{Provider: "chromem", Target: vectorsDir},
			Embedding:   config.EmbeddingConfig{Provider: "ollama", Target: server.URL},
			Hasher:      auth.HashPassword,
			Logger:      logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Initialize(ctx)).To(Succeed())

		demo, err := d.GetUserByUsername(ctx, storage.DemoUsername)
		Expect(err).NotTo(HaveOccurred())

		_, err = d.CreateURL(ctx, demo.ID, model.NewURL{URL: "https://example.com/bread", Title: ptr("Sourdough basics")})
		Expect(err).NotTo(HaveOccurred())
		_, err = d.CreateURL(ctx, demo.ID, model.NewURL{URL: "https://go.dev/doc", Title: ptr("Golang documentation")})
		Expect(err).NotTo(HaveOccurred())
		_, err = d.CreateChatMessage(ctx, demo.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: "how do golang channels work?"})
		Expect(err).NotTo(HaveOccurred())

		// Close drains the index queue.
		Expect(d.Close()).To(Succeed())
	})

	It("requires a username and a query", func() {
		_, err := execute("alex")
		Expect(err).To(HaveOccurred())
	})

	It("fails without a vector store", func() {
		_, err := execute(storage.DemoUsername, "golang", "--sqlite", dbPath)
		Expect(err).To(MatchError(searchcmder.ErrSearchDisabled))
	})

	It("ranks the closest URL first", func() {
		out, err := execute(append([]string{storage.DemoUsername, "golang"}, indexFlags()...)...)
		Expect(err).NotTo(HaveOccurred())

		first := strings.Index(out, "Golang documentation")
		second := strings.Index(out, "Sourdough basics")
		Expect(first).To(BeNumerically(">=", 0))
		Expect(second).To(BeNumerically(">", first))
	})

	It("limits results with --top", func() {
		out, err := execute(append([]string{storage.DemoUsername, "golang", "--top", "1"}, indexFlags()...)...)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Golang documentation"))
		Expect(out).NotTo(ContainSubstring("Sourdough basics"))
	})

	It("searches chat history with --messages", func() {
		out, err := execute(append([]string{storage.DemoUsername, "golang", "--messages"}, indexFlags()...)...)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("channels"))
		Expect(out).To(ContainSubstring("[user]"))
	})

	It("reports unknown users", func() {
		_, err := execute(append([]string{"nobody", "golang"}, indexFlags()...)...)
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})
})
