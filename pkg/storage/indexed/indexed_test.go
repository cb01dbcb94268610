package indexed_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
	"github.com/papercomputeco/leo/pkg/storage/indexed"
	"github.com/papercomputeco/leo/pkg/storage/inmemory"
	"github.com/papercomputeco/leo/pkg/storage/sqldriver"
	"github.com/papercomputeco/leo/pkg/storage/sqlite"
	"github.com/papercomputeco/leo/pkg/storage/storagetest"
	testutils "github.com/papercomputeco/leo/pkg/utils/test"
	"github.com/papercomputeco/leo/pkg/vector"
)

var _ = storagetest.DescribeDriver("indexed sqlite", storagetest.Options{
	New: func(ctx context.Context) storage.Driver {
		inner, err := sqlite.NewDriver(ctx, ":memory:", sqldriver.WithPasswordHasher(storagetest.Hasher))
		Expect(err).NotTo(HaveOccurred())

		d, err := indexed.New(inner, indexed.Config{
			Vectors:  testutils.NewMockVectorDriver(),
			Embedder: testutils.NewMockEmbedder(),
		})
		Expect(err).NotTo(HaveOccurred())
		return d
	},
	ScopedProfiles: true,
})

// indexErrors collects OnIndexError reports.
type indexErrors struct {
	mu   sync.Mutex
	errs []storage.IndexWriteError
}

func (e *indexErrors) add(err storage.IndexWriteError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

func (e *indexErrors) all() []storage.IndexWriteError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]storage.IndexWriteError(nil), e.errs...)
}

var _ = Describe("Driver", func() {
	var (
		ctx      context.Context
		inner    *inmemory.Driver
		vectors  *testutils.MockVectorDriver
		embedder *testutils.MockEmbedder
		reported *indexErrors
		driver   *indexed.Driver
		user     *model.User
	)

	newDriver := func(maxRetries uint) *indexed.Driver {
		d, err := indexed.New(inner, indexed.Config{
			Vectors:      vectors,
			Embedder:     embedder,
			Workers:      2,
			MaxRetries:   maxRetries,
			Timeout:      time.Second,
			OnIndexError: reported.add,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	BeforeEach(func() {
		ctx = context.Background()
		inner = inmemory.NewDriver(storagetest.Hasher)
		vectors = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()
		reported = &indexErrors{}
		driver = newDriver(0)

		var err error
		user, err = driver.CreateUser(ctx, model.NewUser{Username: "alice", Password: "hashed:a"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	title := func(s string) *string { return &s }

	Describe("New", func() {
		It("requires a vector driver and an embedder", func() {
			_, err := indexed.New(inner, indexed.Config{Embedder: embedder})
			Expect(err).To(MatchError(ContainSubstring("vector driver is required")))

			_, err = indexed.New(inner, indexed.Config{Vectors: vectors})
			Expect(err).To(MatchError(ContainSubstring("embedder is required")))

			_, err = indexed.New(nil, indexed.Config{Vectors: vectors, Embedder: embedder})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("mirroring writes", func() {
		It("indexes a created URL with its owner", func() {
			u, err := driver.CreateURL(ctx, user.ID, model.NewURL{URL: "https://go.dev", Title: title("Go")})
			Expect(err).NotTo(HaveOccurred())

			Eventually(vectors.Documents).Should(ConsistOf(And(
				HaveField("ID", vector.DocID(vector.KindURL, u.ID)),
				HaveField("UserID", user.ID),
				HaveField("Kind", vector.KindURL),
				HaveField("SourceID", u.ID),
				HaveField("Text", "https://go.dev\nGo"),
			)))
		})

		It("re-indexes a URL when its content changes", func() {
			u, err := driver.CreateURL(ctx, user.ID, model.NewURL{URL: "https://go.dev"})
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.UpdateURLContent(ctx, u.ID, user.ID, "the go programming language")
			Expect(err).NotTo(HaveOccurred())

			Eventually(vectors.Documents).Should(ConsistOf(
				HaveField("Text", "https://go.dev\nthe go programming language"),
			))
		})

		It("includes the analysis in the indexed text", func() {
			u, err := driver.CreateURL(ctx, user.ID, model.NewURL{URL: "https://go.dev"})
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.UpdateURLAnalysis(ctx, u.ID, user.ID, json.RawMessage(`{"topic":"golang"}`))
			Expect(err).NotTo(HaveOccurred())

			Eventually(vectors.Documents).Should(ConsistOf(
				HaveField("Text", ContainSubstring(`"topic":"golang"`)),
			))
		})

		It("removes the document of a deleted URL", func() {
			u, err := driver.CreateURL(ctx, user.ID, model.NewURL{URL: "https://go.dev"})
			Expect(err).NotTo(HaveOccurred())
			Eventually(vectors.DocumentIDs).Should(HaveLen(1))

			deleted, err := driver.DeleteURL(ctx, u.ID, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())
			Eventually(vectors.DocumentIDs).Should(BeEmpty())
		})

		It("leaves the index alone when nothing was deleted", func() {
			deleted, err := driver.DeleteURL(ctx, 404, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())
		})

		It("indexes chat messages and removes them on clear", func() {
			for _, content := range []string{"hello", "world"} {
				_, err := driver.CreateChatMessage(ctx, user.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: content})
				Expect(err).NotTo(HaveOccurred())
			}
			Eventually(vectors.DocumentIDs).Should(ConsistOf("chat_message:1", "chat_message:2"))

			Expect(driver.ClearChatHistory(ctx, user.ID)).To(Succeed())
			Eventually(vectors.DocumentIDs).Should(BeEmpty())

			messages, err := driver.GetChatMessages(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(BeEmpty())
		})

		It("tags profile rows with their kind and profile", func() {
			_, err := driver.CreateContextURL(ctx, user.ID, 7, model.NewURL{URL: "https://go.dev"})
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.CreateContextChatMessage(ctx, user.ID, 7, model.NewChatMessage{Role: model.ChatRoleAssistant, Content: "hi"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(vectors.Documents).Should(ConsistOf(
				And(HaveField("Kind", vector.KindContextURL), HaveField("ProfileID", int64(7))),
				And(HaveField("Kind", vector.KindContextChatMessage), HaveField("ProfileID", int64(7))),
			))
		})

		It("does not index rows whose primary write failed", func() {
			_, err := driver.CreateURL(ctx, 404, model.NewURL{URL: "https://go.dev"})
			Expect(storage.IsNotFound(err)).To(BeTrue())

			Consistently(vectors.DocumentIDs, 50*time.Millisecond).Should(BeEmpty())
		})
	})

	Describe("index failures", func() {
		It("keeps the primary write and reports the failure", func() {
			embedder.FailAll = true

			u, err := driver.CreateURL(ctx, user.ID, model.NewURL{URL: "https://go.dev"})
			Expect(err).NotTo(HaveOccurred())

			urls, err := driver.GetURLs(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(urls).To(HaveLen(1))

			Eventually(reported.all).Should(ConsistOf(And(
				HaveField("Op", indexed.OpUpsert),
				HaveField("DocID", vector.DocID(vector.KindURL, u.ID)),
			)))
		})

		It("retries failed index writes", func() {
			Expect(driver.Close()).To(Succeed())
			driver = newDriver(2)
			vectors.FailAdds = 2

			_, err := driver.CreateURL(ctx, user.ID, model.NewURL{URL: "https://go.dev"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(vectors.DocumentIDs).Should(HaveLen(1))
			Expect(reported.all()).To(BeEmpty())
		})
	})

	Describe("search", func() {
		BeforeEach(func() {
			for _, in := range []model.NewURL{
				{URL: "https://go.dev", Title: title("The Go language")},
				{URL: "https://rust-lang.org", Title: title("Rust")},
			} {
				_, err := driver.CreateURL(ctx, user.ID, in)
				Expect(err).NotTo(HaveOccurred())
			}
			Eventually(vectors.DocumentIDs).Should(HaveLen(2))
		})

		It("resolves index hits through storage", func() {
			vectors.Results = []vector.QueryResult{{
				Document: vector.Document{ID: "url:2", UserID: user.ID, Kind: vector.KindURL, SourceID: 2},
				Score:    0.9,
			}}

			found, err := driver.SearchURLs(ctx, user.ID, "systems programming", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].URL).To(Equal("https://rust-lang.org"))
		})

		It("drops hits owned by someone else or already deleted", func() {
			vectors.Results = []vector.QueryResult{
				{Document: vector.Document{ID: "url:9", UserID: user.ID, SourceID: 9}},
				{Document: vector.Document{ID: "url:1", UserID: user.ID + 1, SourceID: 1}},
			}

			found, err := driver.SearchURLs(ctx, user.ID, "rust", 5)
			Expect(err).NotTo(HaveOccurred())
			// no usable hits, so the text match takes over
			Expect(found).To(HaveLen(1))
			Expect(found[0].URL).To(Equal("https://rust-lang.org"))
		})

		It("prunes index documents whose rows are gone", func() {
			deleted, err := inner.DeleteURL(ctx, 1, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())
			Expect(vectors.DocumentIDs()).To(ContainElement("url:1"))

			found, err := driver.SearchURLs(ctx, user.ID, "anything", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].URL).To(Equal("https://rust-lang.org"))

			Eventually(vectors.DocumentIDs).Should(ConsistOf("url:2"))
		})

		It("keeps hits newer than the rows it resolved against", func() {
			Expect(vectors.Add(ctx, []vector.Document{{
				ID: "url:7", UserID: user.ID, Kind: vector.KindURL, SourceID: 7,
			}})).To(Succeed())

			_, err := driver.SearchURLs(ctx, user.ID, "anything", 5)
			Expect(err).NotTo(HaveOccurred())

			Consistently(vectors.DocumentIDs, 200*time.Millisecond).Should(ContainElement("url:7"))
		})

		It("falls back to a case-insensitive text match when the index fails", func() {
			vectors.QueryErr = errors.New("index down")

			found, err := driver.SearchURLs(ctx, user.ID, "GO LANGUAGE", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].URL).To(Equal("https://go.dev"))
		})

		It("falls back when the query cannot be embedded", func() {
			embedder.FailAll = true

			found, err := driver.SearchURLs(ctx, user.ID, "rust", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
		})

		It("searches chat messages newest first in the fallback", func() {
			vectors.QueryErr = errors.New("index down")
			for _, content := range []string{"go channels", "rust traits", "go generics"} {
				_, err := driver.CreateChatMessage(ctx, user.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: content})
				Expect(err).NotTo(HaveOccurred())
			}

			found, err := driver.SearchChatMessages(ctx, user.ID, "go", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(2))
			Expect(found[0].Content).To(Equal("go generics"))
			Expect(found[1].Content).To(Equal("go channels"))
		})

		It("finds indexed chat messages", func() {
			m, err := driver.CreateChatMessage(ctx, user.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: "goroutines"})
			Expect(err).NotTo(HaveOccurred())
			Eventually(vectors.DocumentIDs).Should(ContainElement(vector.DocID(vector.KindChatMessage, m.ID)))

			found, err := driver.SearchChatMessages(ctx, user.ID, "concurrency", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ID).To(Equal(m.ID))
		})
	})

	Describe("Close", func() {
		It("closes the vector driver and the embedder", func() {
			Expect(driver.Close()).To(Succeed())
			Expect(vectors.Closed()).To(BeTrue())
			Expect(embedder.Closed()).To(BeTrue())

			// AfterEach closes again
			driver = newDriver(0)
		})
	})
})
