package sqlite_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
	"github.com/papercomputeco/leo/pkg/storage/sqldriver"
	"github.com/papercomputeco/leo/pkg/storage/sqlite"
	"github.com/papercomputeco/leo/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("sqlite", storagetest.Options{
	New: func(ctx context.Context) storage.Driver {
		d, err := sqlite.NewDriver(ctx, ":memory:", sqldriver.WithPasswordHasher(storagetest.Hasher))
		Expect(err).NotTo(HaveOccurred())
		return d
	},
	ScopedProfiles: true,
})

var _ = Describe("Driver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewDriver", func() {
		It("creates a driver with file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "test.db")

			s, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			// Verify file was created
			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps data across reopen", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

			s, err := sqlite.NewDriver(ctx, dbPath, sqldriver.WithPasswordHasher(storagetest.Hasher))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Initialize(ctx)).To(Succeed())
			demo, err := s.GetUserByUsername(ctx, storage.DemoUsername)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.UpdateUserContext(ctx, demo.ID, json.RawMessage(`{"a":1}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Close()).To(Succeed())

			reopened, err := sqlite.NewDriver(ctx, dbPath, sqldriver.WithPasswordHasher(storagetest.Hasher))
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()
			Expect(reopened.Initialize(ctx)).To(Succeed())

			uc, err := reopened.UpdateUserContext(ctx, demo.ID, json.RawMessage(`{"a":2}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(uc.Version).To(Equal(2))
		})

		It("fails to initialize without a hasher", func() {
			s, err := sqlite.NewDriver(ctx, ":memory:")
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			Expect(s.Initialize(ctx)).NotTo(Succeed())
		})
	})

	Describe("timestamps", func() {
		It("stores times in UTC with the configured clock", func() {
			fixed := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.FixedZone("x", 3600))
			s, err := sqlite.NewDriver(ctx, ":memory:",
				sqldriver.WithPasswordHasher(storagetest.Hasher),
				sqldriver.WithClock(func() time.Time { return fixed }),
			)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()
			Expect(s.Initialize(ctx)).To(Succeed())

			demo, err := s.GetUserByUsername(ctx, storage.DemoUsername)
			Expect(err).NotTo(HaveOccurred())

			_, err = s.CreateURL(ctx, demo.ID, model.NewURL{URL: "https://example.com"})
			Expect(err).NotTo(HaveOccurred())

			urls, err := s.GetURLs(ctx, demo.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(urls[0].CreatedAt.Location()).To(Equal(time.UTC))
			Expect(urls[0].CreatedAt).To(BeTemporally("==", fixed.Truncate(time.Microsecond)))
		})
	})

	Describe("IsUniqueViolation", func() {
		It("is false for unrelated errors", func() {
			Expect(sqlite.IsUniqueViolation(context.Canceled)).To(BeFalse())
		})
	})
})
