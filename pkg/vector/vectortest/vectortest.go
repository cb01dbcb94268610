// Package vectortest holds behavior shared by every vector.Driver
// implementation. Driver packages register it from their own suites.
package vectortest

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/vector"
)

// Dimensions is the embedding width used by the shared specs.
const Dimensions = 4

// Doc builds a document for source row id owned by userID.
func Doc(kind string, id, userID int64, text string, embedding ...float32) vector.Document {
	return vector.Document{
		ID:        vector.DocID(kind, id),
		UserID:    userID,
		Kind:      kind,
		SourceID:  id,
		Text:      text,
		Embedding: embedding,
	}
}

// DescribeDriver registers the shared vector driver specs. newDriver is
// called before every spec and must return an empty store configured for
// Dimensions-wide embeddings.
func DescribeDriver(name string, newDriver func() vector.Driver) bool {
	return Describe(name+" vector driver", func() {
		var (
			ctx    context.Context
			driver vector.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
			DeferCleanup(func() {
				Expect(driver.Close()).To(Succeed())
			})
		})

		// query is closest to url:3, then url:2, then url:1.
		query := []float32{0, 0, 1, 0}

		seed := func() {
			Expect(driver.Add(ctx, []vector.Document{
				Doc(vector.KindURL, 1, 1, "one", 1, 0, 0, 0),
				Doc(vector.KindURL, 2, 1, "two", 0, 0.5, 1, 0),
				Doc(vector.KindURL, 3, 1, "three", 0, 0, 1, 0),
				Doc(vector.KindChatMessage, 4, 1, "four", 0, 0, 1, 0.1),
				Doc(vector.KindURL, 5, 2, "five", 0, 0, 1, 0),
			})).To(Succeed())
		}

		Describe("Add", func() {
			It("does nothing when given no documents", func() {
				Expect(driver.Add(ctx, nil)).To(Succeed())
			})

			It("stores documents with their metadata", func() {
				seed()

				docs, err := driver.Get(ctx, []string{"url:3"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].UserID).To(Equal(int64(1)))
				Expect(docs[0].Kind).To(Equal(vector.KindURL))
				Expect(docs[0].SourceID).To(Equal(int64(3)))
				Expect(docs[0].Text).To(Equal("three"))
			})

			It("replaces a document with the same id", func() {
				seed()
				Expect(driver.Add(ctx, []vector.Document{
					Doc(vector.KindURL, 1, 1, "one, edited", 0, 1, 0, 0),
				})).To(Succeed())

				docs, err := driver.Get(ctx, []string{"url:1"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].Text).To(Equal("one, edited"))
				Expect(docs[0].Embedding).To(HaveLen(Dimensions))
				Expect(docs[0].Embedding[1]).To(BeNumerically("~", 1, 0.001))
			})
		})

		Describe("Query", func() {
			BeforeEach(seed)

			It("returns the closest documents first", func() {
				results, err := driver.Query(ctx, query, 2, vector.Filter{UserID: 1, Kind: vector.KindURL})
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
				Expect(results[0].ID).To(Equal("url:3"))
				Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
			})

			It("never returns another user's documents", func() {
				results, err := driver.Query(ctx, query, 10, vector.Filter{UserID: 2})
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].ID).To(Equal("url:5"))
			})

			It("matches every kind when no kind is given", func() {
				results, err := driver.Query(ctx, query, 10, vector.Filter{UserID: 1})
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(4))
			})

			It("restricts results to the requested kind", func() {
				results, err := driver.Query(ctx, query, 10, vector.Filter{UserID: 1, Kind: vector.KindChatMessage})
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].SourceID).To(Equal(int64(4)))
			})

			It("returns nothing for a user with no documents", func() {
				results, err := driver.Query(ctx, query, 10, vector.Filter{UserID: 99})
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(BeEmpty())
			})
		})

		Describe("Get", func() {
			BeforeEach(seed)

			It("returns nothing for no ids", func() {
				docs, err := driver.Get(ctx, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(BeEmpty())
			})

			It("skips unknown ids", func() {
				docs, err := driver.Get(ctx, []string{"url:1", "url:404"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].ID).To(Equal("url:1"))
			})
		})

		Describe("Delete", func() {
			BeforeEach(seed)

			It("ignores unknown ids", func() {
				Expect(driver.Delete(ctx, []string{"url:404"})).To(Succeed())
			})

			It("removes documents from query results", func() {
				Expect(driver.Delete(ctx, []string{"url:3", "url:2"})).To(Succeed())

				docs, err := driver.Get(ctx, []string{"url:1", "url:2", "url:3"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))

				results, err := driver.Query(ctx, query, 10, vector.Filter{UserID: 1, Kind: vector.KindURL})
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].ID).To(Equal("url:1"))
			})
		})
	})
}
