// Package storagetest holds behavior every storage.Driver must share. Driver
// packages call DescribeDriver from their own ginkgo suites.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
)

// Hasher is a deterministic storage.PasswordHasher for tests.
func Hasher(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

// Options describes the driver under test.
type Options struct {
	// New returns a fresh, uninitialized driver with no rows. It is called
	// before every spec.
	New func(ctx context.Context) storage.Driver

	// ScopedProfiles is set for drivers that keep profile data separate from
	// the unscoped collections.
	ScopedProfiles bool
}

// DescribeDriver registers the shared driver specs.
func DescribeDriver(name string, opts Options) bool {
	return Describe(name+" conformance", func() {
		var (
			ctx    context.Context
			driver storage.Driver
			alice  *model.User
			bob    *model.User
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = opts.New(ctx)
			Expect(driver.Initialize(ctx)).To(Succeed())

			var err error
			alice, err = driver.CreateUser(ctx, model.NewUser{Username: "alice", Password: "hashed:a"})
			Expect(err).NotTo(HaveOccurred())
			bob, err = driver.CreateUser(ctx, model.NewUser{Username: "bob", Password: "hashed:b"})
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		Describe("Initialize", func() {
			It("seeds the demo account with a hashed password", func() {
				demo, err := driver.GetUserByUsername(ctx, storage.DemoUsername)
				Expect(err).NotTo(HaveOccurred())
				Expect(demo.Password).To(Equal("hashed:" + storage.DemoPassword))
				Expect(demo.Role).To(Equal(model.RoleUser))
				Expect(demo.ProMode).To(BeFalse())
			})

			It("is idempotent", func() {
				Expect(driver.Initialize(ctx)).To(Succeed())

				stats, err := driver.GetAllUsersWithStats(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(stats).To(HaveLen(3))
			})
		})

		Describe("Users", func() {
			It("creates users with the default role", func() {
				Expect(alice.ID).NotTo(BeZero())
				Expect(alice.Role).To(Equal(model.RoleUser))
				Expect(alice.ProMode).To(BeFalse())

				got, err := driver.GetUser(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(alice))
			})

			It("assigns distinct ids", func() {
				Expect(alice.ID).NotTo(Equal(bob.ID))
			})

			It("rejects a duplicate username", func() {
				_, err := driver.CreateUser(ctx, model.NewUser{Username: "alice", Password: "x"})
				var dup storage.DuplicateUsernameError
				Expect(errors.As(err, &dup)).To(BeTrue())
				Expect(dup.Username).To(Equal("alice"))
			})

			It("rejects an empty username", func() {
				_, err := driver.CreateUser(ctx, model.NewUser{Username: " ", Password: "x"})
				Expect(err).To(BeAssignableToTypeOf(model.ValidationError{}))
			})

			It("returns not found for unknown users", func() {
				_, err := driver.GetUser(ctx, 99999)
				Expect(storage.IsNotFound(err)).To(BeTrue())

				_, err = driver.GetUserByUsername(ctx, "nobody")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("updates the role", func() {
				updated, err := driver.UpdateUserRole(ctx, alice.ID, model.RoleAdmin)
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Role).To(Equal(model.RoleAdmin))

				got, err := driver.GetUser(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Role).To(Equal(model.RoleAdmin))
			})

			It("rejects unknown roles", func() {
				_, err := driver.UpdateUserRole(ctx, alice.ID, model.Role("root"))
				Expect(err).To(BeAssignableToTypeOf(model.ValidationError{}))
			})

			It("returns not found when updating a missing user", func() {
				_, err := driver.UpdateUserRole(ctx, 99999, model.RoleAdmin)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("toggles pro mode", func() {
				updated, err := driver.SetProMode(ctx, bob.ID, true)
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.ProMode).To(BeTrue())

				updated, err = driver.SetProMode(ctx, bob.ID, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.ProMode).To(BeFalse())
			})

			It("reports per user counts", func() {
				_, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://a.example"})
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://b.example"})
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.CreateChatMessage(ctx, alice.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: "hi"})
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.CreateQuestion(ctx, bob.ID, model.NewQuestion{Question: "why?"})
				Expect(err).NotTo(HaveOccurred())

				stats, err := driver.GetAllUsersWithStats(ctx)
				Expect(err).NotTo(HaveOccurred())

				byName := map[string]model.UserStats{}
				for _, s := range stats {
					byName[s.User.Username] = s
				}
				Expect(byName["alice"].URLCount).To(Equal(2))
				Expect(byName["alice"].MessageCount).To(Equal(1))
				Expect(byName["alice"].QuestionCount).To(Equal(0))
				Expect(byName["bob"].QuestionCount).To(Equal(1))
				Expect(byName[storage.DemoUsername].URLCount).To(Equal(0))
			})
		})

		Describe("URLs", func() {
			It("creates a URL with empty content and analysis", func() {
				title := "Example"
				u, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://example.com", Title: &title})
				Expect(err).NotTo(HaveOccurred())
				Expect(u.ID).NotTo(BeZero())
				Expect(u.UserID).To(Equal(alice.ID))
				Expect(*u.Title).To(Equal("Example"))
				Expect(u.Notes).To(BeNil())
				Expect(u.Content).To(BeNil())
				Expect(u.Analysis).To(BeNil())
				Expect(u.CreatedAt).NotTo(BeZero())
			})

			It("stores empty title and notes as absent", func() {
				empty := ""
				u, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://example.com", Title: &empty, Notes: &empty})
				Expect(err).NotTo(HaveOccurred())
				Expect(u.Title).To(BeNil())
				Expect(u.Notes).To(BeNil())

				urls, err := driver.GetURLs(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(urls[0].Title).To(BeNil())
			})

			It("returns not found for an unknown owner", func() {
				_, err := driver.CreateURL(ctx, 99999, model.NewURL{URL: "https://example.com"})
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("lists only the owner's URLs, newest first", func() {
				for i := range 3 {
					_, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: fmt.Sprintf("https://%d.example", i)})
					Expect(err).NotTo(HaveOccurred())
				}
				_, err := driver.CreateURL(ctx, bob.ID, model.NewURL{URL: "https://bob.example"})
				Expect(err).NotTo(HaveOccurred())

				urls, err := driver.GetURLs(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(urls).To(HaveLen(3))
				Expect(urls[0].URL).To(Equal("https://2.example"))
				Expect(urls[2].URL).To(Equal("https://0.example"))
			})

			It("returns an empty list for a user with no URLs", func() {
				urls, err := driver.GetURLs(ctx, bob.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(urls).To(BeEmpty())
			})

			It("deletes only owned URLs", func() {
				u, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://example.com"})
				Expect(err).NotTo(HaveOccurred())

				deleted, err := driver.DeleteURL(ctx, u.ID, bob.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted).To(BeFalse())

				deleted, err = driver.DeleteURL(ctx, u.ID, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted).To(BeTrue())

				deleted, err = driver.DeleteURL(ctx, u.ID, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted).To(BeFalse())
			})

			It("updates analysis and content", func() {
				u, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://example.com"})
				Expect(err).NotTo(HaveOccurred())

				analyzed, err := driver.UpdateURLAnalysis(ctx, u.ID, alice.ID, json.RawMessage(`{"summary":"ok","tags":["a"]}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(string(analyzed.Analysis)).To(MatchJSON(`{"summary":"ok","tags":["a"]}`))

				withContent, err := driver.UpdateURLContent(ctx, u.ID, alice.ID, "body text")
				Expect(err).NotTo(HaveOccurred())
				Expect(*withContent.Content).To(Equal("body text"))
				Expect(string(withContent.Analysis)).To(MatchJSON(`{"summary":"ok","tags":["a"]}`))
			})

			It("treats another user's URL as missing on update", func() {
				u, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://example.com"})
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.UpdateURLContent(ctx, u.ID, bob.ID, "stolen")
				Expect(storage.IsNotFound(err)).To(BeTrue())

				_, err = driver.UpdateURLAnalysis(ctx, u.ID, bob.ID, json.RawMessage(`{}`))
				Expect(storage.IsNotFound(err)).To(BeTrue())

				urls, err := driver.GetURLs(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(urls[0].Content).To(BeNil())
			})
			It("rejects analysis that is not JSON", func() {
				u, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://example.com"})
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.UpdateURLAnalysis(ctx, u.ID, alice.ID, json.RawMessage(`{broken`))
				var ve model.ValidationError
				Expect(errors.As(err, &ve)).To(BeTrue())
				Expect(ve.Field).To(Equal("analysis"))

				urls, err := driver.GetURLs(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(urls[0].Analysis).To(BeNil())
			})

			It("returns analysis bytes unchanged", func() {
				u, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://example.com"})
				Expect(err).NotTo(HaveOccurred())

				raw := `{"b": 1, "a": [2,  3]}`
				_, err = driver.UpdateURLAnalysis(ctx, u.ID, alice.ID, json.RawMessage(raw))
				Expect(err).NotTo(HaveOccurred())

				urls, err := driver.GetURLs(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(urls[0].Analysis)).To(Equal(raw))
			})

			It("keeps creation order through updates and deletes for the demo account", func() {
				alex, err := driver.GetUserByUsername(ctx, storage.DemoUsername)
				Expect(err).NotTo(HaveOccurred())

				a, err := driver.CreateURL(ctx, alex.ID, model.NewURL{URL: "https://a.example"})
				Expect(err).NotTo(HaveOccurred())
				b, err := driver.CreateURL(ctx, alex.ID, model.NewURL{URL: "https://b.example"})
				Expect(err).NotTo(HaveOccurred())

				urlIDs := func() []int64 {
					urls, err := driver.GetURLs(ctx, alex.ID)
					Expect(err).NotTo(HaveOccurred())
					ids := make([]int64, 0, len(urls))
					for _, u := range urls {
						ids = append(ids, u.ID)
					}
					return ids
				}
				Expect(urlIDs()).To(Equal([]int64{b.ID, a.ID}))

				updated, err := driver.UpdateURLContent(ctx, a.ID, alex.ID, "fetched body")
				Expect(err).NotTo(HaveOccurred())
				Expect(*updated.Content).To(Equal("fetched body"))
				Expect(updated.CreatedAt).To(BeTemporally("==", a.CreatedAt))
				Expect(urlIDs()).To(Equal([]int64{b.ID, a.ID}))

				deleted, err := driver.DeleteURL(ctx, a.ID, alex.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted).To(BeTrue())
				Expect(urlIDs()).To(Equal([]int64{b.ID}))
			})
		})

		Describe("Chat messages", func() {
			It("lists messages oldest first", func() {
				_, err := driver.CreateChatMessage(ctx, alice.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: "first"})
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.CreateChatMessage(ctx, alice.ID, model.NewChatMessage{Role: model.ChatRoleAssistant, Content: "second"})
				Expect(err).NotTo(HaveOccurred())

				messages, err := driver.GetChatMessages(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(messages).To(HaveLen(2))
				Expect(messages[0].Content).To(Equal("first"))
				Expect(messages[1].Role).To(Equal(model.ChatRoleAssistant))
			})

			It("rejects unknown roles", func() {
				_, err := driver.CreateChatMessage(ctx, alice.ID, model.NewChatMessage{Role: "system", Content: "x"})
				Expect(err).To(BeAssignableToTypeOf(model.ValidationError{}))
			})

			It("clears only the owner's history", func() {
				_, err := driver.CreateChatMessage(ctx, alice.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: "a"})
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.CreateChatMessage(ctx, bob.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: "b"})
				Expect(err).NotTo(HaveOccurred())

				Expect(driver.ClearChatHistory(ctx, alice.ID)).To(Succeed())

				messages, err := driver.GetChatMessages(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(messages).To(BeEmpty())

				messages, err = driver.GetChatMessages(ctx, bob.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(messages).To(HaveLen(1))
			})
		})

		Describe("Questions", func() {
			It("creates pending questions and answers them", func() {
				q, err := driver.CreateQuestion(ctx, alice.ID, model.NewQuestion{Question: "What do you read?"})
				Expect(err).NotTo(HaveOccurred())
				Expect(q.Status).To(Equal(model.QuestionPending))
				Expect(q.Answer).To(BeNil())
				Expect(q.AnsweredAt).To(BeNil())

				answered, err := driver.AnswerQuestion(ctx, q.ID, alice.ID, "Papers")
				Expect(err).NotTo(HaveOccurred())
				Expect(answered.Status).To(Equal(model.QuestionAnswered))
				Expect(*answered.Answer).To(Equal("Papers"))
				Expect(answered.AnsweredAt).NotTo(BeNil())
			})

			It("lists questions newest first", func() {
				_, err := driver.CreateQuestion(ctx, alice.ID, model.NewQuestion{Question: "one"})
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.CreateQuestion(ctx, alice.ID, model.NewQuestion{Question: "two"})
				Expect(err).NotTo(HaveOccurred())

				questions, err := driver.GetQuestions(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(questions).To(HaveLen(2))
				Expect(questions[0].Question).To(Equal("two"))
			})

			It("treats another user's question as missing", func() {
				q, err := driver.CreateQuestion(ctx, alice.ID, model.NewQuestion{Question: "one"})
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.AnswerQuestion(ctx, q.ID, bob.ID, "mine now")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("overwrites a previous answer", func() {
				q, err := driver.CreateQuestion(ctx, alice.ID, model.NewQuestion{Question: "one"})
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.AnswerQuestion(ctx, q.ID, alice.ID, "first")
				Expect(err).NotTo(HaveOccurred())
				answered, err := driver.AnswerQuestion(ctx, q.ID, alice.ID, "second")
				Expect(err).NotTo(HaveOccurred())
				Expect(*answered.Answer).To(Equal("second"))
			})
		})

		Describe("User contexts", func() {
			It("returns not found before the first snapshot", func() {
				_, err := driver.GetUserContext(ctx, alice.ID)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("appends increasing versions", func() {
				first, err := driver.UpdateUserContext(ctx, alice.ID, json.RawMessage(`{"goal":"read"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(first.Version).To(Equal(1))

				second, err := driver.UpdateUserContext(ctx, alice.ID, json.RawMessage(`{"goal":"write"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(second.Version).To(Equal(2))
				Expect(second.ID).NotTo(Equal(first.ID))

				current, err := driver.GetUserContext(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(current.Version).To(Equal(2))
				Expect(string(current.Context)).To(MatchJSON(`{"goal":"write"}`))
			})

			It("versions each user independently", func() {
				_, err := driver.UpdateUserContext(ctx, alice.ID, json.RawMessage(`{}`))
				Expect(err).NotTo(HaveOccurred())

				uc, err := driver.UpdateUserContext(ctx, bob.ID, json.RawMessage(`{}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(uc.Version).To(Equal(1))
			})

			It("returns not found for an unknown user", func() {
				_, err := driver.UpdateUserContext(ctx, 99999, json.RawMessage(`{}`))
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("rejects a context that is not JSON", func() {
				_, err := driver.UpdateUserContext(ctx, alice.ID, json.RawMessage("not json"))
				var ve model.ValidationError
				Expect(errors.As(err, &ve)).To(BeTrue())
				Expect(ve.Field).To(Equal("context"))

				_, err = driver.GetUserContext(ctx, alice.ID)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("stores an empty context as null and returns bytes unchanged", func() {
				uc, err := driver.UpdateUserContext(ctx, alice.ID, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(uc.Context)).To(Equal("null"))

				raw := `{"z": true,  "a": {"n": 1}}`
				_, err = driver.UpdateUserContext(ctx, alice.ID, json.RawMessage(raw))
				Expect(err).NotTo(HaveOccurred())

				current, err := driver.GetUserContext(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(current.Version).To(Equal(2))
				Expect(string(current.Context)).To(Equal(raw))
			})

			It("assigns distinct versions to concurrent updates", func() {
				const writers = 8

				var (
					wg       sync.WaitGroup
					mu       sync.Mutex
					versions []int
					errs     []error
				)
				for i := range writers {
					wg.Add(1)
					go func(i int) {
						defer GinkgoRecover()
						defer wg.Done()

						uc, err := driver.UpdateUserContext(ctx, alice.ID, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))

						mu.Lock()
						defer mu.Unlock()
						if err != nil {
							errs = append(errs, err)
							return
						}
						versions = append(versions, uc.Version)
					}(i)
				}
				wg.Wait()

				Expect(errs).To(BeEmpty())
				Expect(versions).To(ConsistOf(1, 2, 3, 4, 5, 6, 7, 8))

				current, err := driver.GetUserContext(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(current.Version).To(Equal(writers))
			})
		})

		Describe("Profiles", func() {
			It("tags created records with the profile", func() {
				u, err := driver.CreateContextURL(ctx, alice.ID, 7, model.NewURL{URL: "https://example.com"})
				Expect(err).NotTo(HaveOccurred())
				Expect(u.ProfileID).To(Equal(int64(7)))

				m, err := driver.CreateContextChatMessage(ctx, alice.ID, 7, model.NewChatMessage{Role: model.ChatRoleUser, Content: "hi"})
				Expect(err).NotTo(HaveOccurred())
				Expect(m.ProfileID).To(Equal(int64(7)))

				urls, err := driver.GetContextURLs(ctx, alice.ID, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(urls).To(HaveLen(1))
				Expect(urls[0].ProfileID).To(Equal(int64(7)))

				messages, err := driver.GetContextChatMessages(ctx, alice.ID, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(messages).To(HaveLen(1))
				Expect(messages[0].Content).To(Equal("hi"))
			})

			It("returns not found for an unknown owner", func() {
				_, err := driver.CreateContextURL(ctx, 99999, 1, model.NewURL{URL: "https://example.com"})
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			if opts.ScopedProfiles {
				It("keeps profiles separate from each other and from unscoped data", func() {
					_, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://unscoped.example"})
					Expect(err).NotTo(HaveOccurred())
					_, err = driver.CreateContextURL(ctx, alice.ID, 1, model.NewURL{URL: "https://one.example"})
					Expect(err).NotTo(HaveOccurred())

					urls, err := driver.GetContextURLs(ctx, alice.ID, 2)
					Expect(err).NotTo(HaveOccurred())
					Expect(urls).To(BeEmpty())

					urls, err = driver.GetContextURLs(ctx, alice.ID, 1)
					Expect(err).NotTo(HaveOccurred())
					Expect(urls).To(HaveLen(1))
					Expect(urls[0].URL.URL).To(Equal("https://one.example"))

					unscoped, err := driver.GetURLs(ctx, alice.ID)
					Expect(err).NotTo(HaveOccurred())
					Expect(unscoped).To(HaveLen(1))
				})

				It("migrates unscoped data once", func() {
					_, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://a.example"})
					Expect(err).NotTo(HaveOccurred())
					_, err = driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://b.example"})
					Expect(err).NotTo(HaveOccurred())
					_, err = driver.CreateChatMessage(ctx, alice.ID, model.NewChatMessage{Role: model.ChatRoleUser, Content: "hi"})
					Expect(err).NotTo(HaveOccurred())
					_, err = driver.CreateURL(ctx, bob.ID, model.NewURL{URL: "https://bob.example"})
					Expect(err).NotTo(HaveOccurred())

					counts, err := driver.MigrateDataToContext(ctx, alice.ID, 3)
					Expect(err).NotTo(HaveOccurred())
					Expect(counts).To(Equal(model.ContextCounts{URLs: 2, Messages: 1}))

					again, err := driver.MigrateDataToContext(ctx, alice.ID, 3)
					Expect(err).NotTo(HaveOccurred())
					Expect(again).To(Equal(model.ContextCounts{}))

					loaded, err := driver.LoadContextData(ctx, alice.ID, 3)
					Expect(err).NotTo(HaveOccurred())
					Expect(loaded).To(Equal(model.ContextCounts{URLs: 2, Messages: 1}))

					urls, err := driver.GetContextURLs(ctx, alice.ID, 3)
					Expect(err).NotTo(HaveOccurred())
					Expect(urls[0].URL.URL).To(Equal("https://b.example"))
				})
			} else {
				It("reports unscoped totals without migrating", func() {
					_, err := driver.CreateURL(ctx, alice.ID, model.NewURL{URL: "https://a.example"})
					Expect(err).NotTo(HaveOccurred())

					counts, err := driver.MigrateDataToContext(ctx, alice.ID, 3)
					Expect(err).NotTo(HaveOccurred())
					Expect(counts).To(Equal(model.ContextCounts{}))

					loaded, err := driver.LoadContextData(ctx, alice.ID, 3)
					Expect(err).NotTo(HaveOccurred())
					Expect(loaded.URLs).To(Equal(1))
				})
			}
		})
	})
}
