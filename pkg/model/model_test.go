package model_test

import (
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/model"
)

func ptr[T any](v T) *T { return &v }

var _ = Describe("Role", func() {
	It("accepts user and admin only", func() {
		Expect(model.RoleUser.Valid()).To(BeTrue())
		Expect(model.RoleAdmin.Valid()).To(BeTrue())
		Expect(model.Role("owner").Valid()).To(BeFalse())
		Expect(model.Role("").Valid()).To(BeFalse())
	})
})

var _ = Describe("Validate", func() {
	fieldOf := func(err error) string {
		var ve model.ValidationError
		Expect(errors.As(err, &ve)).To(BeTrue())
		return ve.Field
	}

	It("rejects blank usernames and empty passwords", func() {
		Expect(fieldOf(model.NewUser{Username: "  ", Password: "h"}.Validate())).To(Equal("username"))
		Expect(fieldOf(model.NewUser{Username: "alex"}.Validate())).To(Equal("password"))
		Expect(model.NewUser{Username: "alex", Password: "h"}.Validate()).To(Succeed())
	})

	It("requires a url", func() {
		Expect(fieldOf(model.NewURL{Title: ptr("t")}.Validate())).To(Equal("url"))
		Expect(model.NewURL{URL: "https://example.com"}.Validate()).To(Succeed())
	})

	It("checks chat roles and content", func() {
		Expect(fieldOf(model.NewChatMessage{Role: "system", Content: "x"}.Validate())).To(Equal("role"))
		Expect(fieldOf(model.NewChatMessage{Role: model.ChatRoleUser}.Validate())).To(Equal("content"))
		Expect(model.NewChatMessage{Role: model.ChatRoleAssistant, Content: "hi"}.Validate()).To(Succeed())
	})

	It("requires question text", func() {
		err := model.NewQuestion{Question: "\t"}.Validate()
		Expect(err).To(MatchError("invalid question: must not be empty"))
		Expect(model.NewQuestion{Question: "why?"}.Validate()).To(Succeed())
	})
})

var _ = Describe("ValidatePayload", func() {
	It("accepts JSON documents and empty payloads", func() {
		Expect(model.ValidatePayload("context", json.RawMessage(`{"a":[1,2]}`))).To(Succeed())
		Expect(model.ValidatePayload("context", json.RawMessage(`null`))).To(Succeed())
		Expect(model.ValidatePayload("context", nil)).To(Succeed())
	})

	It("names the field of a malformed payload", func() {
		err := model.ValidatePayload("analysis", json.RawMessage(`{broken`))
		Expect(err).To(MatchError("invalid analysis: must be valid JSON"))
	})
})

var _ = Describe("Clone", func() {
	It("deep copies URL pointers and analysis", func() {
		orig := &model.URL{
			ID:       1,
			Title:    ptr("title"),
			Content:  ptr("body"),
			Analysis: json.RawMessage(`{"k":1}`),
		}
		c := orig.Clone()
		Expect(c).To(Equal(orig))

		*c.Title = "changed"
		c.Analysis[2] = 'x'
		Expect(*orig.Title).To(Equal("title"))
		Expect(string(orig.Analysis)).To(Equal(`{"k":1}`))
		Expect(c.Notes).To(BeNil())
	})

	It("deep copies question answers", func() {
		at := time.Now()
		orig := &model.Question{Answer: ptr("yes"), AnsweredAt: &at, Status: model.QuestionAnswered}
		c := orig.Clone()
		*c.Answer = "no"
		*c.AnsweredAt = at.Add(time.Hour)
		Expect(*orig.Answer).To(Equal("yes"))
		Expect(*orig.AnsweredAt).To(Equal(at))
	})

	It("deep copies context payloads", func() {
		orig := &model.UserContext{Version: 2, Context: json.RawMessage(`[1]`)}
		c := orig.Clone()
		c.Context[1] = '2'
		Expect(string(orig.Context)).To(Equal(`[1]`))
	})

	It("returns nil for nil receivers", func() {
		var u *model.URL
		var q *model.Question
		var uc *model.UserContext
		Expect(u.Clone()).To(BeNil())
		Expect(q.Clone()).To(BeNil())
		Expect(uc.Clone()).To(BeNil())
	})
})
