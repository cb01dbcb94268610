package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("runs fn and prints a success mark", func() {
		var buf bytes.Buffer
		ran := false

		err := cliui.Step(&buf, "Copying rows", func() error {
			ran = true
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ran).To(BeTrue())
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark + " Copying rows"))
		Expect(buf.String()).To(HaveSuffix("\n"))
	})

	It("returns the error from fn with a fail mark", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "Copying rows", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark + " Copying rows"))
	})
})

var _ = Describe("Mark", func() {
	It("picks the mark from the error", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds under a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds from one second up", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("KeyValue", func() {
	It("prints the value", func() {
		var buf bytes.Buffer
		cliui.KeyValue(&buf, "storage.sqlite_path", "/data/leo.sqlite")
		Expect(buf.String()).To(ContainSubstring("storage.sqlite_path"))
		Expect(buf.String()).To(ContainSubstring("/data/leo.sqlite"))
	})

	It("marks empty values", func() {
		var buf bytes.Buffer
		cliui.KeyValue(&buf, "storage.postgres_dsn", "")
		Expect(buf.String()).To(ContainSubstring("<not set>"))
	})
})

var _ = Describe("Table", func() {
	It("renders headers and cells", func() {
		out := cliui.Table([]string{"ID", "Username"}, [][]string{{"1", "alex"}, {"2", "sam"}})
		Expect(out).To(ContainSubstring("Username"))
		Expect(out).To(ContainSubstring("alex"))
		Expect(out).To(ContainSubstring("sam"))
	})
})
