package contextcmder_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	contextcmder "github.com/papercomputeco/leo/cmd/leo/context"
	"github.com/papercomputeco/leo/pkg/auth"
	"github.com/papercomputeco/leo/pkg/storage"
	"github.com/papercomputeco/leo/pkg/storage/sqldriver"
	"github.com/papercomputeco/leo/pkg/storage/sqlite"
)

var _ = Describe("Context Command", func() {
	var dbPath string

	execute := func(stdin string, args ...string) (string, error) {
		var out bytes.Buffer
		cmd := contextcmder.NewContextCmd()
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--sqlite", dbPath))
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "leo.sqlite")
	})

	It("reports a missing context", func() {
		out, err := execute("", "show", storage.DemoUsername)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No context saved"))
	})

	It("appends versions and shows the latest", func() {
		out, err := execute("", "set", storage.DemoUsername, `{"goal":"learn go"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("version 1"))

		out, err = execute(`{"goal":"ship leo"}`, "set", storage.DemoUsername, "-")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("version 2"))

		out, err = execute("", "show", storage.DemoUsername)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("ship leo"))
		Expect(out).NotTo(ContainSubstring("learn go"))

		ctx := context.Background()
		driver, err := sqlite.NewDriver(ctx, dbPath, sqldriver.WithPasswordHasher(auth.HashPassword))
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		demo, err := driver.GetUserByUsername(ctx, storage.DemoUsername)
		Expect(err).NotTo(HaveOccurred())
		uc, err := driver.GetUserContext(ctx, demo.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(uc.Version).To(Equal(2))
		Expect(uc.Context).To(MatchJSON(`{"goal":"ship leo"}`))
	})

	It("rejects invalid JSON before touching storage", func() {
		_, err := execute("", "set", storage.DemoUsername, "{not json")
		Expect(err).To(MatchError("context must be valid JSON"))
	})

	It("reports unknown users", func() {
		_, err := execute("", "show", "nobody")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})
})
