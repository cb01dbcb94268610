package usercmder_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	usercmder "github.com/papercomputeco/leo/cmd/leo/user"
	"github.com/papercomputeco/leo/pkg/auth"
	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
	"github.com/papercomputeco/leo/pkg/storage/sqlite"
)

var _ = Describe("User Command", func() {
	var dbPath string

	execute := func(stdin string, args ...string) (string, error) {
		var out bytes.Buffer
		cmd := usercmder.NewUserCmd()
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--sqlite", dbPath))
		err := cmd.Execute()
		return out.String(), err
	}

	lookup := func(username string) *model.User {
		driver, err := sqlite.NewDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		user, err := driver.GetUserByUsername(context.Background(), username)
		Expect(err).NotTo(HaveOccurred())
		return user
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "leo.sqlite")
	})

	It("has add, role and verify subcommands", func() {
		names := []string{}
		for _, sub := range usercmder.NewUserCmd().Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("add", "role", "verify"))
	})

	Describe("add", func() {
		It("stores a hashed password read from stdin", func() {
			out, err := execute("s3cret\n", "add", "sam")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("sam"))

			user := lookup("sam")
			Expect(user.Role).To(Equal(model.RoleUser))
			Expect(user.Password).NotTo(Equal("s3cret"))

			ok, err := auth.ComparePasswords("s3cret", user.Password)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("grants admin with --admin", func() {
			_, err := execute("s3cret\n", "add", "root", "--admin")
			Expect(err).NotTo(HaveOccurred())
			Expect(lookup("root").Role).To(Equal(model.RoleAdmin))
		})

		It("seeds the demo account alongside", func() {
			_, err := execute("s3cret\n", "add", "sam")
			Expect(err).NotTo(HaveOccurred())
			Expect(lookup(storage.DemoUsername).Username).To(Equal(storage.DemoUsername))
		})

		It("rejects a taken username", func() {
			_, err := execute("s3cret\n", "add", "sam")
			Expect(err).NotTo(HaveOccurred())

			_, err = execute("other\n", "add", "sam")
			var dup storage.DuplicateUsernameError
			Expect(errors.As(err, &dup)).To(BeTrue())
			Expect(dup.Username).To(Equal("sam"))
		})

		It("rejects an empty password", func() {
			_, err := execute("\n", "add", "sam")
			Expect(err).To(HaveOccurred())
		})

		It("fails without input", func() {
			_, err := execute("", "add", "sam")
			Expect(err).To(MatchError(ContainSubstring("no input")))
		})
	})

	Describe("role", func() {
		It("changes the role of an existing user", func() {
			_, err := execute("s3cret\n", "add", "sam")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("", "role", "sam", "admin")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("admin"))
			Expect(lookup("sam").Role).To(Equal(model.RoleAdmin))
		})

		It("rejects unknown roles", func() {
			_, err := execute("", "role", "sam", "owner")
			Expect(err).To(MatchError(ContainSubstring("invalid role")))
		})

		It("reports unknown users", func() {
			_, err := execute("", "role", "nobody", "admin")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("verify", func() {
		BeforeEach(func() {
			_, err := execute("s3cret\n", "add", "sam")
			Expect(err).NotTo(HaveOccurred())
		})

		It("accepts the right password", func() {
			out, err := execute("s3cret\n", "verify", "sam")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("matches"))
		})

		It("rejects the wrong password", func() {
			_, err := execute("nope\n", "verify", "sam")
			Expect(err).To(MatchError(usercmder.ErrBadCredentials))
		})

		It("does not reveal unknown usernames", func() {
			_, err := execute("s3cret\n", "verify", "nobody")
			Expect(err).To(MatchError(usercmder.ErrBadCredentials))
		})

		It("accepts the seeded demo password", func() {
			_, err := execute(storage.DemoPassword+"\n", "verify", storage.DemoUsername)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
