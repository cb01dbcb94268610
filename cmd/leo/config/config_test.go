package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/leo/cmd/leo/config"
	"github.com/papercomputeco/leo/pkg/config"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := configcmder.NewConfigCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		Expect(configcmder.NewConfigCmd().Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmds := configcmder.NewConfigCmd().Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "leo-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// A local .leo dir makes the manager pick it up.
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".leo"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("writes the value to config.toml", func() {
			_, err := execute("set", "storage.sqlite_path", "/data/leo.sqlite")
			Expect(err).NotTo(HaveOccurred())

			cfger, err := config.NewConfiger(filepath.Join(tmpDir, ".leo"))
			Expect(err).NotTo(HaveOccurred())
			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.SQLitePath).To(Equal("/data/leo.sqlite"))
		})

		It("masks credentials in its output", func() {
			out, err := execute("set", "vector_store.api_key", "secret-token")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(ContainSubstring("secret-token"))
			Expect(out).To(ContainSubstring("********"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("set", "proxy.provider", "anthropic")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown config key"))
		})

		It("requires exactly two arguments", func() {
			_, err := execute("set", "storage.sqlite_path")
			Expect(err).To(HaveOccurred())

			_, err = execute("set")
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid values", func() {
			_, err := execute("set", "embedding.dimensions", "not-a-number")
			Expect(err).To(HaveOccurred())

			_, err = execute("set", "indexer.timeout", "soon")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("prints a previously set value", func() {
			_, err := execute("set", "embedding.model", "mxbai-embed-large")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("get", "embedding.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("mxbai-embed-large"))
		})

		It("prints defaults when nothing is set", func() {
			out, err := execute("get", "embedding.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("nomic-embed-text"))
		})

		It("marks unset keys", func() {
			out, err := execute("get", "storage.postgres_dsn")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			for _, key := range config.ValidConfigKeys() {
				Expect(out).To(ContainSubstring(key))
			}
		})

		It("masks the postgres DSN", func() {
			_, err := execute("set", "storage.postgres_dsn", "postgres://leo:hunter2@db/leo")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(ContainSubstring("hunter2"))
		})

		It("rejects arguments", func() {
			_, err := execute("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
