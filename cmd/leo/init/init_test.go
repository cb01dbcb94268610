package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/leo/cmd/leo/init"
	"github.com/papercomputeco/leo/pkg/config"
)

func loadConfig(dir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(dir, ".leo", "config.toml"))
	Expect(err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	Expect(toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := initcmder.NewInitCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		f := initcmder.NewInitCmd().Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "leo-init-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("creates a .leo directory with a default config", func() {
		out, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Initialized"))

		info, err := os.Stat(filepath.Join(tmpDir, ".leo"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.SQLitePath).To(Equal(filepath.Join(tmpDir, ".leo", "leo.sqlite")))
		Expect(cfg.VectorStore.Provider).To(BeEmpty())
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
	})

	It("leaves an existing config alone without --preset", func() {
		dir := filepath.Join(tmpDir, ".leo")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[storage]\nsqlite_path = \"/data/leo.db\"\n"), 0o600)).To(Succeed())

		out, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Already initialized"))
		Expect(loadConfig(tmpDir).Storage.SQLitePath).To(Equal("/data/leo.db"))
	})

	It("writes into --config-dir when given", func() {
		target := filepath.Join(tmpDir, "elsewhere")

		cmd := initcmder.NewInitCmd()
		cmd.Flags().String("config-dir", "", "")
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config-dir", target})
		Expect(cmd.Execute()).To(Succeed())

		_, err := os.Stat(filepath.Join(target, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("--preset with search presets", func() {
		It("points the local preset at sqlite-vec inside .leo", func() {
			_, err := execute("--preset", "local")
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.VectorStore.Provider).To(Equal("sqlite-vec"))
			Expect(cfg.VectorStore.Target).To(Equal(filepath.Join(tmpDir, ".leo", "vectors.sqlite")))
		})

		It("keeps the chroma target", func() {
			_, err := execute("--preset", "chroma")
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.VectorStore.Provider).To(Equal("chroma"))
			Expect(cfg.VectorStore.Target).To(Equal("http://localhost:8000"))
			Expect(cfg.VectorStore.Tenant).To(Equal("default_tenant"))
		})

		It("persists chromem under .leo for the openai preset", func() {
			_, err := execute("--preset", "openai")
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.VectorStore.Provider).To(Equal("chromem"))
			Expect(cfg.VectorStore.Target).To(Equal(filepath.Join(tmpDir, ".leo", "vectors")))
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("overwrites an existing config", func() {
			_, err := execute()
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("--preset", "qdrant")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Reinitialized"))
			Expect(loadConfig(tmpDir).VectorStore.Provider).To(Equal("qdrant"))
		})

		It("rejects unknown preset names", func() {
			_, err := execute("--preset", "pinecone")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown preset"))

			_, statErr := os.Stat(filepath.Join(tmpDir, ".leo"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes a remote config.toml", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `version = 0

[storage]
postgres_dsn = "postgres://leo:leo@db:5432/leo"

[vector_store]
provider = "qdrant"
target = "qdrant:6334"
`)
			}))
			defer server.Close()

			_, err := execute("--preset", server.URL)
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://leo:leo@db:5432/leo"))
			Expect(cfg.Storage.SQLitePath).To(BeEmpty())
			Expect(cfg.VectorStore.Target).To(Equal("qdrant:6334"))
		})

		It("returns an error for non-200 responses", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			_, err := execute("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("HTTP 404"))
		})

		It("returns an error for invalid TOML", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			_, err := execute("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing"))
		})

		It("returns an error for an unreachable URL", func() {
			_, err := execute("--preset", "http://127.0.0.1:1")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetching remote config"))
		})
	})
})
