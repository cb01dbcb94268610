package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		origHome string
		origXDG  string
		origCwd  string
	)

	BeforeEach(func() {
		origHome = os.Getenv("HOME")
		origXDG = os.Getenv("XDG_DATA_HOME")
		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Setenv("HOME", GinkgoT().TempDir())).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())
		Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Setenv("HOME", origHome)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", origXDG)).To(Succeed())
		Expect(os.Chdir(origCwd)).To(Succeed())
	})

	It("returns the override untouched", func() {
		Expect(ResolveSQLitePath("/tmp/custom.db")).To(Equal("/tmp/custom.db"))
	})

	It("returns empty when nothing exists", func() {
		Expect(ResolveSQLitePath("")).To(BeEmpty())
	})

	It("finds a database in the local .leo directory", func() {
		Expect(os.MkdirAll(".leo", 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(".leo", DefaultFile), []byte("test"), 0o644)).To(Succeed())

		Expect(ResolveSQLitePath("")).To(Equal(filepath.Join(".leo", DefaultFile)))
	})

	It("finds ~/.leo/leo.db", func() {
		home := os.Getenv("HOME")
		dbPath := filepath.Join(home, ".leo", "leo.db")
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		Expect(ResolveSQLitePath("")).To(Equal(dbPath))
	})

	It("prefers the working directory over home", func() {
		home := os.Getenv("HOME")
		Expect(os.MkdirAll(filepath.Join(home, ".leo"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(home, ".leo", "leo.db"), []byte("test"), 0o644)).To(Succeed())
		Expect(os.WriteFile("leo.db", []byte("test"), 0o644)).To(Succeed())

		Expect(ResolveSQLitePath("")).To(Equal("leo.db"))
	})
})
