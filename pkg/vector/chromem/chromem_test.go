package chromem_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/vector"
	"github.com/papercomputeco/leo/pkg/vector/chromem"
	"github.com/papercomputeco/leo/pkg/vector/vectortest"
)

var _ = vectortest.DescribeDriver("chromem", func() vector.Driver {
	driver, err := chromem.NewDriver(chromem.Config{}, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return driver
})

var _ = Describe("NewDriver", func() {
	It("persists documents to a directory", func() {
		ctx := context.Background()
		dir := GinkgoT().TempDir()

		driver, err := chromem.NewDriver(chromem.Config{PersistPath: dir}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Add(ctx, []vector.Document{
			vectortest.Doc(vector.KindURL, 1, 1, "kept", 1, 0, 0, 0),
		})).To(Succeed())
		Expect(driver.Close()).To(Succeed())

		reopened, err := chromem.NewDriver(chromem.Config{PersistPath: dir}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		results, err := reopened.Query(ctx, []float32{1, 0, 0, 0}, 5, vector.Filter{UserID: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Text).To(Equal("kept"))
		Expect(results[0].SourceID).To(Equal(int64(1)))
	})

	It("should implement vector.Driver interface", func() {
		var _ vector.Driver = (*chromem.Driver)(nil)
	})
})
