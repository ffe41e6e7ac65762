package normalize

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseDecimal", func() {
	DescribeTable("locale tolerant parsing",
		func(in string, want float64) {
			got, err := ParseDecimal(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNumerically("~", want, 1e-9))
		},
		Entry("period", "3.08", 3.08),
		Entry("comma", "3,08", 3.08),
		Entry("three decimals", "1,230", 1.23),
		Entry("thousands with comma decimal", "1.234,56", 1234.56),
		Entry("thousands with period decimal", "1,234.56", 1234.56),
		Entry("trailing minus", "1,50-", -1.5),
		Entry("leading minus", "-0.40", -0.4),
		Entry("surrounding spaces", "  2.00 ", 2.0),
	)

	It("returns an error for non numbers", func() {
		_, err := ParseDecimal("abc")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("parsing decimal"))
	})
})

var _ = Describe("Round2", func() {
	It("rounds to cents", func() {
		Expect(Round2(1.23 * 2.5)).To(Equal(3.08))
		Expect(Round2(2.004)).To(Equal(2.0))
	})
})
