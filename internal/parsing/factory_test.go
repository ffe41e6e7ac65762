package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type namedStrategy string

func (n namedStrategy) Name() string { return string(n) }

func (n namedStrategy) Parse(rawText string) ParsedReceipt {
	return ParsedReceipt{Header: ReceiptHeader{Store: string(n)}, Items: []ParsedItem{}, RawText: rawText}
}

var _ = Describe("Registry", func() {
	var registry *Registry

	BeforeEach(func() {
		registry = NewRegistry()
	})

	DescribeTable("Get",
		func(store, expected string) {
			Expect(registry.Get(store).Name()).To(Equal(expected))
		},
		Entry("upper case", "LIDL", "lidl"),
		Entry("lower case", "lidl", "lidl"),
		Entry("a branch name", "LIDL NICOSIA", "lidl"),
		Entry("alphamega", "Alphamega", "alphamega"),
		Entry("a spaced alias", "Alpha Mega Limassol", "alphamega"),
		Entry("the Greek spelling", "ΑΛΦΑΜΕΓΑ", "alphamega"),
		Entry("an unknown store", "Some Unknown Mini Market", "generic"),
		Entry("no store", "", "generic"),
	)

	It("falls back to the generic strategy", func() {
		Expect(registry.Get("Some Unknown Mini Market")).To(Equal(registry.Fallback()))
	})

	Describe("Detect", func() {
		It("uses the first line naming a store", func() {
			Expect(registry.Detect("ALPHAMEGA\nΣΥΝΟΛΟ 3,00").Name()).To(Equal("alphamega"))
		})

		It("falls back when nothing matches", func() {
			Expect(registry.Detect("CORNER SHOP\nTOTAL 1,00").Name()).To(Equal("generic"))
		})
	})

	When("a strategy is registered", func() {
		BeforeEach(func() {
			registry.Register("Papas", namedStrategy("papas"))
		})

		It("is found by name", func() {
			Expect(registry.Get("PAPAS HYPERMARKET").Name()).To(Equal("papas"))
		})

		It("keeps the built-in strategies", func() {
			Expect(registry.Get("lidl").Name()).To(Equal("lidl"))
		})
	})
})
