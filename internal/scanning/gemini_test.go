package scanning

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Gemini", func() {
	When("no API key is configured", func() {
		It("fails at call time", func() {
			g := NewGemini("", "")
			_, err := g.Generate(context.Background(), "prompt", Image{Data: []byte("x"), MIMEType: "image/png"})
			Expect(err).To(MatchError(ErrMissingAPIKey))
		})

		It("closes without a client", func() {
			Expect(NewGemini("", "").Close()).To(Succeed())
		})
	})
})
