package summary

import (
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EncodeText", func() {
	It("should prefix the byte order mark", func() {
		Expect(EncodeText("hi")).To(Equal("%EF%BB%BFhi"))
	})

	It("should encode spaces as %20", func() {
		Expect(EncodeText("a b")).To(Equal("%EF%BB%BFa%20b"))
	})

	It("should encode reserved characters and newlines", func() {
		encoded := EncodeText("1. A pays: Rp 10.000\n&x=1+2")
		Expect(encoded).NotTo(ContainSubstring(" "))
		Expect(encoded).NotTo(ContainSubstring("\n"))
		Expect(encoded).NotTo(ContainSubstring("&"))
		Expect(encoded).To(ContainSubstring("%2B"))
	})

	It("should decode back to the original text", func() {
		text := "\U0001F4B0 Split Bill Summary\n1. Budi pays: Rp 40.250\n     • Es Teh: Rp 10.000\n"
		decoded, err := url.QueryUnescape(EncodeText(text))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal("\uFEFF" + text))
	})
})

var _ = Describe("ShareURL", func() {
	It("should build a WhatsApp link", func() {
		link, err := ShareURL(WhatsApp, "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(link).To(Equal("https://wa.me/?text=%EF%BB%BFhi"))
	})

	It("should build a Telegram link", func() {
		link, err := ShareURL(Telegram, "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.HasPrefix(link, "https://t.me/share/url?text=")).To(BeTrue())
	})

	It("should accept transport names in any case", func() {
		_, err := ShareURL("WhatsApp", "hi")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject unknown transports", func() {
		_, err := ShareURL("carrier-pigeon", "hi")
		Expect(err).To(MatchError(ContainSubstring("unknown transport")))
	})

	It("should produce a parseable URL", func() {
		link, err := ShareURL(WhatsApp, "Total Bill: Rp 69.000\n")
		Expect(err).NotTo(HaveOccurred())
		u, err := url.Parse(link)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Query().Get("text")).To(Equal("\uFEFFTotal Bill: Rp 69.000\n"))
	})
})
