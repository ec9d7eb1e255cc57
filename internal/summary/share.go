package summary

import (
	"fmt"
	"net/url"
	"strings"
)

// Transport identifies a messaging service a summary can be shared to
type Transport string

const (
	WhatsApp Transport = "whatsapp"
	Telegram Transport = "telegram"
)

// byteOrderMark is prepended so messaging apps detect the text as UTF-8
const byteOrderMark = "\uFEFF"

var shareBaseURLs = map[Transport]string{
	WhatsApp: "https://wa.me/?text=",
	Telegram: "https://t.me/share/url?text=",
}

// EncodeText prefixes the byte order mark and percent-encodes text for use as
// a URL query parameter. Spaces become %20 rather than "+".
func EncodeText(text string) string {
	return strings.ReplaceAll(url.QueryEscape(byteOrderMark+text), "+", "%20")
}

// ShareURL builds the link that opens the transport with text prefilled
func ShareURL(t Transport, text string) (string, error) {
	base, ok := shareBaseURLs[Transport(strings.ToLower(string(t)))]
	if !ok {
		return "", fmt.Errorf("unknown transport: %q", t)
	}
	return base + EncodeText(text), nil
}
