// Package semp provides the vocabulary for talking to a broker's SEMP
// management interface: request builders, reply parsing, error kinds and
// the Transport abstraction shared by the HTTP and message-bus clients.
package semp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// DefaultVersion is the SEMP schema version sent when none is configured.
const DefaultVersion = "soltr/9_0"

// DefaultHTTPPath is the management endpoint path on the router.
const DefaultHTTPPath = "/SEMP"

// Continuation token delimiters.
const (
	MoreCookieStart = "<more-cookie>"
	MoreCookieEnd   = "</more-cookie>"
)

// CookiePlaceholder marks where a request template expects the continuation
// token. Templates without it get a more-cookie element appended instead.
const CookiePlaceholder = "{{more-cookie}}"

// Topic returns the message-bus destination for SEMP show requests
// addressed to the named router.
func Topic(routerName string) string {
	return fmt.Sprintf("#SEMP/%s/SHOW", routerName)
}

// ShowQueues builds a paged "show queue" request returning numElements
// queues per reply.
func ShowQueues(version, name string, numElements int) []byte {
	return rpc(version, fmt.Sprintf(
		"<show><queue><name>%s</name><count/><num-elements>%d</num-elements></queue></show>",
		escape(name), numElements))
}

// ShowClients builds a "show client" request.
func ShowClients(version, name string) []byte {
	return rpc(version, fmt.Sprintf("<show><client><name>%s</name></client></show>", escape(name)))
}

// ShowClientStats builds a "show stats client" request.
func ShowClientStats(version string) []byte {
	return rpc(version, "<show><stats><client/></stats></show>")
}

// ShowHostname builds the cheapest show request, used for throughput tests.
func ShowHostname(version string) []byte {
	return rpc(version, "<show><hostname/></show>")
}

func rpc(version, body string) []byte {
	if version == "" {
		version = DefaultVersion
	}
	return []byte(fmt.Sprintf(`<rpc semp-version="%s">%s</rpc>`, escape(version), body))
}

func escape(s string) string {
	var b strings.Builder
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// ContinuationFunc derives the next request from the original template and
// the continuation token taken from the previous reply.
type ContinuationFunc func(template []byte, token string) []byte

// Continue is the default ContinuationFunc.
//
// Routers return the complete follow-up command inside the more-cookie, so a
// token that is itself an <rpc> document is sent as-is. Otherwise the token
// replaces CookiePlaceholder in the template, or is appended as a
// more-cookie element before the closing </rpc>.
func Continue(template []byte, token string) []byte {
	if strings.HasPrefix(token, "<rpc") {
		return []byte(token)
	}
	if bytes.Contains(template, []byte(CookiePlaceholder)) {
		return bytes.ReplaceAll(template, []byte(CookiePlaceholder), []byte(token))
	}

	cookie := MoreCookieStart + token + MoreCookieEnd
	idx := bytes.LastIndex(template, []byte("</rpc>"))
	if idx < 0 {
		return append(append([]byte{}, template...), cookie...)
	}
	next := make([]byte, 0, len(template)+len(cookie))
	next = append(next, template[:idx]...)
	next = append(next, cookie...)
	next = append(next, template[idx:]...)
	return next
}
