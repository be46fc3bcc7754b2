// Package testutil provides testing utilities for the SEMP client.
package testutil

import (
	"fmt"
	"strings"
)

// Version is the SEMP version used in generated replies.
const Version = "soltr/9_0"

// OKReply builds a successful rpc-reply around body. A non-empty cookie is
// embedded as a more-cookie element.
func OKReply(body, cookie string) string {
	return reply(body, cookie, "ok")
}

// FailReply builds an rpc-reply whose execute-result carries code.
func FailReply(code string) string {
	return reply("", "", code)
}

// QueuePage builds a "show queue" reply listing names.
func QueuePage(names []string, cookie string) string {
	var b strings.Builder
	b.WriteString("<show><queue><queues>")
	for _, name := range names {
		fmt.Fprintf(&b, "<queue><name>%s</name></queue>", name)
	}
	b.WriteString("</queues></queue></show>")
	return OKReply(b.String(), cookie)
}

func reply(body, cookie, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<rpc-reply semp-version="%s">`, Version)
	if body != "" {
		fmt.Fprintf(&b, "<rpc>%s</rpc>", body)
	}
	if cookie != "" {
		fmt.Fprintf(&b, "<more-cookie>%s</more-cookie>", cookie)
	}
	fmt.Fprintf(&b, `<execute-result code="%s"/>`, code)
	b.WriteString("</rpc-reply>")
	return b.String()
}
