package semp

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// ResultOK is the execute-result code of a successful SEMP command.
const ResultOK = "ok"

// Reply is a SEMP reply payload.
type Reply struct {
	Payload []byte
}

// NewReply wraps a payload.
func NewReply(payload []byte) *Reply {
	return &Reply{Payload: payload}
}

// String returns the payload as text.
func (r *Reply) String() string {
	return string(r.Payload)
}

// Len returns the payload size in bytes.
func (r *Reply) Len() int {
	return len(r.Payload)
}

// IsEmpty reports whether the reply carries no payload.
func (r *Reply) IsEmpty() bool {
	return len(bytes.TrimSpace(r.Payload)) == 0
}

// ResultCode returns the code attribute of the reply's <execute-result>
// element, or "" when the element is absent.
func (r *Reply) ResultCode() (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(r.Payload))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", &Error{Kind: KindParse, Message: "decode reply", Err: err}
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "execute-result" {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Local == "code" {
				return attr.Value, nil
			}
		}
		return "", nil
	}
}

// Validate checks the execute-result of the reply. An empty reply is
// accepted; it carries neither a status nor a continuation token.
func (r *Reply) Validate() error {
	if r.IsEmpty() {
		return nil
	}
	code, err := r.ResultCode()
	if err != nil {
		return err
	}
	if code != ResultOK {
		return &Error{
			Kind:    KindProtocol,
			Code:    code,
			Message: "SEMP response not OK",
		}
	}
	return nil
}

// MoreCookie extracts the continuation token. It reports false when the
// reply has no (or an empty) more-cookie element. A start tag without a
// matching end tag is a KindParse error.
func (r *Reply) MoreCookie() (string, bool, error) {
	s := string(r.Payload)
	start := strings.Index(s, MoreCookieStart)
	if start < 0 {
		return "", false, nil
	}
	rest := s[start+len(MoreCookieStart):]
	end := strings.Index(rest, MoreCookieEnd)
	if end < 0 {
		return "", false, &Error{Kind: KindParse, Message: "more-cookie end tag missing"}
	}
	token := strings.TrimSpace(rest[:end])
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

type showQueueReply struct {
	Queues []struct {
		Name string `xml:"name"`
	} `xml:"rpc>show>queue>queues>queue"`
}

// QueueNames lists the queue names of a "show queue" reply.
func (r *Reply) QueueNames() ([]string, error) {
	if r.IsEmpty() {
		return nil, nil
	}
	var doc showQueueReply
	if err := xml.Unmarshal(r.Payload, &doc); err != nil {
		return nil, &Error{Kind: KindParse, Message: "decode show queue reply", Err: err}
	}
	names := make([]string, 0, len(doc.Queues))
	for _, q := range doc.Queues {
		names = append(names, strings.TrimSpace(q.Name))
	}
	return names, nil
}

// PermissionError reports whether the router refused the command, which
// usually means SEMP over the message bus is disabled for the VPN.
func (r *Reply) PermissionError() bool {
	return bytes.Contains(r.Payload, []byte("<permission-error>"))
}

// TrimForDisplay puts an XML document on one line and truncates it to
// length characters, ending truncated output with "...".
func TrimForDisplay(s string, length int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if length > 4 && len(s) > length {
		return s[:length-4] + "..."
	}
	return s
}
