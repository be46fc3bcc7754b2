package bus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nats-io/nats.go"
)

// Message is a message delivered by a subscription, consumer or flow.
type Message struct {
	// Subject the message was published to.
	Subject string

	// Reply is the reply subject, empty unless the sender expects an answer.
	Reply string

	// ID is the publisher-assigned message ID, if any.
	ID string

	Header  nats.Header
	Payload []byte

	msg     *nats.Msg
	ackable bool
}

func newMessage(m *nats.Msg, ackable bool) *Message {
	msg := &Message{
		Subject: m.Subject,
		Reply:   m.Reply,
		Header:  m.Header,
		Payload: m.Data,
		msg:     m,
		ackable: ackable,
	}
	if m.Header != nil {
		msg.ID = m.Header.Get(nats.MsgIdHdr)
	}
	return msg
}

// Text returns the payload as a string.
func (m *Message) Text() string {
	return string(m.Payload)
}

// Destination describes where the message was sent, e.g. "Topic 'a/b'" or
// "Queue 'q1'".
func (m *Message) Destination() string {
	if queue, ok := strings.CutPrefix(m.Subject, QueueSubjectPrefix); ok {
		return fmt.Sprintf("Queue '%s'", queue)
	}
	return fmt.Sprintf("Topic '%s'", m.Subject)
}

// Dump renders the message for display, one property per line.
func (m *Message) Dump() string {
	var b strings.Builder
	line := func(key, value string) {
		fmt.Fprintf(&b, "%-40s%s\n", key+":", value)
	}

	line("Destination", m.Destination())
	if m.Reply != "" {
		line("Reply To", m.Reply)
	}
	if m.ID != "" {
		line("Message Id", m.ID)
	}

	keys := make([]string, 0, len(m.Header))
	for k := range m.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line("Header "+k, strings.Join(m.Header[k], ", "))
	}

	line("Binary Attachment", fmt.Sprintf("len=%d", len(m.Payload)))
	if len(m.Payload) > 0 {
		b.WriteString(string(m.Payload))
		b.WriteString("\n")
	}
	return b.String()
}

// Ack acknowledges a message received from a queue flow. Topic messages are
// not acknowledgeable.
func (m *Message) Ack() error {
	if !m.ackable || m.msg == nil {
		return ErrNotAcknowledgeable
	}
	return m.msg.Ack()
}
