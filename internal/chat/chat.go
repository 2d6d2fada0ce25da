// Package chat implements the canned equipment-assistant widget. It
// keeps a local transcript and answers from a fixed response set; no
// network is involved.
package chat

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one transcript entry.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
}

const greeting = "Hello! I'm your Chemical Equipment Assistant. I can help you " +
	"analyze equipment data, answer questions about parameters, and provide " +
	"insights. How can I help you today?"

var responses = []string{
	"That's an interesting question about chemical equipment parameters. Could you provide more details about the specific equipment or parameter you're interested in?",
	"Based on typical chemical equipment analysis, I can help you understand flowrate, pressure, and temperature relationships. What would you like to know?",
	"The CSV upload feature allows you to batch import equipment data. Once uploaded, you'll see comprehensive analytics and visualizations of your equipment parameters.",
	"I can help you interpret the data visualizations. Are you looking for insights on a specific equipment type or parameter range?",
	"Great question! Equipment performance is typically influenced by temperature, pressure, and flowrate. Would you like me to explain these relationships?",
}

// Conversation holds the transcript. Not safe for concurrent use; the
// dashboard drives it from a single update loop.
type Conversation struct {
	messages []Message
	pick     func(n int) int
	now      func() time.Time
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithPick overrides the response selector. pick receives the response
// count and returns an index; used for deterministic tests.
func WithPick(pick func(n int) int) Option {
	return func(c *Conversation) { c.pick = pick }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// New creates a Conversation seeded with the assistant's greeting.
func New(opts ...Option) *Conversation {
	c := &Conversation{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pick == nil {
		c.pick = defaultPick
	}
	c.messages = []Message{{
		ID:        uuid.NewString(),
		Text:      greeting,
		Sender:    SenderBot,
		Timestamp: c.now(),
	}}
	return c
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Post appends a user message to the transcript. Blank input is
// ignored and reported false.
func (c *Conversation) Post(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	c.messages = append(c.messages, Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderUser,
		Timestamp: c.now(),
	})
	return true
}

// Reply appends and returns the assistant's next canned response. The
// dashboard calls it after a short delay to mimic a typing assistant.
func (c *Conversation) Reply() Message {
	reply := Message{
		ID:        uuid.NewString(),
		Text:      responses[c.pick(len(responses))%len(responses)],
		Sender:    SenderBot,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, reply)
	return reply
}

// Send posts the user's message and immediately produces the reply.
// Blank input is ignored and reported false.
func (c *Conversation) Send(text string) (Message, bool) {
	if !c.Post(text) {
		return Message{}, false
	}
	return c.Reply(), true
}

func defaultPick(n int) int {
	return rand.Intn(n)
}
