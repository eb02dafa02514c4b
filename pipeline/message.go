// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TextMax is the maximum message body length in bytes. Longer text is
// truncated at a UTF-8 rune boundary, never rejected. The body is
// stored inline in the Message so the enqueue path performs no heap
// allocation.
const TextMax = 512

// TagNameMax is the maximum length of an ad-hoc tag name in bytes.
const TagNameMax = 32

// tagName is a fixed-capacity inline string. Comparable with ==, so
// Tags can be map keys and filter-set members without allocation.
type tagName struct {
	length uint8
	data   [TagNameMax]byte
}

func makeTagName(s string) tagName {
	var name tagName
	n := len(s)
	if n > TagNameMax {
		n = truncateUTF8(s, TagNameMax)
	}
	name.length = uint8(copy(name.data[:], s[:n]))
	return name
}

func (n tagName) String() string { return string(n.data[:n.length]) }

// adHocTagID marks a Tag whose name is free text rather than one of
// the known subsystem tags.
const adHocTagID = 0xFF

// Tag is a short category label attached to a message for routing and
// filtering. Tags are comparable values: the known subsystem tags
// compare by identity, ad-hoc tags by name. The zero Tag means
// "untagged" — whether untagged messages reach a given target is that
// target's process-untagged policy.
type Tag struct {
	id   uint8
	name tagName
}

// Known subsystem tags. These cover the common engine subsystems;
// anything else goes through [AdHocTag].
var (
	TagPhysics = Tag{id: 1}
	TagAudio   = Tag{id: 2}
	TagRender  = Tag{id: 3}
	TagNetwork = Tag{id: 4}
	TagInput   = Tag{id: 5}
	TagAsset   = Tag{id: 6}
	TagScript  = Tag{id: 7}
	TagSystem  = Tag{id: 8}
)

var knownTagNames = [...]string{
	1: "Physics",
	2: "Audio",
	3: "Render",
	4: "Network",
	5: "Input",
	6: "Asset",
	7: "Script",
	8: "System",
}

// AdHocTag creates a tag from a free-text category name. The name is
// truncated to TagNameMax bytes. An empty name yields the zero
// (untagged) Tag.
func AdHocTag(name string) Tag {
	if name == "" {
		return Tag{}
	}
	return Tag{id: adHocTagID, name: makeTagName(name)}
}

// ParseTag resolves a tag name to a known tag if one matches
// (case-insensitively), otherwise returns an ad-hoc tag. Empty input
// yields the zero Tag.
func ParseTag(name string) Tag {
	for id, known := range knownTagNames {
		if known != "" && strings.EqualFold(name, known) {
			return Tag{id: uint8(id)}
		}
	}
	return AdHocTag(name)
}

// IsZero reports whether the tag is the untagged zero value.
func (t Tag) IsZero() bool { return t.id == 0 }

// String returns the tag name, or "" for the zero Tag.
func (t Tag) String() string {
	if t.id == adHocTagID {
		return t.name.String()
	}
	if int(t.id) < len(knownTagNames) {
		return knownTagNames[t.id]
	}
	return ""
}

// Message is one log entry. It is a value type copied freely through
// the pipeline; once constructed it is immutable except for its
// optional Properties, which middleware may enrich in place. The text
// body lives inline so producer-side construction allocates nothing.
type Message struct {
	// Level is the message severity.
	Level Level

	// Tag is the subsystem or category label. Zero means untagged.
	Tag Tag

	// Timestamp is assigned at enqueue time by the producer, never
	// by the consumer, so causal ordering survives consumer delay.
	Timestamp time.Time

	textLen uint16
	text    [TextMax]byte

	props *Properties
}

// NewMessage builds a message. Text longer than TextMax bytes is
// truncated at a rune boundary. Ownership of props (which may be nil)
// transfers into the message; it is released exactly once by whichever
// pipeline stage gives the message its terminal state.
func NewMessage(level Level, tag Tag, text string, props *Properties, timestamp time.Time) Message {
	msg := Message{
		Level:     level,
		Tag:       tag,
		Timestamp: timestamp,
		props:     props,
	}
	n := len(text)
	if n > TextMax {
		n = truncateUTF8(text, TextMax)
	}
	msg.textLen = uint16(copy(msg.text[:], text[:n]))
	return msg
}

// Text returns the message body as a string. This copies; use
// [Message.TextBytes] on hot paths.
func (m *Message) Text() string { return string(m.text[:m.textLen]) }

// TextBytes returns the message body without copying. The slice
// aliases the message's inline buffer and must not be retained past
// the message's lifetime.
func (m *Message) TextBytes() []byte { return m.text[:m.textLen] }

// Properties returns the structured context attached to the message,
// or nil. Middleware may append to it; nothing may release it except
// the stage that terminates the message.
func (m *Message) Properties() *Properties { return m.props }

// SetProperties attaches a properties container to a message that has
// none. Used by enrichment middleware; panics if the message already
// carries properties (that would leak the existing container).
func (m *Message) SetProperties(props *Properties) {
	if m.props != nil {
		panic("pipeline: SetProperties on a message that already has properties")
	}
	m.props = props
}

// Category returns the message's category, a secondary free-text
// grouping carried as the "category" property. Empty if the message
// has no properties or no category property.
func (m *Message) Category() string {
	if m.props == nil {
		return ""
	}
	value, _ := m.props.Get(CategoryKey)
	return value
}

// release gives the message its terminal state, returning any
// properties container to the pool. Safe to call on a message without
// properties.
func (m *Message) release() {
	if m.props != nil {
		m.props.Release()
		m.props = nil
	}
}

// truncateUTF8 returns the largest n ≤ limit such that s[:n] does not
// split a UTF-8 sequence.
func truncateUTF8(s string, limit int) int {
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
