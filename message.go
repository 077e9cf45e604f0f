package pushstore

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/DrmagicE/pushstore/pkg/packets"
)

// QoS is the delivery guarantee level of a message.
type QoS = uint8

const (
	QoS0 QoS = packets.Qos0
	QoS1 QoS = packets.Qos1
	QoS2 QoS = packets.Qos2
)

// ValidQoS reports whether q is one of QoS0, QoS1 and QoS2.
func ValidQoS(q QoS) bool {
	return q <= QoS2
}

// StoredMessage is a retained message. The payload is owned by the message,
// use NewStoredMessage to build one from a caller owned buffer.
type StoredMessage struct {
	QoS     QoS
	Payload []byte
	Topic   string
}

// NewStoredMessage copies payload into a new buffer owned by the returned message.
// The caller may reuse payload after the call returns.
func NewStoredMessage(topic string, payload []byte, qos QoS) *StoredMessage {
	return &StoredMessage{
		QoS:     qos,
		Payload: copyBytes(payload),
		Topic:   topic,
	}
}

// Copy returns a deep copy of the message.
func (m *StoredMessage) Copy() *StoredMessage {
	if m == nil {
		return nil
	}
	return NewStoredMessage(m.Topic, m.Payload, m.QoS)
}

// Equal compares two messages by content.
func (m *StoredMessage) Equal(o *StoredMessage) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.QoS == o.QoS && m.Topic == o.Topic && bytes.Equal(m.Payload, o.Payload)
}

// PublishEvent is one publish delivery attempt to a client.
// It carries everything needed to re-encode and re-send the PUBLISH packet.
type PublishEvent struct {
	ClientID string
	Topic    string
	Payload  []byte
	QoS      QoS
	PacketID packets.PacketID
	Retain   bool
	Dup      bool
}

// Copy returns a deep copy of the event.
func (e *PublishEvent) Copy() *PublishEvent {
	if e == nil {
		return nil
	}
	c := *e
	c.Payload = copyBytes(e.Payload)
	return &c
}

// Duplicate returns a copy of the event with the Dup flag set.
// This is the event that should be sent on retransmission.
func (e *PublishEvent) Duplicate() *PublishEvent {
	c := e.Copy()
	if c != nil {
		c.Dup = true
	}
	return c
}

// Key returns the in-flight key of the event.
func (e *PublishEvent) Key() Key {
	return Key{ClientID: e.ClientID, PacketID: e.PacketID}
}

// Equal compares two events by content.
func (e *PublishEvent) Equal(o *PublishEvent) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.ClientID == o.ClientID &&
		e.Topic == o.Topic &&
		bytes.Equal(e.Payload, o.Payload) &&
		e.QoS == o.QoS &&
		e.PacketID == o.PacketID &&
		e.Retain == o.Retain &&
		e.Dup == o.Dup
}

func (e *PublishEvent) String() string {
	return fmt.Sprintf("Publish - ClientID: %s, Topic: %s, Pid: %d, Qos: %d, Retain: %t, Dup: %t, Payload: %d bytes",
		e.ClientID, e.Topic, e.PacketID, e.QoS, e.Retain, e.Dup, len(e.Payload))
}

// PubrelEvent is the release step of a QoS2 exchange.
type PubrelEvent struct {
	ClientID string
	PacketID packets.PacketID
	// Topic of the PUBLISH being released, kept for logging and re-send context.
	Topic string
}

// Copy returns a copy of the event.
func (e *PubrelEvent) Copy() *PubrelEvent {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// Key returns the in-flight key of the event.
func (e *PubrelEvent) Key() Key {
	return Key{ClientID: e.ClientID, PacketID: e.PacketID}
}

func (e *PubrelEvent) String() string {
	return fmt.Sprintf("Pubrel - ClientID: %s, Pid: %d, Topic: %s", e.ClientID, e.PacketID, e.Topic)
}

// Key identifies one in-flight PUBLISH or PUBREL.
type Key struct {
	ClientID string
	PacketID packets.PacketID
}

// String renders the key as "clientID:packetID".
func (k Key) String() string {
	return k.ClientID + ":" + strconv.FormatUint(uint64(k.PacketID), 10)
}

// ParseKey parses the output of Key.String.
// The client id may itself contain colons, the packet id is taken after the last one.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return Key{}, fmt.Errorf("invalid in-flight key %q", s)
	}
	pid, err := strconv.ParseUint(s[i+1:], 10, 16)
	if err != nil {
		return Key{}, fmt.Errorf("invalid packet id in key %q: %w", s, err)
	}
	return Key{ClientID: s[:i], PacketID: packets.PacketID(pid)}, nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
