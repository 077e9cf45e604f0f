package encoding

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/DrmagicE/pushstore"
)

// Version is the current format version, written as the first byte of every encoded value.
const Version byte = 1

const (
	kindPublish byte = iota
	kindPubrel
	kindStoredMessage
)

const (
	flagRetain byte = 1 << iota
	flagDup
)

var (
	ErrUnknownVersion = errors.New("unknown encoding version")
	ErrUnexpectedKind = errors.New("unexpected value kind")
)

func writeHeader(b *bytes.Buffer, kind byte) {
	b.WriteByte(Version)
	b.WriteByte(kind)
}

func readHeader(b *bytes.Buffer, want byte) error {
	v, err := b.ReadByte()
	if err != nil {
		return err
	}
	if v != Version {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, v)
	}
	k, err := b.ReadByte()
	if err != nil {
		return err
	}
	if k != want {
		return fmt.Errorf("%w: %d", ErrUnexpectedKind, k)
	}
	return nil
}

// EncodePublish encodes the publish event.
// Format: version | kind | client id | topic | payload | qos | packet id | flags
// The client id and the topic must not exceed packets.MaxStringLen bytes.
func EncodePublish(ev *pushstore.PublishEvent) ([]byte, error) {
	b := bytes.NewBuffer(make([]byte, 0, 16+len(ev.ClientID)+len(ev.Topic)+len(ev.Payload)))
	writeHeader(b, kindPublish)
	if err := WriteString(b, []byte(ev.ClientID)); err != nil {
		return nil, err
	}
	if err := WriteString(b, []byte(ev.Topic)); err != nil {
		return nil, err
	}
	WriteBytes(b, ev.Payload)
	b.WriteByte(ev.QoS)
	WriteUint16(b, ev.PacketID)
	var flags byte
	if ev.Retain {
		flags |= flagRetain
	}
	if ev.Dup {
		flags |= flagDup
	}
	b.WriteByte(flags)
	return b.Bytes(), nil
}

// DecodePublish decodes the output of EncodePublish.
func DecodePublish(p []byte) (ev *pushstore.PublishEvent, err error) {
	b := bytes.NewBuffer(p)
	if err = readHeader(b, kindPublish); err != nil {
		return nil, err
	}
	ev = &pushstore.PublishEvent{}
	cid, err := ReadString(b)
	if err != nil {
		return nil, err
	}
	ev.ClientID = string(cid)
	topic, err := ReadString(b)
	if err != nil {
		return nil, err
	}
	ev.Topic = string(topic)
	ev.Payload, err = ReadBytes(b)
	if err != nil {
		return nil, err
	}
	ev.QoS, err = b.ReadByte()
	if err != nil {
		return nil, err
	}
	ev.PacketID, err = ReadUint16(b)
	if err != nil {
		return nil, err
	}
	flags, err := b.ReadByte()
	if err != nil {
		return nil, err
	}
	ev.Retain = flags&flagRetain != 0
	ev.Dup = flags&flagDup != 0
	return ev, nil
}

// EncodePubrel encodes the pubrel event.
// Format: version | kind | client id | packet id | topic
func EncodePubrel(ev *pushstore.PubrelEvent) ([]byte, error) {
	b := bytes.NewBuffer(make([]byte, 0, 8+len(ev.ClientID)+len(ev.Topic)))
	writeHeader(b, kindPubrel)
	if err := WriteString(b, []byte(ev.ClientID)); err != nil {
		return nil, err
	}
	WriteUint16(b, ev.PacketID)
	if err := WriteString(b, []byte(ev.Topic)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// DecodePubrel decodes the output of EncodePubrel.
func DecodePubrel(p []byte) (ev *pushstore.PubrelEvent, err error) {
	b := bytes.NewBuffer(p)
	if err = readHeader(b, kindPubrel); err != nil {
		return nil, err
	}
	ev = &pushstore.PubrelEvent{}
	cid, err := ReadString(b)
	if err != nil {
		return nil, err
	}
	ev.ClientID = string(cid)
	ev.PacketID, err = ReadUint16(b)
	if err != nil {
		return nil, err
	}
	topic, err := ReadString(b)
	if err != nil {
		return nil, err
	}
	ev.Topic = string(topic)
	return ev, nil
}

// EncodeStoredMessage encodes the retained message.
// Format: version | kind | topic | qos | payload
func EncodeStoredMessage(msg *pushstore.StoredMessage) ([]byte, error) {
	b := bytes.NewBuffer(make([]byte, 0, 10+len(msg.Topic)+len(msg.Payload)))
	writeHeader(b, kindStoredMessage)
	if err := WriteString(b, []byte(msg.Topic)); err != nil {
		return nil, err
	}
	b.WriteByte(msg.QoS)
	WriteBytes(b, msg.Payload)
	return b.Bytes(), nil
}

// DecodeStoredMessage decodes the output of EncodeStoredMessage.
func DecodeStoredMessage(p []byte) (msg *pushstore.StoredMessage, err error) {
	b := bytes.NewBuffer(p)
	if err = readHeader(b, kindStoredMessage); err != nil {
		return nil, err
	}
	msg = &pushstore.StoredMessage{}
	topic, err := ReadString(b)
	if err != nil {
		return nil, err
	}
	msg.Topic = string(topic)
	msg.QoS, err = b.ReadByte()
	if err != nil {
		return nil, err
	}
	msg.Payload, err = ReadBytes(b)
	if err != nil {
		return nil, err
	}
	return msg, nil
}
