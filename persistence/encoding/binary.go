package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/DrmagicE/pushstore/pkg/packets"
)

var errInvalidLength = errors.New("invalid length")

func WriteUint16(w *bytes.Buffer, i uint16) {
	w.WriteByte(byte(i >> 8))
	w.WriteByte(byte(i))
}

func WriteBool(w *bytes.Buffer, b bool) {
	if b {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

func ReadBool(r *bytes.Buffer) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	if b == 0 {
		return false, nil
	}
	return true, nil
}

// WriteString writes s with a 2 bytes length prefix.
// It returns packets.ErrStringTooLong and writes nothing if s does not fit.
func WriteString(w *bytes.Buffer, s []byte) error {
	if len(s) > packets.MaxStringLen {
		return packets.ErrStringTooLong
	}
	WriteUint16(w, uint16(len(s)))
	w.Write(s)
	return nil
}

func ReadString(r *bytes.Buffer) (b []byte, err error) {
	l := make([]byte, 2)
	_, err = io.ReadFull(r, l)
	if err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(l))
	payload := make([]byte, length)

	_, err = io.ReadFull(r, payload)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteBytes writes b with a 4 bytes length prefix, used for payloads which may exceed 65535 bytes.
// A nil slice and an empty slice are both written as length 0.
func WriteBytes(w *bytes.Buffer, b []byte) {
	WriteUint32(w, uint32(len(b)))
	w.Write(b)
}

func ReadBytes(r *bytes.Buffer) ([]byte, error) {
	length, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if int64(length) > int64(r.Len()) {
		return nil, errInvalidLength
	}
	b := make([]byte, length)
	_, err = io.ReadFull(r, b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func WriteUint32(w *bytes.Buffer, i uint32) {
	w.WriteByte(byte(i >> 24))
	w.WriteByte(byte(i >> 16))
	w.WriteByte(byte(i >> 8))
	w.WriteByte(byte(i))
}

func ReadUint16(r *bytes.Buffer) (uint16, error) {
	if r.Len() < 2 {
		return 0, errInvalidLength
	}
	return binary.BigEndian.Uint16(r.Next(2)), nil
}

func ReadUint32(r *bytes.Buffer) (uint32, error) {
	if r.Len() < 4 {
		return 0, errInvalidLength
	}
	return binary.BigEndian.Uint32(r.Next(4)), nil
}
