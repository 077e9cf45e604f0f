package encoding

import (
	"bytes"
)

// KeyPrefix builds a key prefix made of the namespace followed by the length prefixed
// client id, so that the prefix of one client never matches the keys of another.
func KeyPrefix(namespace string, clientID string) []byte {
	b := bytes.NewBuffer(make([]byte, 0, len(namespace)+4+len(clientID)+8))
	b.WriteString(namespace)
	WriteBytes(b, []byte(clientID))
	return b.Bytes()
}

// PacketIDKey appends the big-endian packet id to the client prefix.
func PacketIDKey(namespace string, clientID string, pid uint16) []byte {
	return append(KeyPrefix(namespace, clientID), byte(pid>>8), byte(pid))
}

// SeqKey appends the big-endian sequence number to the client prefix.
// Keys of one client sort by seq.
func SeqKey(namespace string, clientID string, seq uint64) []byte {
	k := KeyPrefix(namespace, clientID)
	for i := 7; i >= 0; i-- {
		k = append(k, byte(seq>>(uint(i)*8)))
	}
	return k
}
