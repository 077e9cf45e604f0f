// Package packets holds the MQTT definitions shared by the stores: QoS levels, packet
// identifiers and the validation of a PUBLISH qos and packet id pair.
package packets

import (
	"errors"
)

var (
	ErrInvalQos      = errors.New("invalid Qos,only support qos0 | qos1 | qos2")
	ErrInvalPacketID = errors.New("invalid packet id, must be non-zero for qos1 | qos2")
	ErrStringTooLong = errors.New("string too long, must not exceed 65535 bytes")
)

// MaxStringLen is the max length of a topic name or a client id.
const MaxStringLen = 65535

// QoS levels
const (
	Qos0 uint8 = 0x00
	Qos1 uint8 = 0x01
	Qos2 uint8 = 0x02
)

// PacketID is the type of packet identifier
type PacketID = uint16

// Max & min packet ID
const (
	MaxPacketID PacketID = 65535
	MinPacketID PacketID = 1
)

// ValidatePublish checks the qos and packet id pair of a PUBLISH.
// Qos0 messages carry no packet id, Qos1 and Qos2 messages require a non-zero one.
func ValidatePublish(qos uint8, pid PacketID) error {
	if qos > Qos2 {
		return ErrInvalQos
	}
	if qos > Qos0 && pid == 0 {
		return ErrInvalPacketID
	}
	return nil
}

// ValidateStrings returns ErrStringTooLong if any of ss exceeds MaxStringLen bytes.
func ValidateStrings(ss ...string) error {
	for _, s := range ss {
		if len(s) > MaxStringLen {
			return ErrStringTooLong
		}
	}
	return nil
}
