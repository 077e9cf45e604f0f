package unack

import (
	"context"

	"github.com/DrmagicE/pushstore/pkg/packets"
)

// Direction selects one of the two packet id sets of a client.
type Direction byte

const (
	// Publish is the set of ids of PUBLISH packets sent to the client which await PUBACK, PUBREC or PUBCOMP.
	Publish Direction = iota
	// Pubrec is the set of ids of QoS2 PUBLISH packets received from the client which await PUBREL.
	Pubrec
)

func (d Direction) String() string {
	switch d {
	case Publish:
		return "publish"
	case Pubrec:
		return "pubrec"
	}
	return "unknown"
}

// Store tracks the packet ids which are currently owned by an outstanding QoS1/QoS2 exchange.
// It never allocates ids, the caller chooses them.
type Store interface {
	// Reserve adds the id to the set of the given direction.
	// The return boolean indicates whether the id was already reserved.
	Reserve(ctx context.Context, dir Direction, clientID string, id packets.PacketID) (existed bool, err error)
	// Release removes the id from the set. Releasing an absent id is a no-op.
	Release(ctx context.Context, dir Direction, clientID string, id packets.PacketID) error
	// IsReserved reports whether the id is in the set.
	IsReserved(ctx context.Context, dir Direction, clientID string, id packets.PacketID) (bool, error)
	// ClearAll drops both sets of the client in one step.
	ClearAll(ctx context.Context, clientID string) error
}
