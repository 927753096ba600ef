package mesh

import (
	"errors"
	"fmt"
)

var (
	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrSignalingApply   = errors.New("signaling description rejected")
	ErrLinkLost         = errors.New("peer link lost")
	ErrNoSuchPeer       = errors.New("no such peer")
)

// LinkError tags a failure with the operation and peer it happened on.
type LinkError struct {
	Op   string
	Peer string
	Err  error
}

func (e *LinkError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

func newLinkError(op, peer string, err error) *LinkError {
	return &LinkError{Op: op, Peer: peer, Err: err}
}
