// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/luxfi/duorpc/stream"
	"github.com/luxfi/duorpc/wire"
)

// Reserved handshake selectors.
var (
	SelectorHighSpeedOpen    = wire.Compact(0xFFF0)
	SelectorHighSpeedVerify  = wire.Compact(0xFFF1)
	SelectorHighSpeedConfirm = wire.Compact(0xFFF2)
)

func isHandshakeSelector(s wire.Selector) bool {
	return s == SelectorHighSpeedOpen || s == SelectorHighSpeedVerify || s == SelectorHighSpeedConfirm
}

const (
	tokenSize               = 32
	proofLabel              = "duorpc/highspeed/v1"
	DefaultHandshakeTimeout = 10 * time.Second
)

// HighSpeedConfig configures either side of the side channel.
type HighSpeedConfig struct {
	// ListenAddr is where the server accepts sockets, e.g. ":7301".
	ListenAddr string
	// AdvertisePort is the port sent to clients. Zero means the listener's.
	AdvertisePort uint16
	// HandshakeTimeout bounds the time from accept (server) or dial
	// (client) to verification.
	HandshakeTimeout time.Duration
	MaxMessageSize   int
}

func (c HighSpeedConfig) withDefaults() HighSpeedConfig {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = stream.DefaultMaxMessageSize
	}
	return c
}

// SessionInfo describes one side-channel socket.
type SessionInfo struct {
	Primary  string    `json:"primary"`
	Socket   string    `json:"socket"`
	Remote   string    `json:"remote"`
	Verified bool      `json:"verified"`
	Opened   time.Time `json:"opened"`
}

func sessionInfo(primary Conn, sock *socketConn) SessionInfo {
	return SessionInfo{
		Primary:  primary.ID(),
		Socket:   sock.ID(),
		Remote:   sock.RemoteAddr().String(),
		Verified: sock.Verified(),
		Opened:   sock.opened,
	}
}

// handshake holds the invokers both sides define for the reserved
// selectors.
type handshake struct {
	open    *Invoker[Args1[uint16]]
	verify  *Invoker[Args1[[]byte]]
	confirm *Invoker[Args0]
}

func defineHandshake(d *Dispatcher) handshake {
	return handshake{
		open:    Define[Args1[uint16]](d, "highspeed.open", SelectorHighSpeedOpen),
		verify:  Define[Args1[[]byte]](d, "highspeed.verify", SelectorHighSpeedVerify),
		confirm: Define[Args0](d, "highspeed.confirm", SelectorHighSpeedConfirm),
	}
}

func wireHighSpeed() wire.Overhead { return wire.Overhead{Flags: wire.FlagHighSpeed} }

func newToken() ([]byte, error) {
	token := make([]byte, tokenSize)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("high-speed token: %w", err)
	}
	return token, nil
}

// proofOf derives the value a client returns for token.
func proofOf(token []byte) []byte {
	h, err := blake2b.New256(token)
	if err != nil {
		// Only reachable with a key over 64 bytes.
		panic(err)
	}
	h.Write([]byte(proofLabel))
	return h.Sum(nil)
}

func validProof(token, proof []byte) bool {
	return subtle.ConstantTimeCompare(proofOf(token), proof) == 1
}
