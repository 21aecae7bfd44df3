// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frontend

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// PacketLenMax bounds a single packet body, per spec.md §4.1's "Rejects any
// declared length exceeding PACKET_LEN_MAX." Overridable via configuration;
// this is the compiled-in ceiling even if configuration requests more.
const PacketLenMaxCeiling = 1 << 26

// FsmState is the protocol state machine alphabet from spec.md §4.4.
type FsmState int

const (
	StateConnectedClient FsmState = iota
	StateSendHandshake
	StateReadAuth
	StateSendAuthResult
	StateReadQueryResult
	StateErrorReuse
	StateError
)

func (s FsmState) String() string {
	switch s {
	case StateConnectedClient:
		return "ConnectedClient"
	case StateSendHandshake:
		return "SendHandshake"
	case StateReadAuth:
		return "ReadAuth"
	case StateSendAuthResult:
		return "SendAuthResult"
	case StateReadQueryResult:
		return "ReadQueryResult"
	case StateErrorReuse:
		return "ErrorReuse"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ArmDirection tells the reactor which readiness events a parked connection
// still needs, per the Reactor collaborator contract in spec.md §6.
type ArmDirection int

const (
	ArmNone ArmDirection = iota
	ArmIn
	ArmOut
)

// Connection is the per-socket state spec.md §3 defines, exclusively owned
// by the reactor worker it is pinned to while registered (see spec.md §5) and
// transferred to the socket pool on teardown.
type Connection struct {
	ID uuid.UUID

	Fd         int
	Sock       Socket
	PeerIP     string
	PeerPort   int
	ThreadIdx  int

	PacketLenMax int

	State      FsmState
	InPool     bool
	IsAuthed   bool
	IsCounted  bool
	ShuttingDown bool

	selfBuf []byte // inbound byte buffer
	sendBuf []byte // outbound byte buffer

	// decode cursors, per spec.md §3 invariants.
	headerReadLen  int // 0..4
	header         [4]byte
	headerOffset   int
	packetLen      int
	packetReadLen  int
	packetID       byte // current inbound sequence byte

	// outbound write cursor: bytes of sendBuf already flushed to the socket.
	sendOffset int

	Username    string
	CurrentDB   string
	User        *UserInfo
	CharsetName string
	CharsetNum  byte

	TxnID uint64
	SeqID uint64

	// outSeqID is the sequence id of the last packet the Result Builder
	// appended within the current command/response cycle; appendPacket
	// increments it before use, so resetting it to 0 at the start of each
	// new response makes the first response packet carry 1, per spec.md §4.2.
	outSeqID byte

	Salt [SaltLen]byte

	Query *QueryContext

	// stepMu serializes Fsm.Step entries for this connection. The accept
	// loop's synchronous kickoff call and the reactor's own readiness
	// dispatch both invoke Step on the same *Connection and can otherwise
	// overlap (a freshly accepted socket is frequently writable immediately,
	// so EPOLLOUT can fire before the kickoff call returns) -- spec.md §2
	// requires the reactor's readiness event be the single entry point, so
	// a second concurrent entry must block rather than race the first.
	stepMu sync.Mutex
}

func NewConnection(fd int, sock Socket, threadIdx int) *Connection {
	return &Connection{
		ID:           uuid.New(),
		Fd:           fd,
		Sock:         sock,
		ThreadIdx:    threadIdx,
		State:        StateConnectedClient,
		CharsetName:  "gbk",
		CharsetNum:   charsetGBK,
		PacketLenMax: PacketLenMaxCeiling,
	}
}

// SetPeer records the remote address for logging; split out of the
// constructor so tests can use fake sockets with no real net.Conn.
func (c *Connection) SetPeer(addr *net.TCPAddr) {
	if addr == nil {
		return
	}
	c.PeerIP = addr.IP.String()
	c.PeerPort = addr.Port
}

// ResetForNextCommand clears the per-command cursors and query context
// without touching identity/auth state, as done on the ReadQueryResult ->
// SendAuthResult transition in spec.md §4.4.
func (c *Connection) ResetForNextCommand() {
	c.selfBuf = c.selfBuf[:0]
	c.sendBuf = c.sendBuf[:0]
	c.sendOffset = 0
	c.headerReadLen = 0
	c.headerOffset = 0
	c.packetLen = 0
	c.packetReadLen = 0
	c.outSeqID = 0
	c.Query = nil
}

// FreshQuery replaces QueryContext for a newly-dispatched command.
func (c *Connection) FreshQuery(cmd byte) *QueryContext {
	c.Query = NewQueryContext(cmd, c.CurrentDB)
	return c.Query
}
