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
	"github.com/baikaldb/sqlgate/pkg/logutil"
	"github.com/baikaldb/sqlgate/pkg/merr"
	"go.uber.org/zap"
)

// Fsm drives one Connection through the state table in spec.md §4.4. It is
// re-entrant by way of a bounded loop (the Design Note on the source's
// recursive self-invocation: "a faithful re-implementation should convert
// the tail-call into a bounded loop to avoid stack growth"), tail-advancing
// through states whenever progress is possible without blocking, and
// returning only when it needs another reactor readiness event or the
// connection has reached Error.
type Fsm struct {
	Schema    Schema
	Planner   Planner
	Reactor   Reactor
	Pool      SocketPool
	ConnIDSeq func() uint32

	// OnTeardown, if set, is called once a connection reaches Error and has
	// been torn down, so a registry (e.g. RoutineManager) can drop its fd.
	OnTeardown func(fd int)
}

// maxStepsPerEntry bounds the tail-call loop itself, as a defense against a
// pathological collaborator that always reports progress; a real connection
// never needs more than a handful of iterations to hit a socket boundary.
const maxStepsPerEntry = 64

// Step is the single entry point the reactor invokes on every readiness
// event for a Connection, per spec.md §2's "the single entry point invoked
// by the reactor on each readiness event."
func (f *Fsm) Step(c *Connection, connID uint32) {
	c.stepMu.Lock()
	defer c.stepMu.Unlock()

	for i := 0; i < maxStepsPerEntry; i++ {
		if c.ShuttingDown {
			c.State = StateError
		}

		var arm ArmDirection
		switch c.State {
		case StateConnectedClient:
			arm = f.stepConnectedClient(c, connID)
		case StateSendHandshake:
			arm = f.stepSendHandshake(c)
		case StateReadAuth:
			arm = f.stepReadAuth(c)
		case StateSendAuthResult:
			arm = f.stepSendAuthResult(c)
		case StateReadQueryResult:
			arm = f.stepReadQueryResult(c)
		case StateErrorReuse:
			arm = f.stepErrorReuse(c)
		case StateError:
			f.teardown(c)
			return
		default:
			c.State = StateError
			continue
		}

		if arm != ArmNone {
			if f.Reactor != nil {
				_ = f.Reactor.Arm(c.Fd, arm)
			}
			return
		}
		// arm == ArmNone means this step made progress without needing to
		// park; tail-advance into the next state immediately.
	}
	logutil.Warn("fsm step budget exhausted, parking connection", zap.Int("fd", c.Fd))
}

func (f *Fsm) stepConnectedClient(c *Connection, connID uint32) ArmDirection {
	c.Salt = GenerateSalt()
	c.sendBuf = append(c.sendBuf[:0])
	// appendPacket pre-increments outSeqID; the handshake packet itself must
	// carry sequence 0 (spec.md §4.2), so seed at the byte that wraps to it.
	c.outSeqID = 0xff
	payload := MakeHandshakePayload(c, connID)
	appendPacket(c, payload)
	c.State = StateSendHandshake
	return f.flush(c, StateSendHandshake)
}

func (f *Fsm) stepSendHandshake(c *Connection) ArmDirection {
	payload, outcome, err := ReadPacket(c)
	switch outcome {
	case ReadWait:
		return ArmIn
	case ReadError:
		logutil.Warn("read auth failed", zap.Error(err))
		c.State = StateError
		return ArmNone
	}

	resp, se := ParseHandshakeResponse(payload)
	if se != nil {
		c.sendBuf = c.sendBuf[:0]
		c.outSeqID = 0
		WriteERR(c, se)
		c.State = StateError
		return f.flush(c, StateError)
	}

	user, ok := f.Schema.GetUserInfo(resp.Username)
	if !ok {
		c.sendBuf = c.sendBuf[:0]
		c.outSeqID = 0
		WriteERR(c, merr.NewAccessDenied(resp.Username, c.PeerIP))
		c.State = StateError
		return f.flush(c, StateError)
	}

	if se := Authenticate(c, resp, user); se != nil {
		c.sendBuf = c.sendBuf[:0]
		c.outSeqID = 0
		WriteERR(c, se)
		c.State = StateError
		return f.flush(c, StateError)
	}

	c.State = StateReadAuth
	return ArmNone
}

func (f *Fsm) stepReadAuth(c *Connection) ArmDirection {
	c.sendBuf = c.sendBuf[:0]
	// outSeqID is still 0 from the handshake packet; the client's handshake-
	// response consumed sequence 1 on the wire, so the OK(auth-result) packet
	// must land on 2 (spec.md §4.2/Scenario 1), not reset back to 1.
	c.outSeqID++
	WriteOK(c, 0, 0, 0, "")
	c.State = StateSendAuthResult
	return f.flush(c, StateSendAuthResult)
}

func (f *Fsm) stepSendAuthResult(c *Connection) ArmDirection {
	payload, outcome, err := ReadPacket(c)
	switch outcome {
	case ReadWait:
		return ArmIn
	case ReadError:
		logutil.Warn("read command failed", zap.Error(err), zap.String("user", c.Username))
		c.State = StateError
		return ArmNone
	}
	if len(payload) == 0 {
		WriteERR(c, merr.NewErrorCommon("empty command packet"))
		c.State = StateErrorReuse
		return ArmNone
	}

	cmd := payload[0]
	body := payload[1:]
	c.sendBuf = c.sendBuf[:0]
	c.outSeqID = 0

	switch Dispatch(c, cmd, body, f.Schema, f.Planner) {
	case OutcomeReady:
		c.State = StateReadQueryResult
	case OutcomeErrorReuse:
		c.State = StateErrorReuse
	case OutcomeShutdown, OutcomeFatal:
		// OutcomeFatal's ERR packet (dispatchBuiltin's catalog-lookup
		// failure) is still pending in sendBuf; flush it before tearing
		// the connection down. OutcomeShutdown never queues a reply, so
		// this is a no-op flush straight into Error.
		return f.flush(c, StateError)
	}
	return ArmNone
}

func (f *Fsm) stepReadQueryResult(c *Connection) ArmDirection {
	arm := f.flush(c, StateSendAuthResult)
	if arm == ArmNone {
		c.ResetForNextCommand()
	}
	return arm
}

func (f *Fsm) stepErrorReuse(c *Connection) ArmDirection {
	arm := f.flush(c, StateSendAuthResult)
	if arm == ArmNone {
		c.ResetForNextCommand()
	}
	return arm
}

// flush drains c.sendBuf to the socket, parking (ArmOut) on a partial
// write and tail-advancing to nextState once fully flushed, per spec.md
// §4.4's SendHandshake/SendAuthResult/ReadQueryResult write transitions.
func (f *Fsm) flush(c *Connection, nextState FsmState) ArmDirection {
	for c.sendOffset < len(c.sendBuf) {
		n, err := c.Sock.Write(c.sendBuf[c.sendOffset:])
		if n > 0 {
			c.sendOffset += n
		}
		if err != nil {
			if err == ErrWouldBlock {
				return ArmOut
			}
			logutil.Warn("write failed", zap.Error(err))
			c.State = StateError
			return ArmNone
		}
	}
	c.sendOffset = 0
	c.State = nextState
	return ArmNone
}

// teardown implements spec.md §4.4's Error-state contract and §5's
// idempotent teardown; an open transaction is handled by issueRollback.
func (f *Fsm) teardown(c *Connection) {
	if c.InPool {
		return // already torn down once; refuses to double-free.
	}

	// Flush any pending bytes best-effort; a teardown that can't finish
	// writing an ERR packet is not retried.
	for c.sendOffset < len(c.sendBuf) {
		n, err := c.Sock.Write(c.sendBuf[c.sendOffset:])
		if n > 0 {
			c.sendOffset += n
		}
		if err != nil {
			break
		}
	}

	if c.IsCounted && c.User != nil {
		c.User.DecrConnection()
		c.IsCounted = false
	}

	if c.TxnID != 0 {
		issueRollback(c)
	}

	if f.Reactor != nil {
		f.Reactor.DeleteFDMapping(c.Fd)
		_ = f.Reactor.Remove(c.Fd)
	}
	c.InPool = true
	if f.OnTeardown != nil {
		f.OnTeardown(c.Fd)
	}
	if f.Pool != nil {
		f.Pool.Free(c)
	}
}

// issueRollback logs the open transaction and clears TxnID/SeqID before the
// connection is freed. It sends no rollback statement to the Planner
// collaborator.
func issueRollback(c *Connection) {
	logutil.Info("issuing implicit rollback on teardown",
		zap.Uint64("txnID", c.TxnID), zap.String("user", c.Username))
	c.TxnID = 0
	c.SeqID = 0
}
