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
	"testing"

	"github.com/baikaldb/sqlgate/pkg/merr"
	. "github.com/smartystreets/goconvey/convey"
)

// scriptedSocket is a Socket that lets a test feed inbound command packets
// and capture every byte the FSM writes out, driving the Fsm through a full
// login + command cycle the way a real reactor readiness loop would.
type scriptedSocket struct {
	inbound  [][]byte // each entry is delivered whole on the next Read after the previous drains
	pending  []byte
	outbound []byte
}

func (s *scriptedSocket) Read(buf []byte) (int, error) {
	if len(s.pending) == 0 {
		if len(s.inbound) == 0 {
			return 0, ErrWouldBlock
		}
		s.pending = s.inbound[0]
		s.inbound = s.inbound[1:]
	}
	n := copy(buf, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *scriptedSocket) Write(buf []byte) (int, error) {
	s.outbound = append(s.outbound, buf...)
	return len(buf), nil
}

func framedPacket(seq byte, body []byte) []byte {
	l := len(body)
	return append([]byte{byte(l), byte(l >> 8), byte(l >> 16), seq}, body...)
}

func handshakeResponseBody(username string, scramble [20]byte) []byte {
	body := make([]byte, 0, 64)
	var caps [4]byte
	c := uint32(CLIENT_PROTOCOL_41 | CLIENT_SECURE_CONNECTION | CLIENT_CONNECT_WITH_DB)
	caps[0], caps[1], caps[2], caps[3] = byte(c), byte(c>>8), byte(c>>16), byte(c>>24)
	body = append(body, caps[:]...)
	body = append(body, make([]byte, 4)...) // max packet size
	body = append(body, charsetGBK)
	body = append(body, make([]byte, 23)...) // reserved
	body = append(body, []byte(username)...)
	body = append(body, 0)
	body = append(body, byte(len(scramble)))
	body = append(body, scramble[:]...)
	body = append(body, []byte("testdb")...)
	body = append(body, 0)
	return body
}

func newTestSchemaWithUser(username string, scramble [20]byte, maxConn, quota int64) *MemSchema {
	schema := NewMemSchema()
	schema.AddUser(NewUserInfo(username, "default", scramble, maxConn, quota))
	return schema
}

func TestFsmHappyLoginAndSelectOne(t *testing.T) {
	Convey("Given a freshly accepted connection and a valid user", t, func() {
		var scramble [20]byte
		for i := range scramble {
			scramble[i] = byte(i + 1)
		}
		schema := newTestSchemaWithUser("root", scramble, 4, 100)
		fsm := &Fsm{Schema: schema}

		sock := &scriptedSocket{}
		c := NewConnection(7, sock, 0)

		Convey("Step through ConnectedClient sends a handshake", func() {
			fsm.Step(c, 1)
			So(c.State, ShouldEqual, StateSendHandshake)
			So(len(sock.outbound), ShouldBeGreaterThan, 0)
			// handshake packet carries sequence 0, per spec.md §4.2.
			So(sock.outbound[3], ShouldEqual, 0)

			Convey("Feeding a matching handshake response authenticates the user", func() {
				sock.outbound = nil
				sock.inbound = [][]byte{framedPacket(1, handshakeResponseBody("root", scramble))}
				fsm.Step(c, 1)

				So(c.IsAuthed, ShouldBeTrue)
				So(c.State, ShouldEqual, StateSendAuthResult)
				So(c.User.ConnectionCount(), ShouldEqual, 1)
				// OK(auth-result) continues the shared login counter past the
				// client's handshake-response packet (seq 1), landing on 2.
				So(sock.outbound[3], ShouldEqual, 2)

				Convey("A COM_QUERY for SELECT 1 returns a result set", func() {
					sock.outbound = nil
					queryPayload := append([]byte{COM_QUERY}, []byte("SELECT 1")...)
					sock.inbound = [][]byte{framedPacket(0, queryPayload)}
					fsm.Step(c, 1)

					// the FSM tail-advances straight through ReadQueryResult, resets
					// for the next command, and parks back in SendAuthResult waiting
					// for the next command packet.
					So(c.State, ShouldEqual, StateSendAuthResult)
					So(len(sock.outbound), ShouldBeGreaterThan, 0)
					// first packet after the 4-byte header is the column count (1)
					So(sock.outbound[4], ShouldEqual, 1)
				})
			})
		})
	})
}

func TestFsmRejectsWrongScramble(t *testing.T) {
	Convey("Given a user with a known scramble", t, func() {
		var scramble [20]byte
		scramble[0] = 0xAA
		schema := newTestSchemaWithUser("root", scramble, 4, 100)
		fsm := &Fsm{Schema: schema}
		sock := &scriptedSocket{}
		c := NewConnection(7, sock, 0)
		fsm.Step(c, 1)

		Convey("A handshake response with the wrong scramble lands in Error", func() {
			var wrong [20]byte
			wrong[0] = 0xBB
			sock.inbound = [][]byte{framedPacket(1, handshakeResponseBody("root", wrong))}
			fsm.Step(c, 1)
			So(c.State, ShouldEqual, StateError)
			So(c.IsAuthed, ShouldBeFalse)
		})
	})
}

func TestFsmMaxConnectionRejection(t *testing.T) {
	Convey("Given a user already at its connection cap", t, func() {
		var scramble [20]byte
		scramble[0] = 1
		schema := newTestSchemaWithUser("root", scramble, 1, 100)
		user, _ := schema.GetUserInfo("root")
		So(user.TryIncrConnection(), ShouldBeTrue) // occupy the single slot

		fsm := &Fsm{Schema: schema}
		sock := &scriptedSocket{}
		c := NewConnection(8, sock, 0)
		fsm.Step(c, 1)
		sock.inbound = [][]byte{framedPacket(1, handshakeResponseBody("root", scramble))}

		Convey("The next login attempt is rejected", func() {
			fsm.Step(c, 1)
			So(c.State, ShouldEqual, StateError)
			So(c.IsAuthed, ShouldBeFalse)
		})
	})
}

func TestFsmQuotaExceeded(t *testing.T) {
	Convey("Given an authenticated connection with a quota of 1 query per second", t, func() {
		var scramble [20]byte
		scramble[0] = 9
		schema := newTestSchemaWithUser("root", scramble, 4, 1)
		fsm := &Fsm{Schema: schema}
		sock := &scriptedSocket{}
		c := NewConnection(9, sock, 0)
		fsm.Step(c, 1)
		sock.inbound = [][]byte{framedPacket(1, handshakeResponseBody("root", scramble))}
		fsm.Step(c, 1)
		So(c.IsAuthed, ShouldBeTrue)

		Convey("A query that is not a built-in or SET consumes the quota", func() {
			sock.inbound = [][]byte{framedPacket(0, append([]byte{COM_QUERY}, []byte("CALL proc()")...))}
			fsm.Step(c, 1)
			So(c.State, ShouldEqual, StateSendAuthResult)

			Convey("The next non-builtin query within the same window is rejected for quota, not plan failure", func() {
				sock.outbound = nil
				sock.inbound = [][]byte{framedPacket(0, append([]byte{COM_QUERY}, []byte("CALL proc()")...))}
				fsm.Step(c, 1)
				So(sock.outbound[4], ShouldEqual, 0xff)
				code := uint16(sock.outbound[5]) | uint16(sock.outbound[6])<<8
				So(code, ShouldEqual, merr.ErQueryExceedQuota)
			})
		})
	})
}
