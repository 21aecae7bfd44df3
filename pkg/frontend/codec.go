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
	"encoding/binary"
	"io"

	"github.com/baikaldb/sqlgate/pkg/merr"
)

// ReadOutcome reports what ReadPacket accomplished this call, so the FSM
// knows whether to stay parked (spec.md §4.1's WAIT) or proceed.
type ReadOutcome int

const (
	ReadWait ReadOutcome = iota
	ReadDone
	ReadError
)

// ReadPacket reads one protocol packet from c.Sock into c.selfBuf, resuming
// across calls via c.headerReadLen/c.packetReadLen exactly as spec.md §4.1
// and §3's invariants describe: the header phase and body phase are each
// independently resumable, and a WAIT from the socket preserves the cursors
// for the next readiness event instead of losing progress.
func ReadPacket(c *Connection) ([]byte, ReadOutcome, error) {
	for c.headerReadLen < 4 {
		n, err := c.Sock.Read(c.header[c.headerReadLen:4])
		if n > 0 {
			c.headerReadLen += n
		}
		if err != nil {
			if err == ErrWouldBlock {
				return nil, ReadWait, nil
			}
			return nil, ReadError, merr.NewErrorOnRead(err)
		}
		if n == 0 {
			return nil, ReadError, merr.NewErrorOnRead(io.EOF)
		}
	}

	if c.packetReadLen == 0 && c.headerOffset == 0 {
		length := int(c.header[0]) | int(c.header[1])<<8 | int(c.header[2])<<16
		c.packetID = c.header[3]
		if length > c.packetLenMaxOrCeiling() {
			return nil, ReadError, merr.NewErrorCommon("packet length %d exceeds max %d", length, c.packetLenMaxOrCeiling())
		}
		c.packetLen = length
		if cap(c.selfBuf) < length {
			c.selfBuf = make([]byte, length)
		} else {
			c.selfBuf = c.selfBuf[:length]
		}
		c.headerOffset = 1 // marks "header parsed" without reusing packetReadLen for that purpose
	}

	for c.packetReadLen < c.packetLen {
		n, err := c.Sock.Read(c.selfBuf[c.packetReadLen:c.packetLen])
		if n > 0 {
			c.packetReadLen += n
		}
		if err != nil {
			if err == ErrWouldBlock {
				return nil, ReadWait, nil
			}
			return nil, ReadError, merr.NewErrorOnRead(err)
		}
		if n == 0 && c.packetLen > 0 {
			return nil, ReadError, merr.NewErrorOnRead(io.EOF)
		}
	}

	payload := c.selfBuf[:c.packetLen]
	c.headerReadLen = 0
	c.headerOffset = 0
	c.packetReadLen = 0
	return payload, ReadDone, nil
}

func (c *Connection) packetLenMaxOrCeiling() int {
	if c.PacketLenMax > 0 && c.PacketLenMax < PacketLenMaxCeiling {
		return c.PacketLenMax
	}
	return PacketLenMaxCeiling
}

// --- primitive decoders, grounded on mysql_protocol.go's readIntLenEnc /
// readStringNUL / readCountOfBytes family, operating on a payload slice with
// an explicit cursor rather than the connection's socket. ---

func readUint8(data []byte, pos int) (uint8, int, bool) {
	if pos+1 > len(data) {
		return 0, pos, false
	}
	return data[pos], pos + 1, true
}

func readUint16(data []byte, pos int) (uint16, int, bool) {
	if pos+2 > len(data) {
		return 0, pos, false
	}
	return binary.LittleEndian.Uint16(data[pos:]), pos + 2, true
}

func readUint32(data []byte, pos int) (uint32, int, bool) {
	if pos+4 > len(data) {
		return 0, pos, false
	}
	return binary.LittleEndian.Uint32(data[pos:]), pos + 4, true
}

func readUint24(data []byte, pos int) (uint32, int, bool) {
	if pos+3 > len(data) {
		return 0, pos, false
	}
	v := uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16
	return v, pos + 3, true
}

// readIntLenEnc decodes a MySQL length-encoded integer.
func readIntLenEnc(data []byte, pos int) (uint64, int, bool) {
	if pos >= len(data) {
		return 0, pos, false
	}
	switch lead := data[pos]; {
	case lead < 0xfb:
		return uint64(lead), pos + 1, true
	case lead == 0xfb:
		return 0, pos + 1, true // NULL-ish marker; callers treat as absent
	case lead == 0xfc:
		v, np, ok := readUint16(data, pos+1)
		return uint64(v), np, ok
	case lead == 0xfd:
		v, np, ok := readUint24(data, pos+1)
		return uint64(v), np, ok
	case lead == 0xfe:
		if pos+9 > len(data) {
			return 0, pos, false
		}
		return binary.LittleEndian.Uint64(data[pos+1:]), pos + 9, true
	default:
		return 0, pos, false
	}
}

func readCountOfBytes(data []byte, pos int, n int) ([]byte, int, bool) {
	if pos+n > len(data) {
		return nil, pos, false
	}
	return data[pos : pos+n], pos + n, true
}

func readStringNUL(data []byte, pos int) (string, int, bool) {
	end := pos
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end >= len(data) {
		return "", pos, false
	}
	return string(data[pos:end]), end + 1, true
}

func readStringLenEnc(data []byte, pos int) (string, int, bool) {
	n, np, ok := readIntLenEnc(data, pos)
	if !ok {
		return "", pos, false
	}
	b, np2, ok := readCountOfBytes(data, np, int(n))
	if !ok {
		return "", pos, false
	}
	return string(b), np2, true
}

// writeIntLenEnc is the Result Builder's counterpart, kept here because it
// round-trips with readIntLenEnc (spec.md §8's "Round-trip laws").
func writeIntLenEnc(data []byte, pos int, n uint64) int {
	switch {
	case n < 251:
		data[pos] = byte(n)
		return pos + 1
	case n < 1<<16:
		data[pos] = 0xfc
		binary.LittleEndian.PutUint16(data[pos+1:], uint16(n))
		return pos + 3
	case n < 1<<24:
		data[pos] = 0xfd
		data[pos+1] = byte(n)
		data[pos+2] = byte(n >> 8)
		data[pos+3] = byte(n >> 16)
		return pos + 4
	default:
		data[pos] = 0xfe
		binary.LittleEndian.PutUint64(data[pos+1:], n)
		return pos + 9
	}
}

func lenEncIntSize(n uint64) int {
	switch {
	case n < 251:
		return 1
	case n < 1<<16:
		return 3
	case n < 1<<24:
		return 4
	default:
		return 9
	}
}
