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
	"bytes"
	"testing"
)

func TestReadIntLenEnc(t *testing.T) {
	cases := []struct {
		data []byte
		want uint64
	}{
		{[]byte{0x05}, 5},
		{[]byte{0xfc, 0x01, 0x02}, 0x0201},
		{[]byte{0xfd, 0x01, 0x02, 0x03}, 0x030201},
		{[]byte{0xfe, 1, 0, 0, 0, 0, 0, 0, 0}, 1},
	}
	for _, tc := range cases {
		got, pos, ok := readIntLenEnc(tc.data, 0)
		if !ok {
			t.Fatalf("readIntLenEnc(%v) failed to decode", tc.data)
		}
		if got != tc.want {
			t.Errorf("readIntLenEnc(%v) = %d, want %d", tc.data, got, tc.want)
		}
		if pos != len(tc.data) {
			t.Errorf("readIntLenEnc(%v) consumed %d bytes, want %d", tc.data, pos, len(tc.data))
		}
	}
}

func TestLenEncIntRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 250, 251, 1 << 16, 1<<16 + 1, 1 << 24, 1<<32 + 7} {
		buf := make([]byte, 9)
		end := writeIntLenEnc(buf, 0, n)
		got, pos, ok := readIntLenEnc(buf, 0)
		if !ok {
			t.Fatalf("readIntLenEnc failed for n=%d", n)
		}
		if got != n {
			t.Errorf("round trip n=%d got %d", n, got)
		}
		if pos != end {
			t.Errorf("round trip n=%d: write consumed %d, read consumed %d", n, end, pos)
		}
	}
}

func TestReadStringNUL(t *testing.T) {
	data := []byte("root\x00rest")
	s, pos, ok := readStringNUL(data, 0)
	if !ok || s != "root" {
		t.Fatalf("readStringNUL = %q, %v, want root, true", s, ok)
	}
	if pos != 5 {
		t.Errorf("pos = %d, want 5", pos)
	}
}

func TestReadStringNULMissingTerminator(t *testing.T) {
	data := []byte("root")
	_, _, ok := readStringNUL(data, 0)
	if ok {
		t.Fatalf("expected failure decoding unterminated string")
	}
}

func TestReadStringLenEnc(t *testing.T) {
	data := []byte{4, 't', 'e', 's', 't'}
	s, pos, ok := readStringLenEnc(data, 0)
	if !ok || s != "test" {
		t.Fatalf("readStringLenEnc = %q, %v", s, ok)
	}
	if pos != len(data) {
		t.Errorf("pos = %d, want %d", pos, len(data))
	}
}

func TestReadCountOfBytes(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	got, pos, ok := readCountOfBytes(data, 1, 3)
	if !ok || !bytes.Equal(got, []byte{2, 3, 4}) {
		t.Fatalf("readCountOfBytes = %v, %v", got, ok)
	}
	if pos != 4 {
		t.Errorf("pos = %d, want 4", pos)
	}
}

// fakeSocket replays a scripted sequence of Read events. A []byte event
// delivers up to that many bytes (copied into the caller's buffer); a nil
// event delivers ErrWouldBlock without consuming a byte, modeling a readiness
// notification that arrives before the kernel actually has the next chunk --
// spec.md §8 scenario 5 ("Partial read").
type fakeSocket struct {
	events [][]byte
	pos    int
}

func (f *fakeSocket) Read(buf []byte) (int, error) {
	if f.pos >= len(f.events) {
		return 0, ErrWouldBlock
	}
	ev := f.events[f.pos]
	f.pos++
	if ev == nil {
		return 0, ErrWouldBlock
	}
	n := copy(buf, ev)
	return n, nil
}

func (f *fakeSocket) Write(buf []byte) (int, error) {
	return len(buf), nil
}

func TestReadPacketResumesAcrossPartialReads(t *testing.T) {
	body := bytes.Repeat([]byte{0x42}, 100)
	header := []byte{100, 0, 0, 0} // length=100, seq=0
	full := append(append([]byte{}, header...), body...)

	sock := &fakeSocket{events: [][]byte{full[0:3], nil, full[3:4], nil, full[4:]}}
	c := NewConnection(1, sock, 0)

	_, outcome, err := ReadPacket(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != ReadWait {
		t.Fatalf("expected ReadWait after 3 bytes, got %v", outcome)
	}

	_, outcome, err = ReadPacket(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != ReadWait {
		t.Fatalf("expected ReadWait after header byte, got %v", outcome)
	}

	payload, outcome, err := ReadPacket(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != ReadDone {
		t.Fatalf("expected ReadDone on final chunk, got %v", outcome)
	}
	if !bytes.Equal(payload, body) {
		t.Fatalf("decoded payload does not match concatenation of delivered bytes")
	}
}

func TestReadPacketRejectsOversizedLength(t *testing.T) {
	header := []byte{0xff, 0xff, 0xff, 0} // length = 0xffffff, over the ceiling is unrealistic but exceeds a configured max
	sock := &fakeSocket{events: [][]byte{header}}
	c := NewConnection(1, sock, 0)
	c.PacketLenMax = 10
	_, outcome, err := ReadPacket(c)
	if outcome != ReadError || err == nil {
		t.Fatalf("expected ReadError for oversized packet, got outcome=%v err=%v", outcome, err)
	}
}
