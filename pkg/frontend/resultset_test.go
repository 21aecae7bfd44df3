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
)

func newTestConnection() *Connection {
	return NewConnection(1, &fakeSocket{}, 0)
}

func TestAppendPacketSequenceIncrements(t *testing.T) {
	c := newTestConnection()
	WriteOK(c, 0, 0, 0, "")
	WriteOK(c, 0, 0, 0, "")
	if len(c.sendBuf) == 0 {
		t.Fatalf("expected non-empty send buffer")
	}
	firstSeq := c.sendBuf[3]
	secondHeaderStart := 4 + int(c.sendBuf[0])
	secondSeq := c.sendBuf[secondHeaderStart+3]
	if firstSeq != 1 || secondSeq != 2 {
		t.Fatalf("sequence ids = %d, %d, want 1, 2", firstSeq, secondSeq)
	}
}

func TestWriteERRUsesSqlErrorCode(t *testing.T) {
	c := newTestConnection()
	WriteERR(c, merr.NewNoDbError())
	if len(c.sendBuf) < 5 || c.sendBuf[4] != 0xff {
		t.Fatalf("expected ERR packet marker 0xff in payload")
	}
}

func TestWriteResultSetSequenceIdsIncreaseMonotonically(t *testing.T) {
	c := newTestConnection()
	fields := []Field{{Name: "a", Type: MYSQL_TYPE_VAR_STRING}, {Name: "b", Type: MYSQL_TYPE_LONG}}
	rows := []Row{{"x", 1}, {"y", 2}}
	WriteResultSet(c, fields, rows)

	var seqs []byte
	pos := 0
	for pos+4 <= len(c.sendBuf) {
		length := int(c.sendBuf[pos]) | int(c.sendBuf[pos+1])<<8 | int(c.sendBuf[pos+2])<<16
		seqs = append(seqs, c.sendBuf[pos+3])
		pos += 4 + length
	}
	// column count + 2 column defs + EOF + 2 rows + EOF = 7 packets
	if len(seqs) != 7 {
		t.Fatalf("got %d packets, want 7", len(seqs))
	}
	for i, s := range seqs {
		if int(s) != i+1 {
			t.Fatalf("packet %d has sequence id %d, want %d", i, s, i+1)
		}
	}
}

func TestWriteRowCellNullMarker(t *testing.T) {
	buf := make([]byte, 1)
	pos := writeRowCell(buf, 0, nil)
	if pos != 1 || buf[0] != 0xfb {
		t.Fatalf("expected NULL marker 0xfb, got %v", buf[:pos])
	}
}
