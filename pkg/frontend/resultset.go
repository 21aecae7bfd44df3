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

	"github.com/baikaldb/sqlgate/pkg/merr"
)

// Field describes one result-set column, the minimal subset of the
// column-definition41 packet this core actually varies: name and type.
// Everything else (catalog/db/table/org names, charset, flags, decimals) is
// filled with the fixed values the teacher's makeColumnDefinition41Packet
// uses for synthetic result sets.
type Field struct {
	Name string
	Type byte
}

// Row is one result row; every cell is rendered length-encoded, NULL
// represented by a nil entry.
type Row []interface{}

// appendPacket appends one packet (header + payload) to c.sendBuf, assigning
// the next sequence id and advancing it, per spec.md §4.2's "Sequence ids
// begin at 1 ... and increment monotonically across all packets."
func appendPacket(c *Connection, payload []byte) {
	c.outSeqID++
	var hdr [4]byte
	l := len(payload)
	hdr[0] = byte(l)
	hdr[1] = byte(l >> 8)
	hdr[2] = byte(l >> 16)
	hdr[3] = c.outSeqID
	c.sendBuf = append(c.sendBuf, hdr[:]...)
	c.sendBuf = append(c.sendBuf, payload...)
}

// WriteOK appends an OK packet. affectedRows/lastInsertID/warnings follow the
// standard OK packet layout; status mirrors DefaultClientConnStatus.
func WriteOK(c *Connection, affectedRows, lastInsertID uint64, warnings uint16, message string) {
	buf := make([]byte, 1+lenEncIntSize(affectedRows)+lenEncIntSize(lastInsertID)+2+2+len(message))
	pos := 0
	buf[pos] = 0x00
	pos++
	pos = writeIntLenEnc(buf, pos, affectedRows)
	pos = writeIntLenEnc(buf, pos, lastInsertID)
	binary.LittleEndian.PutUint16(buf[pos:], DefaultClientConnStatus)
	pos += 2
	binary.LittleEndian.PutUint16(buf[pos:], warnings)
	pos += 2
	pos += copy(buf[pos:], message)
	appendPacket(c, buf[:pos])
}

// WriteERR appends an error packet for a *merr.SqlError, per spec.md §7.
func WriteERR(c *Connection, err *merr.SqlError) {
	if err == nil {
		err = merr.NewErrorCommon("unknown error")
	}
	payload := make([]byte, 0, 3+len(err.Message))
	payload = append(payload, 0xff)
	var codeBuf [2]byte
	binary.LittleEndian.PutUint16(codeBuf[:], err.Code)
	payload = append(payload, codeBuf[:]...)
	payload = append(payload, '#')
	payload = append(payload, []byte(err.State)...)
	payload = append(payload, []byte(err.Message)...)
	appendPacket(c, payload)
}

func writeEOF(c *Connection, warnings uint16) {
	payload := make([]byte, 5)
	payload[0] = 0xfe
	binary.LittleEndian.PutUint16(payload[1:], warnings)
	binary.LittleEndian.PutUint16(payload[3:], DefaultClientConnStatus)
	appendPacket(c, payload)
}

func writeColumnDefinition(c *Connection, f Field) {
	// catalog is the fixed "def", schema/table/org_table are empty, and
	// name/org_name both carry f.Name for synthetic result sets, matching the
	// teacher's makeColumnDefinition41Packet defaults for built-in responders.
	const catalog = "def"
	size := lenEncStrSize(catalog) + lenEncStrSize("") + lenEncStrSize("") +
		lenEncStrSize("") + lenEncStrSize(f.Name) + lenEncStrSize(f.Name) +
		1 + 2 + 4 + 1 + 2 + 1 + 2
	buf := make([]byte, size)
	pos := 0
	pos = writeLenEncStr(buf, pos, catalog)
	pos = writeLenEncStr(buf, pos, "")
	pos = writeLenEncStr(buf, pos, "")
	pos = writeLenEncStr(buf, pos, "")
	pos = writeLenEncStr(buf, pos, f.Name)
	pos = writeLenEncStr(buf, pos, f.Name)
	buf[pos] = 0x0c // length of fixed fields that follow
	pos++
	binary.LittleEndian.PutUint16(buf[pos:], uint16(utf8mb4BinCollationID))
	pos += 2
	binary.LittleEndian.PutUint32(buf[pos:], 255)
	pos += 4
	buf[pos] = f.Type
	pos++
	binary.LittleEndian.PutUint16(buf[pos:], 0) // flags
	pos += 2
	buf[pos] = 0 // decimals
	pos++
	pos += 2 // filler
	appendPacket(c, buf[:pos])
}

func lenEncStrSize(s string) int {
	return lenEncIntSize(uint64(len(s))) + len(s)
}

func writeLenEncStr(buf []byte, pos int, s string) int {
	pos = writeIntLenEnc(buf, pos, uint64(len(s)))
	pos += copy(buf[pos:], s)
	return pos
}

func writeRowCell(buf []byte, pos int, v interface{}) int {
	if v == nil {
		buf[pos] = 0xfb
		return pos + 1
	}
	s, ok := v.(string)
	if !ok {
		s = toString(v)
	}
	return writeLenEncStr(buf, pos, s)
}

func rowCellSize(v interface{}) int {
	if v == nil {
		return 1
	}
	s, ok := v.(string)
	if !ok {
		s = toString(v)
	}
	return lenEncStrSize(s)
}

func writeRow(c *Connection, row Row) {
	size := 0
	for _, v := range row {
		size += rowCellSize(v)
	}
	buf := make([]byte, size)
	pos := 0
	for _, v := range row {
		pos = writeRowCell(buf, pos, v)
	}
	appendPacket(c, buf[:pos])
}

// WriteResultSet emits the full sequence spec.md §4.2 and §8 scenario 3
// specify: column-count header, one column-definition packet per field, an
// EOF, one row packet per row, and a final EOF -- sequence ids strictly
// increasing from 1.
func WriteResultSet(c *Connection, fields []Field, rows []Row) {
	header := make([]byte, lenEncIntSize(uint64(len(fields))))
	writeIntLenEnc(header, 0, uint64(len(fields)))
	appendPacket(c, header)

	for _, f := range fields {
		writeColumnDefinition(c, f)
	}
	writeEOF(c, 0)

	for _, row := range rows {
		writeRow(c, row)
	}
	writeEOF(c, 0)
}
