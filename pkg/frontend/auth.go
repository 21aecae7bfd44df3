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
	"crypto/rand"
	"encoding/binary"

	"github.com/baikaldb/sqlgate/pkg/logutil"
	"github.com/baikaldb/sqlgate/pkg/merr"
	"go.uber.org/zap"
)

const serverVersionPrefix = "8.0.30-sqlgate-"

var serverVersion = "1.0.0"

// GenerateSalt fills a fresh 20-byte auth-plugin-data challenge. The scramble
// comparison the core performs is verbatim (GLOSSARY: "Scramble"), so the
// salt's only job is to look like a real handshake to generic clients; it is
// never combined with the password.
func GenerateSalt() [SaltLen]byte {
	var salt [SaltLen]byte
	_, _ = rand.Read(salt[:])
	for i := range salt {
		if salt[i] == 0 {
			salt[i] = 1
		}
	}
	return salt
}

// MakeHandshakePayload builds the v10 handshake packet body, grounded on
// mysql_protocol.go's makeHandshakeV10Payload.
func MakeHandshakePayload(c *Connection, connectionID uint32) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, clientProtocolVersion)
	buf = append(buf, []byte(serverVersionPrefix+serverVersion)...)
	buf = append(buf, 0)

	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], connectionID)
	buf = append(buf, idBuf[:]...)

	buf = append(buf, c.Salt[0:8]...)
	buf = append(buf, 0) // filler

	var capLow [2]byte
	binary.LittleEndian.PutUint16(capLow[:], uint16(DefaultCapability&0xFFFF))
	buf = append(buf, capLow[:]...)

	buf = append(buf, utf8mb4BinCollationID)

	var status [2]byte
	binary.LittleEndian.PutUint16(status[:], DefaultClientConnStatus)
	buf = append(buf, status[:]...)

	var capHigh [2]byte
	binary.LittleEndian.PutUint16(capHigh[:], uint16((DefaultCapability>>16)&0xFFFF))
	buf = append(buf, capHigh[:]...)

	if DefaultCapability&CLIENT_PLUGIN_AUTH != 0 {
		buf = append(buf, byte(len(c.Salt)+1))
	} else {
		buf = append(buf, 0)
	}

	buf = append(buf, make([]byte, 10)...) // reserved

	if DefaultCapability&CLIENT_SECURE_CONNECTION != 0 {
		buf = append(buf, c.Salt[8:]...)
		buf = append(buf, 0)
	}

	if DefaultCapability&CLIENT_PLUGIN_AUTH != 0 {
		buf = append(buf, []byte(AuthNativePassword)...)
		buf = append(buf, 0)
	}
	return buf
}

// HandshakeResponse is the parsed client handshake-response41 packet.
type HandshakeResponse struct {
	Capabilities uint32
	Charset      byte
	Username     string
	AuthResponse []byte
	Database     string
}

// ParseHandshakeResponse implements spec.md §4.3's extraction rules exactly:
// charset byte, 23 reserved bytes, NUL username, length-prefixed auth
// response, optional NUL database name.
func ParseHandshakeResponse(data []byte) (*HandshakeResponse, *merr.SqlError) {
	pos := 0
	caps, pos, ok := readUint32(data, pos)
	if !ok {
		return nil, merr.NewErrorCommon("truncated handshake response: capabilities")
	}
	if caps&CLIENT_PROTOCOL_41 == 0 {
		return nil, merr.NewErrorCommon("client does not support protocol 41")
	}

	// max packet size (4 bytes), the client's advertised limit; not used,
	// skipped here.
	pos += 4

	charset, pos, ok := readUint8(data, pos)
	if !ok {
		return nil, merr.NewErrorCommon("truncated handshake response: charset")
	}

	_, pos, ok = readCountOfBytes(data, pos, 23)
	if !ok {
		return nil, merr.NewErrorCommon("truncated handshake response: reserved")
	}

	username, pos, ok := readStringNUL(data, pos)
	if !ok {
		return nil, merr.NewErrorCommon("truncated handshake response: username")
	}

	authLen, pos, ok := readUint8(data, pos)
	if !ok {
		return nil, merr.NewErrorCommon("truncated handshake response: auth response length")
	}
	authResp, pos, ok := readCountOfBytes(data, pos, int(authLen))
	if !ok {
		return nil, merr.NewErrorCommon("truncated handshake response: auth response")
	}

	resp := &HandshakeResponse{
		Capabilities: caps,
		Charset:      normalizeCharset(charset),
		Username:     username,
		AuthResponse: append([]byte(nil), authResp...),
	}
	if resp.Charset != charset {
		logutil.Warn("unsupported charset byte, falling back to gbk",
			zap.Uint8("charset", charset), zap.String("username", username))
	}

	if caps&CLIENT_CONNECT_WITH_DB != 0 {
		if db, _, ok := readStringNUL(data, pos); ok {
			resp.Database = db
		}
	}
	return resp, nil
}

// normalizeCharset resolves the Open Question recorded in DESIGN.md: any byte
// other than 28/33 normalizes to gbk, consistently for both charset_num and
// charset_name (the caller derives charset_name from the returned value).
func normalizeCharset(b byte) byte {
	if b == charsetGBK || b == charsetUTF8MB4 {
		return b
	}
	return charsetGBK
}

func charsetName(b byte) string {
	if b == charsetUTF8MB4 {
		return "utf8"
	}
	return "gbk"
}

// Authenticate validates the handshake response against the looked-up
// UserInfo and enforces the max-connections-per-user cap, per spec.md §4.3.
// An auth-response length of 0 or not exactly 20 bytes is AuthFailed, as is
// any scramble byte mismatch.
func Authenticate(c *Connection, resp *HandshakeResponse, user *UserInfo) *merr.SqlError {
	if len(resp.AuthResponse) != SaltLen {
		return merr.NewAccessDenied(resp.Username, c.PeerIP)
	}
	for i := 0; i < SaltLen; i++ {
		if resp.AuthResponse[i] != user.ScramblePassword[i] {
			return merr.NewAccessDenied(resp.Username, c.PeerIP)
		}
	}
	if !user.TryIncrConnection() {
		return merr.NewMaxConnectionLimit(user.Username, user.MaxConnection)
	}

	c.Username = resp.Username
	c.User = user
	c.CharsetNum = resp.Charset
	c.CharsetName = charsetName(resp.Charset)
	c.CurrentDB = resp.Database
	c.IsAuthed = true
	c.IsCounted = true
	return nil
}
