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

// Client capability flags, as sent/received in the handshake and handshake
// response packets. Numeric values are the standard MySQL wire-protocol
// constants.
const (
	CLIENT_LONG_PASSWORD                  uint32 = 0x00000001
	CLIENT_FOUND_ROWS                     uint32 = 0x00000002
	CLIENT_LONG_FLAG                      uint32 = 0x00000004
	CLIENT_CONNECT_WITH_DB                uint32 = 0x00000008
	CLIENT_NO_SCHEMA                      uint32 = 0x00000010
	CLIENT_COMPRESS                       uint32 = 0x00000020
	CLIENT_ODBC                           uint32 = 0x00000040
	CLIENT_LOCAL_FILES                    uint32 = 0x00000080
	CLIENT_IGNORE_SPACE                    uint32 = 0x00000100
	CLIENT_PROTOCOL_41                    uint32 = 0x00000200
	CLIENT_INTERACTIVE                    uint32 = 0x00000400
	CLIENT_SSL                            uint32 = 0x00000800
	CLIENT_IGNORE_SIGPIPE                 uint32 = 0x00001000
	CLIENT_TRANSACTIONS                   uint32 = 0x00002000
	CLIENT_RESERVED                       uint32 = 0x00004000
	CLIENT_SECURE_CONNECTION               uint32 = 0x00008000
	CLIENT_MULTI_STATEMENTS               uint32 = 0x00010000
	CLIENT_MULTI_RESULTS                  uint32 = 0x00020000
	CLIENT_PS_MULTI_RESULTS                uint32 = 0x00040000
	CLIENT_PLUGIN_AUTH                     uint32 = 0x00080000
	CLIENT_CONNECT_ATTRS                   uint32 = 0x00100000
	CLIENT_PLUGIN_AUTH_LENENC_CLIENT_DATA  uint32 = 0x00200000
	CLIENT_SESSION_TRACK                    uint32 = 0x00800000
	CLIENT_DEPRECATE_EOF                    uint32 = 0x01000000
)

// DefaultCapability is advertised by the server in the handshake packet.
// Prepared-statement, compression, SSL and session-track capabilities are
// deliberately not advertised; they are spec.md Non-goals.
const DefaultCapability = CLIENT_LONG_PASSWORD | CLIENT_FOUND_ROWS | CLIENT_LONG_FLAG |
	CLIENT_CONNECT_WITH_DB | CLIENT_PROTOCOL_41 | CLIENT_TRANSACTIONS |
	CLIENT_SECURE_CONNECTION | CLIENT_MULTI_STATEMENTS | CLIENT_MULTI_RESULTS |
	CLIENT_PLUGIN_AUTH

// DefaultClientConnStatus is the status flags field echoed in the handshake.
const DefaultClientConnStatus uint16 = 0x0002 // SERVER_STATUS_AUTOCOMMIT

// COM_* command byte values, the first byte of every command packet.
const (
	COM_SLEEP        byte = 0x00
	COM_QUIT         byte = 0x01
	COM_INIT_DB      byte = 0x02
	COM_QUERY        byte = 0x03
	COM_FIELD_LIST   byte = 0x04
	COM_CREATE_DB    byte = 0x05
	COM_DROP_DB      byte = 0x06
	COM_REFRESH      byte = 0x07
	COM_SHUTDOWN     byte = 0x08
	COM_STATISTICS   byte = 0x09
	COM_PROCESS_INFO byte = 0x0a
	COM_CONNECT      byte = 0x0b
	COM_PROCESS_KILL byte = 0x0c
	COM_DEBUG        byte = 0x0d
	COM_PING         byte = 0x0e
	COM_TIME         byte = 0x0f
	COM_CHANGE_USER  byte = 0x11
	COM_STMT_PREPARE byte = 0x16
	COM_STMT_EXECUTE byte = 0x17
	COM_STMT_CLOSE   byte = 0x19
)

// MYSQL_TYPE_* column type codes used by the Result Builder's column
// definition packets.
const (
	MYSQL_TYPE_DECIMAL  byte = 0x00
	MYSQL_TYPE_LONG     byte = 0x03
	MYSQL_TYPE_FLOAT    byte = 0x04
	MYSQL_TYPE_DOUBLE   byte = 0x05
	MYSQL_TYPE_NULL     byte = 0x06
	MYSQL_TYPE_LONGLONG byte = 0x08
	MYSQL_TYPE_VAR_STRING byte = 0xfd
	MYSQL_TYPE_STRING   byte = 0xfe
)

const clientProtocolVersion byte = 10

// charset code points spec.md §4.3/§6 singles out; any other byte normalizes
// to gbk (the Open Question decision recorded in DESIGN.md).
const (
	charsetGBK     byte = 28
	charsetUTF8MB4 byte = 33 // treated as the "utf8" code point per spec.md wording
)

const utf8mb4BinCollationID byte = 45

// AuthNativePassword is the only auth plugin name ever advertised; the
// scramble comparison itself is verbatim (see auth.go), not a real
// mysql_native_password derivation, per the GLOSSARY's "Scramble" entry.
const AuthNativePassword = "mysql_native_password"

// HeaderOffset is the size of the packet header (3-byte length plus 1-byte
// sequence id); appendPacket writes that header ahead of each payload.
const HeaderOffset = 4

// SaltLen is the length, in bytes, of the handshake's auth-plugin-data.
const SaltLen = 20
