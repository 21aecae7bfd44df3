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

// Package merr defines the structured error type carried through the
// connection's QueryContext and rendered into MySQL ERR packets.
package merr

import "fmt"

// Standard MySQL error codes this core emits. Values match the real
// mysql_com.h / errmsg numbering so that off-the-shelf clients render them
// the way they would against a real MySQL server.
const (
	ErErrorFirst          = 0
	ErErrorOnRead         = 1034
	ErErrorCommon         = 1105
	ErNotAllowedCommand   = 1148
	ErNoDbError           = 1046
	ErMakeResultPacket    = 1160
	ErQueryExceedQuota    = 3032
	ErUnknownCharacterSet = 1115
	ErGenPlanFailed       = 1064
	ErExecPlanFailed      = 1065
	ErAccessDenied        = 1045
	ErDbaccessDenied      = 1044
	ErNoSuchTable         = 1146
)

// SqlState is a coarse SQLSTATE-ish class; the Result Builder writes it into
// the ERR packet after the '#' marker, following the error code.
type SqlState string

const (
	StateGeneral   SqlState = "HY000"
	StateSyntax    SqlState = "42000"
	StateAccess    SqlState = "28000"
	StateNoSuchTbl SqlState = "42S02"
)

// SqlError is the structured error type threaded through QueryContext and
// rendered by the Result Builder into an ERR packet.
type SqlError struct {
	Code    uint16
	State   SqlState
	Message string
}

func (e *SqlError) Error() string {
	return fmt.Sprintf("ER %d (%s): %s", e.Code, e.State, e.Message)
}

func newf(code uint16, state SqlState, format string, args ...interface{}) *SqlError {
	return &SqlError{Code: code, State: state, Message: fmt.Sprintf(format, args...)}
}

func NewErrorOnRead(err error) *SqlError {
	return newf(ErErrorOnRead, StateGeneral, "error on read: %v", err)
}

func NewErrorCommon(format string, args ...interface{}) *SqlError {
	return newf(ErErrorCommon, StateGeneral, format, args...)
}

func NewNotAllowedCommand(cmd byte) *SqlError {
	return newf(ErNotAllowedCommand, StateGeneral, "command %#x is not allowed", cmd)
}

func NewNoDbError() *SqlError {
	return newf(ErNoDbError, StateGeneral, "no database selected")
}

func NewMakeResultPacketFailed(err error) *SqlError {
	return newf(ErMakeResultPacket, StateGeneral, "failed to make result packet: %v", err)
}

func NewQueryExceedQuota(user string, quota int64) *SqlError {
	return newf(ErQueryExceedQuota, StateGeneral, "user %s exceeded query quota %d/s", user, quota)
}

func NewUnknownCharacterSet(charset byte) *SqlError {
	return newf(ErUnknownCharacterSet, StateGeneral, "unknown character set byte %#x", charset)
}

func NewGenPlanFailed(sql string, cause error) *SqlError {
	return newf(ErGenPlanFailed, StateSyntax, "failed to plan %q: %v", sql, cause)
}

func NewExecPlanFailed(cause error) *SqlError {
	return newf(ErExecPlanFailed, StateGeneral, "failed to execute plan: %v", cause)
}

func NewAccessDenied(user, host string) *SqlError {
	return newf(ErAccessDenied, StateAccess, "Access denied for user '%s'@'%s'", user, host)
}

func NewMaxConnectionLimit(user string, max int64) *SqlError {
	return newf(ErDbaccessDenied, StateAccess, "Username %s has reach the max connection limit(%d)", user, max)
}

func NewNoSuchTable(db, table string) *SqlError {
	return newf(ErNoSuchTable, StateNoSuchTbl, "Table '%s.%s' doesn't exist", db, table)
}

// AsSqlError unwraps err into a *SqlError, synthesizing a generic one if the
// cause never attached a structured error -- the FSM's fallback described in
// spec.md §7 ("only when the planner left error_code == ER_ERROR_FIRST does
// the FSM synthesize a default").
func AsSqlError(err error) *SqlError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SqlError); ok {
		return se
	}
	return NewErrorCommon("%v", err)
}
