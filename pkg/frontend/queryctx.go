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
	"encoding/json"
	"strings"
	"time"

	"github.com/baikaldb/sqlgate/pkg/merr"
)

// QueryType is the fixed classification enumeration from spec.md §4.6.
type QueryType int

const (
	QtUnknown QueryType = iota
	QtUse
	QtFieldList
	QtCreateDb
	QtDropDb
	QtRefresh
	QtStat
	QtProcessInfo
	QtDebug
	QtChangeUser
	QtPing
	QtSelect
	QtShow
	QtExplain
	QtKill
	QtUseInQuery
	QtDesc
	QtCall
	QtSetNames
	QtSetCharset
	QtSetCharacterSetClient
	QtSetCharacterSetConnection
	QtSetCharacterSetResults
	QtSetCharacterSet
	QtSet
	QtWrite
)

// StatInfo carries the query-timing bookkeeping the original implementation
// logs via _print_query_time; here the timestamps are recorded on the
// QueryContext only and are not written to the log or a metrics backend.
type StatInfo struct {
	ReceivedAt time.Time
	PlannedAt  time.Time
	ExecutedAt time.Time
	ErrorCode  uint16
	ErrorMsg   string
}

func (s *StatInfo) MarkPlanned()  { s.PlannedAt = time.Now() }
func (s *StatInfo) MarkExecuted() { s.ExecutedAt = time.Now() }

// RuntimeState carries transaction bookkeeping the planner callback would
// otherwise mutate directly; kept here so the FSM applies the mutation after
// the (synchronous) collaborator call returns, per the Design Note on
// planner-callback re-entrancy.
type RuntimeState struct {
	TxnID      uint64
	SeqID      uint64
	OnePC      bool
	ErrorCode  uint16
	ErrorMsg   string
}

// QueryContext is exclusively owned by its Connection for the duration of a
// single command and replaced on each new command, per spec.md §3.
type QueryContext struct {
	SQL          string
	MysqlCmd     byte
	Type         QueryType
	CurDB        string
	Comments     []string
	RegionID     int64
	HasRegionID  bool
	Enable2PC    bool
	Stat         StatInfo
	Runtime      RuntimeState
	PlanRoot     interface{} // opaque execution-node tree produced by the Planner collaborator
}

func NewQueryContext(cmd byte, curDB string) *QueryContext {
	return &QueryContext{
		MysqlCmd: cmd,
		CurDB:    curDB,
		Stat:     StatInfo{ReceivedAt: time.Now()},
	}
}

// jsonHint is the shape of a recognized JSON debug comment: /*{"region_id":1,"enable_2pc":true}*/
type jsonHint struct {
	RegionID  *int64 `json:"region_id"`
	Enable2PC *bool  `json:"enable_2pc"`
}

// ExtractComments strips leading/trailing whitespace and a trailing ';' from
// raw SQL text, pulls every /* ... */ block into Comments, and harvests
// recognized JSON hint keys, as spec.md §4.5 and §12 describe. It returns the
// SQL text with comments removed.
func ExtractComments(raw string) (sql string, ctx *QueryContext) {
	ctx = &QueryContext{}
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), ";")
	trimmed = strings.TrimSpace(trimmed)

	var b strings.Builder
	for {
		start := strings.Index(trimmed, "/*")
		if start < 0 {
			b.WriteString(trimmed)
			break
		}
		end := strings.Index(trimmed[start:], "*/")
		if end < 0 {
			b.WriteString(trimmed)
			break
		}
		end += start
		b.WriteString(trimmed[:start])
		comment := trimmed[start+2 : end]
		ctx.Comments = append(ctx.Comments, comment)
		applyJSONHint(ctx, comment)
		trimmed = trimmed[end+2:]
	}
	return strings.TrimSpace(b.String()), ctx
}

func applyJSONHint(ctx *QueryContext, comment string) {
	comment = strings.TrimSpace(comment)
	if len(comment) == 0 || comment[0] != '{' {
		return
	}
	var hint jsonHint
	if err := json.Unmarshal([]byte(comment), &hint); err != nil {
		return
	}
	if hint.RegionID != nil {
		ctx.RegionID = *hint.RegionID
		ctx.HasRegionID = true
	}
	if hint.Enable2PC != nil {
		ctx.Enable2PC = *hint.Enable2PC
	}
}

// SetError records the first structured error onto the context, matching
// spec.md §7's propagation rule: whoever attaches first wins unless the code
// is still ER_ERROR_FIRST.
func (q *QueryContext) SetError(err *merr.SqlError) {
	if q.Runtime.ErrorCode != merr.ErErrorFirst {
		return
	}
	q.Runtime.ErrorCode = err.Code
	q.Runtime.ErrorMsg = err.Message
	q.Stat.ErrorCode = err.Code
	q.Stat.ErrorMsg = err.Message
}
