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
	"strings"
	"time"

	"github.com/baikaldb/sqlgate/pkg/logutil"
	"github.com/baikaldb/sqlgate/pkg/merr"
	"go.uber.org/zap"
)

// DispatchOutcome tells the FSM which state to move to after Dispatch
// returns, per the State Machine table in spec.md §4.4.
type DispatchOutcome int

const (
	OutcomeReady      DispatchOutcome = iota // result ready, move to ReadQueryResult
	OutcomeErrorReuse                        // recoverable per-query error, move to ErrorReuse
	OutcomeShutdown                          // client-initiated shutdown, move to Error
	OutcomeFatal                             // catalog lookup failed, move to Error per spec.md §4.7
)

// Dispatch implements the Command Dispatcher, spec.md §4.5: classify by
// command id, then (for COM_QUERY) by SQL prefix, and route to a built-in
// responder, the quota check, or the planner collaborator.
func Dispatch(c *Connection, cmd byte, payload []byte, schema Schema, planner Planner) DispatchOutcome {
	switch cmd {
	case COM_PING:
		WriteOK(c, 0, 0, 0, "")
		return OutcomeReady

	case COM_INIT_DB:
		c.CurrentDB = strings.TrimRight(string(payload), "\x00")
		WriteOK(c, 0, 0, 0, "")
		return OutcomeReady

	case COM_QUERY:
		return dispatchQuery(c, string(payload), schema, planner)

	case COM_FIELD_LIST, COM_STMT_PREPARE, COM_STMT_EXECUTE, COM_STMT_CLOSE:
		WriteERR(c, merr.NewNotAllowedCommand(cmd))
		return OutcomeErrorReuse

	case COM_QUIT, COM_SHUTDOWN:
		return OutcomeShutdown

	default:
		WriteERR(c, merr.NewNotAllowedCommand(cmd))
		return OutcomeErrorReuse
	}
}

func dispatchQuery(c *Connection, raw string, schema Schema, planner Planner) DispatchOutcome {
	globalDatabaseRequestCounters.Incr(c.CurrentDB)
	sql, hintCtx := ExtractComments(raw)
	q := c.FreshQuery(COM_QUERY)
	q.SQL = sql
	q.Comments = hintCtx.Comments
	q.RegionID = hintCtx.RegionID
	q.HasRegionID = hintCtx.HasRegionID
	q.Enable2PC = hintCtx.Enable2PC
	q.Type = ClassifySQL(sql)

	if IsSetVariant(q.Type) {
		WriteOK(c, 0, 0, 0, "")
		return OutcomeReady
	}

	if name, ok := MatchBuiltin(sql); ok {
		if se := dispatchBuiltin(c, schema, name, sql); se != nil {
			WriteERR(c, se)
			if se.Code == merr.ErNoDbError {
				// missing database is a per-query semantic error, per
				// spec.md §4.7; the connection is preserved, unlike a
				// genuine catalog lookup failure.
				return OutcomeErrorReuse
			}
			return OutcomeFatal
		}
		return OutcomeReady
	}

	if q.Type == QtUnknown {
		logutil.Warn("unknown query classification", zap.String("sql", sql))
		WriteOK(c, 0, 0, 0, "")
		return OutcomeReady
	}

	if c.User != nil && !c.User.AllowQuery(time.Now()) {
		WriteERR(c, merr.NewQueryExceedQuota(c.User.Username, c.User.QueryQuota))
		return OutcomeReady
	}

	return dispatchToPlanner(c, q, planner)
}

// dispatchBuiltin routes one of the matches from classify.go's MatchBuiltin
// to its Built-in Responder, per spec.md §4.7. A non-nil return is either a
// missing-database error (ER_NO_DB_ERROR, a per-query semantic error that
// preserves the connection) or a genuine catalog lookup failure (moves the
// connection to Error); the caller in dispatchQuery tells the two apart by
// error code.
func dispatchBuiltin(c *Connection, schema Schema, matched, sql string) *merr.SqlError {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	switch matched {
	case "SELECT @@VERSION_COMMENT":
		handleSelectVersionComment(c)
	case "SELECT @@SESSION.AUTO_INCREMENT_INCREMENT":
		handleSelectAutoIncrementIncrement(c)
	case "SELECT @@SESSION.AUTOCOMMIT":
		handleSelectAutocommit(c)
	case "SELECT @@SESSION.TX_ISOLATION":
		handleSelectTxIsolation(c)
	case "SELECT 1":
		handleSelectOne(c)
	case "SELECT DATABASE()":
		handleSelectDatabase(c)
	case "SHOW DATABASES":
		return handleShowDatabases(c, schema)
	case "SHOW TABLES":
		return handleShowTables(c, schema)
	case "SHOW COLLATION":
		handleShowCollation(c)
	case "SHOW WARNINGS":
		handleShowWarnings(c)
	case "SHOW CREATE TABLE":
		return handleShowCreateTable(c, schema, extractTrailingIdent(upper, "SHOW CREATE TABLE"))
	case "SHOW FULL COLUMNS":
		return handleShowFullColumns(c, schema, extractFromClauseTable(upper, "SHOW FULL COLUMNS"))
	case "SHOW TABLE STATUS":
		handleShowTableStatus(c, extractFromClauseTable(upper, "SHOW TABLE STATUS"))
	case "SHOW VARIABLES":
		handleShowVariables(c)
	case "SHOW REGION_":
		return handleShowRegion(c, schema, sql)
	case "DESC":
		return handleDesc(c, schema, extractTrailingIdent(upper, "DESC"))
	case "USE":
		// the database name keeps its original case, as COM_INIT_DB does.
		return handleUse(c, extractTrailingIdent(strings.TrimSpace(sql)[len("USE"):], ""))
	}
	return nil
}

func extractTrailingIdent(upper, prefix string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(upper, prefix))
	return strings.Trim(rest, "`;")
}

// extractFromClauseTable pulls the table name out of "SHOW FULL COLUMNS FROM
// t" / "SHOW TABLE STATUS LIKE 't'" style statements.
func extractFromClauseTable(upper, prefix string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(upper, prefix))
	rest = strings.TrimPrefix(rest, "FROM")
	rest = strings.TrimPrefix(rest, "LIKE")
	rest = strings.TrimSpace(rest)
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "`'\";")
}

// dispatchToPlanner hands the query to the Planner collaborator per spec.md
// §6's synchronous contract, applying any resulting error/plan-tree state
// onto the connection itself (not inside the collaborator), per the Design
// Note on planner-callback re-entrancy.
func dispatchToPlanner(c *Connection, q *QueryContext, planner Planner) DispatchOutcome {
	if planner == nil {
		WriteERR(c, merr.NewGenPlanFailed(q.SQL, merr.NewErrorCommon("no planner configured")))
		return OutcomeReady
	}

	q.Runtime.TxnID, q.Runtime.SeqID = c.TxnID, c.SeqID
	defer func() { c.TxnID, c.SeqID = q.Runtime.TxnID, q.Runtime.SeqID }()

	if err := planner.AnalyzeLogical(q); err != nil {
		return planFailed(c, q, err)
	}
	if err := planner.CreatePlanTree(q); err != nil {
		return planFailed(c, q, err)
	}
	if err := planner.AnalyzePhysical(q); err != nil {
		return planFailed(c, q, err)
	}
	q.Stat.MarkPlanned()

	result, err := planner.Execute(q)
	q.Stat.MarkExecuted()
	if err != nil {
		return execFailed(c, q, err)
	}

	WriteResultSet(c, result.Fields, result.Rows)
	return OutcomeReady
}

// alreadyAnnotated reports whether cause is already a *merr.SqlError the
// collaborator attached itself, per spec.md §7: "any error annotated by the
// planner/executor wins over the generic fallback; only when the planner
// left error_code == ER_ERROR_FIRST does the FSM synthesize a default."
func alreadyAnnotated(cause error) (*merr.SqlError, bool) {
	se, ok := cause.(*merr.SqlError)
	return se, ok
}

func planFailed(c *Connection, q *QueryContext, cause error) DispatchOutcome {
	se, ok := alreadyAnnotated(cause)
	if !ok {
		se = merr.NewGenPlanFailed(q.SQL, cause)
	}
	q.SetError(se)
	WriteERR(c, se)
	return OutcomeReady
}

func execFailed(c *Connection, q *QueryContext, cause error) DispatchOutcome {
	se, ok := alreadyAnnotated(cause)
	if !ok {
		se = merr.NewExecPlanFailed(cause)
	}
	q.SetError(se)
	WriteERR(c, se)
	return OutcomeReady
}
