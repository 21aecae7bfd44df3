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
	"errors"
	"testing"

	"github.com/baikaldb/sqlgate/pkg/merr"
)

func TestDispatchBuiltinCatalogFailureIsFatal(t *testing.T) {
	c := newTestConnection()
	c.User = NewUserInfo("u", "ns", [20]byte{}, 10, 100)
	c.CurrentDB = "d1"
	schema := NewMemSchema()
	schema.AddDatabase("ns", "d1")

	outcome := dispatchQuery(c, "SHOW CREATE TABLE nosuchtable", schema, nil)
	if outcome != OutcomeFatal {
		t.Fatalf("outcome = %v, want OutcomeFatal", outcome)
	}
	if len(c.sendBuf) < 5 || c.sendBuf[4] != 0xff {
		t.Fatalf("expected an ERR packet queued before teardown")
	}
}

func TestDispatchBuiltinMissingDatabaseIsErrorReuse(t *testing.T) {
	c := newTestConnection()
	c.User = NewUserInfo("u", "ns", [20]byte{}, 10, 100)
	// CurrentDB left empty: SHOW TABLES needs a selected database.
	schema := NewMemSchema()

	outcome := dispatchQuery(c, "SHOW TABLES", schema, nil)
	if outcome != OutcomeErrorReuse {
		t.Fatalf("outcome = %v, want OutcomeErrorReuse", outcome)
	}
	if len(c.sendBuf) < 5 || c.sendBuf[4] != 0xff {
		t.Fatalf("expected an ERR packet queued")
	}
	code := uint16(c.sendBuf[5]) | uint16(c.sendBuf[6])<<8
	if code != merr.ErNoDbError {
		t.Fatalf("error code = %d, want %d", code, merr.ErNoDbError)
	}
}

func TestHandleUseSelectsAnyDatabaseUnconditionally(t *testing.T) {
	c := newTestConnection()
	c.User = NewUserInfo("u", "ns", [20]byte{}, 10, 100)
	schema := NewMemSchema()

	outcome := dispatchQuery(c, "USE whatever_db", schema, nil)
	if outcome != OutcomeReady {
		t.Fatalf("outcome = %v, want OutcomeReady", outcome)
	}
	if c.CurrentDB != "WHATEVER_DB" && c.CurrentDB != "whatever_db" {
		t.Fatalf("CurrentDB = %q, want the USE target set unconditionally", c.CurrentDB)
	}
}

type fakePlanner struct {
	analyzeLogicalErr error
	executeErr        error
}

func (f *fakePlanner) AnalyzeLogical(q *QueryContext) error  { return f.analyzeLogicalErr }
func (f *fakePlanner) CreatePlanTree(q *QueryContext) error  { return nil }
func (f *fakePlanner) AnalyzePhysical(q *QueryContext) error { return nil }
func (f *fakePlanner) Execute(q *QueryContext) (*PlanResult, error) {
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	return &PlanResult{}, nil
}

func TestPlanFailedPreservesAnnotatedError(t *testing.T) {
	c := newTestConnection()
	q := c.FreshQuery(COM_QUERY)
	q.SQL = "select * from missing"

	cause := merr.NewNoSuchTable("d1", "missing")
	outcome := planFailed(c, q, cause)
	if outcome != OutcomeReady {
		t.Fatalf("outcome = %v, want OutcomeReady", outcome)
	}
	if q.Runtime.ErrorCode != merr.ErNoSuchTable {
		t.Fatalf("error code = %d, want %d (annotated error must win over the generic fallback)",
			q.Runtime.ErrorCode, merr.ErNoSuchTable)
	}
}

func TestPlanFailedSynthesizesGenericOnPlainError(t *testing.T) {
	c := newTestConnection()
	q := c.FreshQuery(COM_QUERY)
	q.SQL = "select 1 from t"

	outcome := planFailed(c, q, errors.New("boom"))
	if outcome != OutcomeReady {
		t.Fatalf("outcome = %v, want OutcomeReady", outcome)
	}
	if q.Runtime.ErrorCode != merr.ErGenPlanFailed {
		t.Fatalf("error code = %d, want %d", q.Runtime.ErrorCode, merr.ErGenPlanFailed)
	}
}

func TestExecFailedPreservesAnnotatedError(t *testing.T) {
	c := newTestConnection()
	q := c.FreshQuery(COM_QUERY)
	q.SQL = "select * from t"

	cause := merr.NewAccessDenied("u", "127.0.0.1")
	outcome := execFailed(c, q, cause)
	if outcome != OutcomeReady {
		t.Fatalf("outcome = %v, want OutcomeReady", outcome)
	}
	if q.Runtime.ErrorCode != merr.ErAccessDenied {
		t.Fatalf("error code = %d, want %d", q.Runtime.ErrorCode, merr.ErAccessDenied)
	}
}

func TestExecFailedSynthesizesGenericOnPlainError(t *testing.T) {
	c := newTestConnection()
	q := c.FreshQuery(COM_QUERY)
	q.SQL = "select * from t"

	outcome := execFailed(c, q, errors.New("disk full"))
	if outcome != OutcomeReady {
		t.Fatalf("outcome = %v, want OutcomeReady", outcome)
	}
	if q.Runtime.ErrorCode != merr.ErExecPlanFailed {
		t.Fatalf("error code = %d, want %d", q.Runtime.ErrorCode, merr.ErExecPlanFailed)
	}
}

func TestDispatchToPlannerPropagatesExecutorError(t *testing.T) {
	c := newTestConnection()
	c.User = NewUserInfo("u", "ns", [20]byte{}, 10, 100)
	q := c.FreshQuery(COM_QUERY)
	q.SQL = "select * from missing"
	planner := &fakePlanner{executeErr: merr.NewNoSuchTable("d1", "missing")}

	outcome := dispatchToPlanner(c, q, planner)
	if outcome != OutcomeReady {
		t.Fatalf("outcome = %v, want OutcomeReady", outcome)
	}
	if q.Runtime.ErrorCode != merr.ErNoSuchTable {
		t.Fatalf("error code = %d, want %d", q.Runtime.ErrorCode, merr.ErNoSuchTable)
	}
}
