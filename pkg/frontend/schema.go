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

// FieldInfo and IndexInfo describe one catalog column/index, the minimal
// shape SHOW CREATE TABLE / SHOW FULL COLUMNS / DESC need. TypeName and
// IndexKind use the catalog's own vocabulary; builtin.go maps them to MySQL
// DDL syntax, per SPEC_FULL.md §12.
type FieldInfo struct {
	Name     string
	TypeName string
	Size     int
	Nullable bool
	Comment  string
}

type IndexInfo struct {
	Name     string
	Kind     string // e.g. "primary", "unique", "index"
	Columns  []string
}

type TableInfo struct {
	Name      string
	Fields    []FieldInfo
	Indexes   []IndexInfo
	Charset   byte // 28 or 33
	AvgRowLen int64
	Comment   string // free-form resource tag, embedded verbatim into the COMMENT clause
}

type RegionInfo struct {
	ID      int64
	StoreID int64
	Table   string
	Start   string
	End     string
}

// Schema is the catalog collaborator consumed (not implemented) by this
// core, per spec.md §1 and §6.
type Schema interface {
	GetUserInfo(username string) (*UserInfo, bool)
	GetDBList(namespace string) ([]string, error)
	GetTableList(namespace, db string) ([]string, error)
	GetTableID(namespace, db, table string) (int64, bool)
	GetTableInfo(id int64) (*TableInfo, error)
	GetIndexInfo(id int64) ([]IndexInfo, error)
	GetRegionInfo(id int64) (*RegionInfo, bool)
}

// PlanResult is what the Planner/Executor collaborator hands back to the
// FSM; per the Design Note on planner-callback re-entrancy, the FSM applies
// any state mutation itself rather than letting the collaborator mutate the
// Connection directly.
type PlanResult struct {
	Fields []Field
	Rows   []Row
	Err    error
}

// Planner is the logical/physical planner + executor collaborator consumed
// by the Command Dispatcher for any statement that is not a built-in, per
// spec.md §4.5 and §6.
type Planner interface {
	AnalyzeLogical(ctx *QueryContext) error
	CreatePlanTree(ctx *QueryContext) error
	AnalyzePhysical(ctx *QueryContext) error
	Execute(ctx *QueryContext) (*PlanResult, error)
}

// Reactor is the readiness-event source this core's FSM is driven by; see
// internal/reactor for the concrete epoll-backed implementation.
type Reactor interface {
	Arm(fd int, dir ArmDirection) error
	DeleteFDMapping(fd int)
	Remove(fd int) error
}

// SocketPool reclaims a Connection's resources on teardown, per spec.md §6.
type SocketPool interface {
	Free(c *Connection)
}
