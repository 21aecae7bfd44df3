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

import "testing"

func TestClassifySQL(t *testing.T) {
	cases := []struct {
		sql  string
		want QueryType
	}{
		{"select * from t", QtSelect},
		{"  SHOW tables", QtShow},
		{"explain select 1", QtExplain},
		{"KILL 5", QtKill},
		{"use foo", QtUseInQuery},
		{"desc t", QtDesc},
		{"call p()", QtCall},
		{"SET NAMES utf8", QtSetNames},
		{"set character set gbk", QtSetCharacterSet},
		{"insert into t values (1)", QtUnknown},
	}
	for _, tc := range cases {
		if got := ClassifySQL(tc.sql); got != tc.want {
			t.Errorf("ClassifySQL(%q) = %v, want %v", tc.sql, got, tc.want)
		}
	}
}

func TestIsSetVariant(t *testing.T) {
	for _, qt := range []QueryType{QtSetNames, QtSetCharset, QtSet, QtSetCharacterSet} {
		if !IsSetVariant(qt) {
			t.Errorf("IsSetVariant(%v) = false, want true", qt)
		}
	}
	if IsSetVariant(QtSelect) {
		t.Errorf("IsSetVariant(QtSelect) = true, want false")
	}
}

func TestMatchBuiltinLiteralAndPrefix(t *testing.T) {
	if name, ok := MatchBuiltin("select 1"); !ok || name != "SELECT 1" {
		t.Errorf("MatchBuiltin(select 1) = %q, %v", name, ok)
	}
	if name, ok := MatchBuiltin("show create table t"); !ok || name != "SHOW CREATE TABLE" {
		t.Errorf("MatchBuiltin(show create table t) = %q, %v", name, ok)
	}
	if name, ok := MatchBuiltin("show region_42"); !ok || name != "SHOW REGION_" {
		t.Errorf("MatchBuiltin(show region_42) = %q, %v", name, ok)
	}
	if _, ok := MatchBuiltin("insert into t values (1)"); ok {
		t.Errorf("MatchBuiltin unexpectedly matched an INSERT statement")
	}
}

func TestExtractCommentsHarvestsJSONHint(t *testing.T) {
	sql, ctx := ExtractComments(`/*{"region_id":7,"enable_2pc":true}*/ select * from t;`)
	if sql != "select * from t" {
		t.Errorf("sql = %q, want %q", sql, "select * from t")
	}
	if !ctx.HasRegionID || ctx.RegionID != 7 {
		t.Errorf("region id = %d, hasRegionID = %v, want 7, true", ctx.RegionID, ctx.HasRegionID)
	}
	if !ctx.Enable2PC {
		t.Errorf("enable2PC = false, want true")
	}
}

func TestExtractCommentsIgnoresNonJSONComment(t *testing.T) {
	sql, ctx := ExtractComments("/* just a note */ select 1")
	if sql != "select 1" {
		t.Errorf("sql = %q, want %q", sql, "select 1")
	}
	if ctx.HasRegionID {
		t.Errorf("expected no region hint from a plain comment")
	}
	if len(ctx.Comments) != 1 {
		t.Errorf("expected 1 captured comment, got %d", len(ctx.Comments))
	}
}
