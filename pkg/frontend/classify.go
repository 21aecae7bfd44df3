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

import "strings"

// ClassifySQL is the pure byte->enum classifier spec.md §4.6 describes: a
// prefix-match fallback over the comment-stripped SQL text, grounded on
// BaikalDB's _get_query_type.
func ClassifySQL(sql string) QueryType {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	switch {
	case strings.HasPrefix(upper, "SELECT"):
		return QtSelect
	case strings.HasPrefix(upper, "SHOW"):
		return QtShow
	case strings.HasPrefix(upper, "EXPLAIN"):
		return QtExplain
	case strings.HasPrefix(upper, "KILL"):
		return QtKill
	case strings.HasPrefix(upper, "USE"):
		return QtUseInQuery
	case strings.HasPrefix(upper, "DESC"):
		return QtDesc
	case strings.HasPrefix(upper, "CALL"):
		return QtCall
	case strings.HasPrefix(upper, "SET"):
		return classifySet(upper)
	default:
		return QtUnknown
	}
}

// classifySet sub-classifies a SET statement by token, per spec.md §4.5.
func classifySet(upperSQL string) QueryType {
	rest := strings.TrimSpace(strings.TrimPrefix(upperSQL, "SET"))
	switch {
	case strings.HasPrefix(rest, "NAMES"):
		return QtSetNames
	case strings.HasPrefix(rest, "CHARACTER SET"):
		return QtSetCharacterSet
	case strings.HasPrefix(rest, "CHARSET"):
		return QtSetCharset
	case strings.HasPrefix(rest, "CHARACTER_SET_CLIENT"):
		return QtSetCharacterSetClient
	case strings.HasPrefix(rest, "CHARACTER_SET_CONNECTION"):
		return QtSetCharacterSetConnection
	case strings.HasPrefix(rest, "CHARACTER_SET_RESULTS"):
		return QtSetCharacterSetResults
	default:
		return QtSet
	}
}

// IsSetVariant reports whether t is one of the SET sub-classifications that
// spec.md §4.5 says "returns an OK packet and does not alter state."
func IsSetVariant(t QueryType) bool {
	switch t {
	case QtSetNames, QtSetCharset, QtSetCharacterSetClient, QtSetCharacterSetConnection,
		QtSetCharacterSetResults, QtSetCharacterSet, QtSet:
		return true
	default:
		return false
	}
}

// builtinLiteralStatements are matched verbatim (case-insensitively, after
// whitespace/comment stripping), per spec.md §4.5.
var builtinLiteralStatements = map[string]bool{
	"SELECT @@VERSION_COMMENT":                     true,
	"SELECT @@SESSION.AUTO_INCREMENT_INCREMENT":    true,
	"SELECT @@SESSION.AUTOCOMMIT":                  true,
	"SELECT @@SESSION.TX_ISOLATION":                true,
	"SELECT 1":                                     true,
	"SELECT DATABASE()":                            true,
	"SHOW DATABASES":                                true,
	"SHOW TABLES":                                   true,
	"SHOW COLLATION":                                true,
	"SHOW WARNINGS":                                 true,
}

// builtinPrefixes are matched by prefix, per spec.md §4.5.
var builtinPrefixes = []string{
	"SHOW CREATE TABLE",
	"SHOW FULL COLUMNS",
	"SHOW TABLE STATUS",
	"SHOW VARIABLES",
	"SHOW REGION_",
	"DESC",
	"USE",
}

// MatchBuiltin reports whether sql (already comment-stripped) should be
// routed to a Built-in Responder, and which one, per spec.md §4.5 and §4.7.
func MatchBuiltin(sql string) (name string, ok bool) {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if builtinLiteralStatements[upper] {
		return upper, true
	}
	for _, p := range builtinPrefixes {
		if strings.HasPrefix(upper, p) {
			return p, true
		}
	}
	return "", false
}
