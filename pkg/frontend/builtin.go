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
	"fmt"
	"strconv"
	"strings"

	"github.com/baikaldb/sqlgate/pkg/merr"
)

// Built-in Responders fabricate a fixed-schema result set without consulting
// the Planner collaborator, per spec.md §4.7. Each Handle* function appends
// directly to c.sendBuf via WriteResultSet/WriteOK/WriteERR.

func handleSelectOne(c *Connection) {
	WriteResultSet(c, []Field{{Name: "1", Type: MYSQL_TYPE_LONG}}, []Row{{"1"}})
}

func handleSelectDatabase(c *Connection) {
	var db interface{}
	if c.CurrentDB != "" {
		db = c.CurrentDB
	}
	WriteResultSet(c, []Field{{Name: "DATABASE()", Type: MYSQL_TYPE_VAR_STRING}}, []Row{{db}})
}

func handleSelectVersionComment(c *Connection) {
	WriteResultSet(c, []Field{{Name: "@@version_comment", Type: MYSQL_TYPE_VAR_STRING}},
		[]Row{{"sqlgate"}})
}

func handleSelectAutoIncrementIncrement(c *Connection) {
	WriteResultSet(c, []Field{{Name: "@@session.auto_increment_increment", Type: MYSQL_TYPE_LONGLONG}},
		[]Row{{"1"}})
}

func handleSelectAutocommit(c *Connection) {
	WriteResultSet(c, []Field{{Name: "@@session.autocommit", Type: MYSQL_TYPE_LONGLONG}},
		[]Row{{"1"}})
}

func handleSelectTxIsolation(c *Connection) {
	WriteResultSet(c, []Field{{Name: "@@session.tx_isolation", Type: MYSQL_TYPE_VAR_STRING}},
		[]Row{{"REPEATABLE-READ"}})
}

func handleShowDatabases(c *Connection, schema Schema) *merr.SqlError {
	dbs, err := schema.GetDBList(c.User.Namespace)
	if err != nil {
		return merr.AsSqlError(err)
	}
	rows := make([]Row, 0, len(dbs))
	for _, d := range dbs {
		rows = append(rows, Row{d})
	}
	WriteResultSet(c, []Field{{Name: "Database", Type: MYSQL_TYPE_VAR_STRING}}, rows)
	return nil
}

func handleShowTables(c *Connection, schema Schema) *merr.SqlError {
	if c.CurrentDB == "" {
		return merr.NewNoDbError()
	}
	tables, err := schema.GetTableList(c.User.Namespace, c.CurrentDB)
	if err != nil {
		return merr.AsSqlError(err)
	}
	rows := make([]Row, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, Row{t})
	}
	WriteResultSet(c, []Field{{Name: fmt.Sprintf("Tables_in_%s", c.CurrentDB), Type: MYSQL_TYPE_VAR_STRING}}, rows)
	return nil
}

// showCollationFields/Rows are the two static rows spec.md §6 and
// SPEC_FULL.md §12 pin bit-exact, copied from BaikalDB's
// _handle_client_query_show_collation.
var showCollationFields = []Field{
	{Name: "Collation", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Charset", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Id", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Default", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Compiled", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Sortlen", Type: MYSQL_TYPE_LONGLONG},
}

var showCollationRows = []Row{
	{"gbk_chinese_ci", "gbk", "28", "Yes", "Yes", "1"},
	{"gbk_bin", "gbk", "87", "   ", "Yes", "1"},
}

func handleShowCollation(c *Connection) {
	WriteResultSet(c, showCollationFields, showCollationRows)
}

func handleShowWarnings(c *Connection) {
	WriteResultSet(c, []Field{
		{Name: "Level", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Code", Type: MYSQL_TYPE_LONG},
		{Name: "Message", Type: MYSQL_TYPE_VAR_STRING},
	}, nil)
}

// showVariablesRows is the 18-row static table from SPEC_FULL.md §12,
// reproduced from BaikalDB's _handle_client_query_show_variables.
var showVariablesRows = []Row{
	{"character_set_client", "gbk"},
	{"character_set_connection", "gbk"},
	{"character_set_results", "gbk"},
	{"character_set_server", "gbk"},
	{"init_connect", " "},
	{"interactive_timeout", "28800"},
	{"language", "/home/mysql/mysql/share/mysql/english/"},
	{"lower_case_table_names", "0"},
	{"max_allowed_packet", "268435456"},
	{"net_buffer_length", "16384"},
	{"net_write_timeout", "60"},
	{"query_cache_size", "335544320"},
	{"query_cache_type", "OFF"},
	{"sql_mode", " "},
	{"system_time_zone", "CST"},
	{"time_zone", "SYSTEM"},
	{"tx_isolation", "REPEATABLE-READ"},
	{"wait_timeout", "28800"},
}

func handleShowVariables(c *Connection) {
	WriteResultSet(c, []Field{
		{Name: "Variable_name", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Value", Type: MYSQL_TYPE_VAR_STRING},
	}, showVariablesRows)
}

var showTableStatusFields = []Field{
	{Name: "Name", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Engine", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Version", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Row_format", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Rows", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Avg_row_length", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Data_length", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Max_data_length", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Index_length", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Data_free", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Auto_increment", Type: MYSQL_TYPE_LONGLONG},
	{Name: "Create_time", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Update_time", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Check_time", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Collation", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Checksum", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Create_options", Type: MYSQL_TYPE_VAR_STRING},
	{Name: "Comment", Type: MYSQL_TYPE_VAR_STRING},
}

func handleShowTableStatus(c *Connection, table string) {
	row := Row{
		table, "Innodb", "10", "Compact", "0", "0", "0", "0", "0", "0",
		nil, "2018-08-09 15:01:40", nil, nil, "utf8_general_ci", nil, "", "",
	}
	WriteResultSet(c, showTableStatusFields, []Row{row})
}

// typeNameMap/indexKindMap translate the catalog's own vocabulary into
// MySQL DDL syntax for SHOW CREATE TABLE, grounded on
// _show_create_table's type_map/index_map.
var typeNameMap = map[string]string{
	"int8":    "tinyint",
	"int16":   "smallint",
	"int32":   "int",
	"int64":   "bigint",
	"uint64":  "bigint unsigned",
	"float":   "float",
	"double":  "double",
	"string":  "varchar(255)",
	"date":    "date",
	"datetime": "datetime",
}

var indexKindMap = map[string]string{
	"primary": "PRIMARY KEY",
	"unique":  "UNIQUE KEY",
	"index":   "KEY",
}

func ddlTypeName(catalogType string) string {
	if n, ok := typeNameMap[catalogType]; ok {
		return n
	}
	return "varchar(255)"
}

// SynthesizeCreateTableDDL builds the CREATE TABLE text spec.md §4.7 and
// SPEC_FULL.md §12 describe, iterating fields and indices in catalog order.
func SynthesizeCreateTableDDL(db string, info *TableInfo, namespace string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE `%s` (\n", info.Name)
	for i, f := range info.Fields {
		nullable := "NOT NULL"
		if f.Nullable {
			nullable = "NULL"
		}
		fmt.Fprintf(&b, "  `%s` %s %s", f.Name, ddlTypeName(f.TypeName), nullable)
		if i != len(info.Fields)-1 || len(info.Indexes) > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	for i, idx := range info.Indexes {
		kind := indexKindMap[idx.Kind]
		if kind == "" {
			kind = "KEY"
		}
		fmt.Fprintf(&b, "  %s `%s` (%s)", kind, idx.Name, strings.Join(backtickEach(idx.Columns), ","))
		if i != len(info.Indexes)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")

	charset := charsetName(info.Charset)
	avgRowLen := info.AvgRowLen
	comment := fmt.Sprintf(`{"resource_tag":"%s", "namespace":"%s"}`, info.Comment, namespace)
	fmt.Fprintf(&b, " ENGINE=Rocksdb DEFAULT CHARSET=%s AVG_ROW_LENGTH=%d COMMENT='%s'", charset, avgRowLen, comment)
	return b.String()
}

func backtickEach(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = "`" + c + "`"
	}
	return out
}

func handleShowCreateTable(c *Connection, schema Schema, table string) *merr.SqlError {
	if c.CurrentDB == "" {
		return merr.NewNoDbError()
	}
	id, ok := schema.GetTableID(c.User.Namespace, c.CurrentDB, table)
	if !ok {
		return merr.NewNoSuchTable(c.CurrentDB, table)
	}
	info, err := schema.GetTableInfo(id)
	if err != nil {
		return merr.AsSqlError(err)
	}
	ddl := SynthesizeCreateTableDDL(c.CurrentDB, info, c.User.Namespace)
	WriteResultSet(c, []Field{
		{Name: "Table", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Create Table", Type: MYSQL_TYPE_VAR_STRING},
	}, []Row{{table, ddl}})
	return nil
}

func handleShowFullColumns(c *Connection, schema Schema, table string) *merr.SqlError {
	if c.CurrentDB == "" {
		return merr.NewNoDbError()
	}
	id, ok := schema.GetTableID(c.User.Namespace, c.CurrentDB, table)
	if !ok {
		return merr.NewNoSuchTable(c.CurrentDB, table)
	}
	info, err := schema.GetTableInfo(id)
	if err != nil {
		return merr.AsSqlError(err)
	}
	rows := make([]Row, 0, len(info.Fields))
	for _, f := range info.Fields {
		null := "NO"
		if f.Nullable {
			null = "YES"
		}
		rows = append(rows, Row{f.Name, ddlTypeName(f.TypeName), "utf8_general_ci", null, "", nil, "", "select,insert,update,references", f.Comment})
	}
	WriteResultSet(c, []Field{
		{Name: "Field", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Type", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Collation", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Null", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Key", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Default", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Extra", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Privileges", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Comment", Type: MYSQL_TYPE_VAR_STRING},
	}, rows)
	return nil
}

func handleDesc(c *Connection, schema Schema, table string) *merr.SqlError {
	if c.CurrentDB == "" {
		return merr.NewNoDbError()
	}
	id, ok := schema.GetTableID(c.User.Namespace, c.CurrentDB, table)
	if !ok {
		return merr.NewNoSuchTable(c.CurrentDB, table)
	}
	info, err := schema.GetTableInfo(id)
	if err != nil {
		return merr.AsSqlError(err)
	}
	rows := make([]Row, 0, len(info.Fields))
	for _, f := range info.Fields {
		null := "NO"
		if f.Nullable {
			null = "YES"
		}
		rows = append(rows, Row{f.Name, ddlTypeName(f.TypeName), null, "", nil, ""})
	}
	WriteResultSet(c, []Field{
		{Name: "Field", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Type", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Null", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Key", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Default", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "Extra", Type: MYSQL_TYPE_VAR_STRING},
	}, rows)
	return nil
}

// handleUse matches COM_INIT_DB's behavior: unconditionally sets CurrentDB
// and replies OK, with no catalog validation. The original's db-list
// validation is commented out in _handle_client_query_use_database and
// spec.md §4.7's catalog-consulting responder list excludes USE, so this
// does not invent stricter semantics than either.
func handleUse(c *Connection, db string) *merr.SqlError {
	c.CurrentDB = db
	WriteOK(c, 0, 0, 0, "")
	return nil
}

// handleShowRegion implements _handle_client_query_show_region, resolving
// the Open Question recorded in DESIGN.md: a malformed "SHOW REGION_<id>"
// (no underscore, or a non-numeric suffix) returns ER_ERROR_COMMON instead
// of crashing.
func handleShowRegion(c *Connection, schema Schema, stmt string) *merr.SqlError {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	idx := strings.Index(upper, "_")
	if idx < 0 || idx+1 >= len(upper) {
		return merr.NewErrorCommon("malformed SHOW REGION statement: %s", stmt)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(upper[idx+1:]), 10, 64)
	if err != nil {
		return merr.NewErrorCommon("malformed region id in: %s", stmt)
	}
	region, ok := schema.GetRegionInfo(id)
	if !ok {
		return merr.NewErrorCommon("region %d not found", id)
	}
	WriteResultSet(c, []Field{
		{Name: "region_id", Type: MYSQL_TYPE_LONGLONG},
		{Name: "store_id", Type: MYSQL_TYPE_LONGLONG},
		{Name: "table", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "start_key", Type: MYSQL_TYPE_VAR_STRING},
		{Name: "end_key", Type: MYSQL_TYPE_VAR_STRING},
	}, []Row{{strconv.FormatInt(region.ID, 10), strconv.FormatInt(region.StoreID, 10), region.Table, region.Start, region.End}})
	return nil
}
