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
	"sync"
)

// MemSchema is a minimal in-memory Schema collaborator, standing in for the
// real Schema/Catalog service spec.md §1 places out of scope. It exists so
// this module is runnable end to end (e.g. in tests and a standalone
// binary) without a real catalog service; production deployments supply
// their own Schema implementation to frontend.Fsm.
type MemSchema struct {
	mu      sync.RWMutex
	users   map[string]*UserInfo
	dbs     map[string][]string // namespace -> db list
	tables  map[string][]string // namespace+"."+db -> table list
	tableID map[string]int64    // namespace+"."+db+"."+table -> id
	info    map[int64]*TableInfo
	regions map[int64]*RegionInfo
	nextID  int64
}

func NewMemSchema() *MemSchema {
	return &MemSchema{
		users:   make(map[string]*UserInfo),
		dbs:     make(map[string][]string),
		tables:  make(map[string][]string),
		tableID: make(map[string]int64),
		info:    make(map[int64]*TableInfo),
		regions: make(map[int64]*RegionInfo),
	}
}

func (m *MemSchema) AddUser(u *UserInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
}

func (m *MemSchema) AddDatabase(namespace, db string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dbs[namespace] = append(m.dbs[namespace], db)
}

func (m *MemSchema) AddTable(namespace, db string, info *TableInfo) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	key := namespace + "." + db
	m.tables[key] = append(m.tables[key], info.Name)
	m.tableID[key+"."+info.Name] = id
	m.info[id] = info
	return id
}

func (m *MemSchema) AddRegion(r *RegionInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions[r.ID] = r
}

func (m *MemSchema) GetUserInfo(username string) (*UserInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	return u, ok
}

func (m *MemSchema) GetDBList(namespace string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.dbs[namespace]...), nil
}

func (m *MemSchema) GetTableList(namespace, db string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.tables[namespace+"."+db]...), nil
}

func (m *MemSchema) GetTableID(namespace, db, table string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.tableID[namespace+"."+db+"."+table]
	return id, ok
}

func (m *MemSchema) GetTableInfo(id int64) (*TableInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.info[id]
	if !ok {
		return nil, fmt.Errorf("table id %d not found", id)
	}
	return info, nil
}

func (m *MemSchema) GetIndexInfo(id int64) ([]IndexInfo, error) {
	info, err := m.GetTableInfo(id)
	if err != nil {
		return nil, err
	}
	return info.Indexes, nil
}

func (m *MemSchema) GetRegionInfo(id int64) (*RegionInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regions[id]
	return r, ok
}

var _ Schema = (*MemSchema)(nil)
