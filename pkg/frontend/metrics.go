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
	"sync"

	"go.uber.org/atomic"
)

// databaseRequestCounters is the per-database request counter registry
// described in spec.md §5 and §9: a process-wide map from database name to
// counter, registered lazily with first-insert-wins under a single mutex.
// Every Incr and Get takes that mutex to find the counter; only the add
// itself is an atomic operation.
type databaseRequestCounters struct {
	mu       sync.Mutex
	counters map[string]*atomic.Int64
}

func newDatabaseRequestCounters() *databaseRequestCounters {
	return &databaseRequestCounters{counters: make(map[string]*atomic.Int64)}
}

// Incr bumps the counter for db, registering it on first use.
func (d *databaseRequestCounters) Incr(db string) {
	if db == "" {
		return
	}
	d.mu.Lock()
	c, ok := d.counters[db]
	if !ok {
		c = atomic.NewInt64(0)
		d.counters[db] = c
	}
	d.mu.Unlock()
	c.Inc()
}

func (d *databaseRequestCounters) Get(db string) int64 {
	d.mu.Lock()
	c, ok := d.counters[db]
	d.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Load()
}

// globalDatabaseRequestCounters is the single process-wide instance; the
// FSM's dispatch path increments it per COM_QUERY, matching the original
// database_request_count metric's granularity.
var globalDatabaseRequestCounters = newDatabaseRequestCounters()
