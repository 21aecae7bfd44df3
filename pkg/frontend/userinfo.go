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
	"time"

	"go.uber.org/atomic"
)

// UserInfo is shared by every connection authenticated as that user; its
// lifetime is managed by the Schema collaborator and outlives any one
// connection.
type UserInfo struct {
	Username          string
	ScramblePassword  [20]byte
	Namespace         string
	MaxConnection     int64
	QueryQuota        int64
	connectionCount   atomic.Int64
	windowStart       atomic.Int64 // unix nanos of the current 1s quota window
	windowQueryCount  atomic.Int64
}

func NewUserInfo(username, namespace string, scramble [20]byte, maxConn, quota int64) *UserInfo {
	return &UserInfo{
		Username:         username,
		ScramblePassword: scramble,
		Namespace:        namespace,
		MaxConnection:    maxConn,
		QueryQuota:       quota,
	}
}

func (u *UserInfo) ConnectionCount() int64 {
	return u.connectionCount.Load()
}

// TryIncrConnection atomically increments the connection count if it would
// not exceed MaxConnection, returning false (and leaving the count
// unchanged) otherwise. This is the enforcement point spec.md §4.3 and §8
// scenario 2 describe.
func (u *UserInfo) TryIncrConnection() bool {
	for {
		cur := u.connectionCount.Load()
		if cur >= u.MaxConnection {
			return false
		}
		if u.connectionCount.CAS(cur, cur+1) {
			return true
		}
	}
}

// DecrConnection must be called exactly once per connection whose
// TryIncrConnection succeeded; see Connection.IsCounted.
func (u *UserInfo) DecrConnection() {
	u.connectionCount.Dec()
}

// AllowQuery enforces the rolling 1-second QPS quota window described in
// spec.md §3 (UserInfo) and §4.5 (quota check before planning).
func (u *UserInfo) AllowQuery(now time.Time) bool {
	nowNanos := now.UnixNano()
	const window = int64(time.Second)

	start := u.windowStart.Load()
	if start == 0 || nowNanos-start >= window {
		// Reset the window. A benign race between two goroutines resetting
		// at once just means the window restarts slightly early; quota
		// enforcement is advisory-strict, not exact.
		u.windowStart.Store(nowNanos)
		u.windowQueryCount.Store(0)
	}

	count := u.windowQueryCount.Inc()
	return count <= u.QueryQuota
}
