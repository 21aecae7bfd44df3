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
	"testing"
	"time"
)

func TestTryIncrConnectionRespectsMax(t *testing.T) {
	u := NewUserInfo("u", "ns", [20]byte{}, 2, 100)
	if !u.TryIncrConnection() {
		t.Fatalf("first increment should succeed")
	}
	if !u.TryIncrConnection() {
		t.Fatalf("second increment should succeed")
	}
	if u.TryIncrConnection() {
		t.Fatalf("third increment should fail, max is 2")
	}
	if u.ConnectionCount() != 2 {
		t.Fatalf("connection count = %d, want 2", u.ConnectionCount())
	}
	u.DecrConnection()
	if u.ConnectionCount() != 1 {
		t.Fatalf("connection count after decr = %d, want 1", u.ConnectionCount())
	}
	if !u.TryIncrConnection() {
		t.Fatalf("increment should succeed again after a decrement freed a slot")
	}
}

func TestAllowQueryRollingWindow(t *testing.T) {
	u := NewUserInfo("u", "ns", [20]byte{}, 10, 2)
	now := time.Unix(1000, 0)
	if !u.AllowQuery(now) {
		t.Fatalf("1st query in window should be allowed")
	}
	if !u.AllowQuery(now) {
		t.Fatalf("2nd query in window should be allowed")
	}
	if u.AllowQuery(now) {
		t.Fatalf("3rd query in the same window should be rejected")
	}
	if !u.AllowQuery(now.Add(time.Second)) {
		t.Fatalf("1st query in the next window should be allowed")
	}
}
