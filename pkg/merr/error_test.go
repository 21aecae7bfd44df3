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

package merr

import (
	"errors"
	"testing"
)

func TestAsSqlErrorPassesThroughSqlError(t *testing.T) {
	want := NewNoDbError()
	got := AsSqlError(want)
	if got != want {
		t.Fatalf("AsSqlError should return the same *SqlError unchanged")
	}
}

func TestAsSqlErrorWrapsPlainError(t *testing.T) {
	got := AsSqlError(errors.New("boom"))
	if got == nil || got.Code != ErErrorCommon {
		t.Fatalf("AsSqlError(plain) = %+v, want code %d", got, ErErrorCommon)
	}
}

func TestAsSqlErrorNilIsNil(t *testing.T) {
	if AsSqlError(nil) != nil {
		t.Fatalf("AsSqlError(nil) should be nil")
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	se := NewAccessDenied("root", "127.0.0.1")
	if se.Code != ErAccessDenied {
		t.Fatalf("code = %d, want %d", se.Code, ErAccessDenied)
	}
	if se.Error() == "" {
		t.Fatalf("Error() should not be empty")
	}
}
