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

// Package reactor pins accepted connections to worker threads and delivers
// readiness events, implementing the Reactor collaborator spec.md §6
// defines and the FSM's suspension-point contract from spec.md §5.
package reactor

// Event is one readiness notification for a registered file descriptor.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Err      error
}

// Handler is invoked for every readiness Event; it is expected to call back
// into the FSM (frontend.Fsm.Step) for the Connection owning Fd.
type Handler func(ev Event)
