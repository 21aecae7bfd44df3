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

import "sync"

// RoutineManager is the fd -> Connection registry the reactor's readiness
// handler consults to resolve an Event back into the Connection whose Fsm
// step it should drive. This replaces the teacher's RoutineManager, which
// kept a goetty.IOSession -> Routine map for the same purpose under a full
// mutex; here reads are lock-free via sync.Map since they are on the hot
// readiness path and writes only happen on accept/teardown.
type RoutineManager struct {
	Fsm *Fsm

	conns sync.Map // fd (int) -> *Connection
}

func NewRoutineManager(fsm *Fsm) *RoutineManager {
	return &RoutineManager{Fsm: fsm}
}

func (rm *RoutineManager) Register(c *Connection) {
	rm.conns.Store(c.Fd, c)
}

func (rm *RoutineManager) Unregister(fd int) {
	rm.conns.Delete(fd)
}

func (rm *RoutineManager) Lookup(fd int) (*Connection, bool) {
	v, ok := rm.conns.Load(fd)
	if !ok {
		return nil, false
	}
	return v.(*Connection), true
}

// OnReadiness is the Handler the reactor invokes for every Event; it looks
// up the owning Connection and re-enters the Fsm, which is the "single
// entry point invoked by the reactor on each readiness event" spec.md §2
// describes.
func (rm *RoutineManager) OnReadiness(fd int) {
	c, ok := rm.Lookup(fd)
	if !ok {
		return
	}
	rm.Fsm.Step(c, 0)
}
