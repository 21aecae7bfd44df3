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

//go:build !linux

package reactor

import (
	"errors"

	"github.com/baikaldb/sqlgate/pkg/frontend"
)

// Epoll is unavailable off Linux; the epoll-based reactor is this core's one
// platform-specific component, matching the teacher's own
// //go:build linux-gated pkg/frontend/linuxonly package.
type Epoll struct{}

var _ frontend.Reactor = (*Epoll)(nil)

var errUnsupported = errors.New("reactor: epoll is only supported on linux")

func NewEpoll(n int, handler Handler) (*Epoll, error) {
	return nil, errUnsupported
}

func (e *Epoll) Run(stop <-chan struct{}) {}
func (e *Epoll) SetHandler(h Handler)     {}

func (e *Epoll) Register(fd, threadIdx int, dir frontend.ArmDirection) error { return errUnsupported }
func (e *Epoll) Arm(fd int, dir frontend.ArmDirection) error                { return errUnsupported }
func (e *Epoll) DeleteFDMapping(fd int)                                    {}
func (e *Epoll) Remove(fd int) error                                       { return errUnsupported }
