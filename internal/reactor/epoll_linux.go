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

//go:build linux

package reactor

import (
	"sync"

	"github.com/baikaldb/sqlgate/pkg/frontend"
	"github.com/baikaldb/sqlgate/pkg/logutil"
	"golang.org/x/sys/unix"
	"go.uber.org/zap"
)

// worker owns one epoll instance and runs on exactly one goroutine, giving
// every connection registered with it a stable thread affinity -- spec.md
// §5's "A reactor pins each connection to one worker thread (stable
// thread_idx)."
type worker struct {
	idx  int
	epfd int
}

// Epoll is the concrete Reactor (spec.md §6) backing the FSM's suspension
// points, grounded on the teacher's //go:build linux convention in
// pkg/frontend/linuxonly/tcpconn.go, generalized from raw TCP_INFO
// introspection to golang.org/x/sys/unix's epoll wrappers.
type Epoll struct {
	workers []*worker

	mu      sync.Mutex
	fdOwner map[int]int // fd -> worker index

	handlerMu sync.RWMutex
	handler   Handler
}

// SetHandler installs (or replaces) the readiness callback; safe to call
// before or after Run.
func (e *Epoll) SetHandler(h Handler) {
	e.handlerMu.Lock()
	e.handler = h
	e.handlerMu.Unlock()
}

func (e *Epoll) dispatch(ev Event) {
	e.handlerMu.RLock()
	h := e.handler
	e.handlerMu.RUnlock()
	if h != nil {
		h(ev)
	}
}

var _ frontend.Reactor = (*Epoll)(nil)

// NewEpoll creates n worker epoll instances; n is typically GOMAXPROCS.
func NewEpoll(n int, handler Handler) (*Epoll, error) {
	if n <= 0 {
		n = 1
	}
	e := &Epoll{
		fdOwner: make(map[int]int),
		handler: handler,
	}
	for i := 0; i < n; i++ {
		epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
		if err != nil {
			return nil, err
		}
		e.workers = append(e.workers, &worker{idx: i, epfd: epfd})
	}
	return e, nil
}

// Run starts one goroutine per worker; it returns immediately, the
// goroutines run until stop is closed.
func (e *Epoll) Run(stop <-chan struct{}) {
	for _, w := range e.workers {
		go e.runWorker(w, stop)
	}
}

func (e *Epoll) runWorker(w *worker, stop <-chan struct{}) {
	events := make([]unix.EpollEvent, 128)
	for {
		select {
		case <-stop:
			return
		default:
		}
		n, err := unix.EpollWait(w.epfd, events, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			logutil.Warn("epoll_wait failed", zap.Int("worker", w.idx), zap.Error(err))
			continue
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)
			e.dispatch(Event{
				Fd:       fd,
				Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
				Writable: ev.Events&unix.EPOLLOUT != 0,
			})
		}
	}
}

// Register pins fd to a worker chosen by threadIdx (stable across the
// connection's lifetime, per spec.md §5) and arms it for dir (ArmOut arms
// writability; any other value arms readability). The frontend Server
// registers a freshly accepted connection with ArmOut, since spec.md §4.4's
// ConnectedClient entry is a write.
func (e *Epoll) Register(fd, threadIdx int, dir frontend.ArmDirection) error {
	w := e.workers[threadIdx%len(e.workers)]
	e.mu.Lock()
	e.fdOwner[fd] = w.idx
	e.mu.Unlock()
	return unix.EpollCtl(w.epfd, unix.EPOLL_CTL_ADD, fd, epollEvent(fd, dir))
}

func (e *Epoll) Arm(fd int, dir frontend.ArmDirection) error {
	e.mu.Lock()
	idx, ok := e.fdOwner[fd]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	w := e.workers[idx]
	if dir == frontend.ArmNone {
		return nil
	}
	return unix.EpollCtl(w.epfd, unix.EPOLL_CTL_MOD, fd, epollEvent(fd, dir))
}

func (e *Epoll) DeleteFDMapping(fd int) {
	e.mu.Lock()
	delete(e.fdOwner, fd)
	e.mu.Unlock()
}

func (e *Epoll) Remove(fd int) error {
	e.mu.Lock()
	idx, ok := e.fdOwner[fd]
	delete(e.fdOwner, fd)
	e.mu.Unlock()
	if !ok {
		return nil
	}
	w := e.workers[idx]
	return unix.EpollCtl(w.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func epollEvent(fd int, dir frontend.ArmDirection) *unix.EpollEvent {
	ev := &unix.EpollEvent{Fd: int32(fd)}
	switch dir {
	case frontend.ArmIn:
		ev.Events = unix.EPOLLIN
	case frontend.ArmOut:
		ev.Events = unix.EPOLLOUT
	default:
		ev.Events = unix.EPOLLIN
	}
	return ev
}
