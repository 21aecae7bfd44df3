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
	"net"
	"sync"
	"time"

	"github.com/baikaldb/sqlgate/pkg/config"
	"github.com/baikaldb/sqlgate/pkg/logutil"
	"go.uber.org/zap"
)

// FDExtractor pulls the raw file descriptor out of an accepted net.Conn, and
// SocketFactory wraps that fd as a non-blocking frontend.Socket. Both are
// injected from outside this package (the concrete implementations are
// platform-specific and live in internal/reactor), keeping this package
// free of the raw-syscall dependency the teacher's own
// pkg/frontend/linuxonly package carries directly -- here that concern is
// isolated behind an interface instead.
type FDExtractor func(net.Conn) (int, error)
type SocketFactory func(fd int) (Socket, error)

// Server owns the listener accept loop and the per-connection routing into
// the Fsm, replacing the teacher's MOServer (and its process-wide singleton
// accessors, flagged for replacement in the Design Notes) with an explicit
// struct constructed once and passed its collaborators directly.
type Server struct {
	Addr    string
	PU      *config.ParameterUnit
	Fsm     *Fsm
	RM      *RoutineManager
	Extract FDExtractor
	NewSock SocketFactory

	mu        sync.Mutex
	listener  net.Listener
	running   bool
	wg        sync.WaitGroup
	connSeq   uint32
	threadSeq int
	nWorkers  int
}

func NewServer(addr string, pu *config.ParameterUnit, fsm *Fsm, rm *RoutineManager, extract FDExtractor, newSock SocketFactory, nWorkers int) *Server {
	if nWorkers <= 0 {
		nWorkers = 1
	}
	return &Server{Addr: addr, PU: pu, Fsm: fsm, RM: rm, Extract: extract, NewSock: newSock, nWorkers: nWorkers}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	s.running = false
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	s.wg.Wait()
	return nil
}

// acceptLoop mirrors the teacher's MOServer.startAcceptLoop: a blocking
// Accept loop on a dedicated goroutine, with exponential backoff on
// transient errors rather than spinning.
func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				if backoff == 0 {
					backoff = 5 * time.Millisecond
				} else {
					backoff *= 2
				}
				if backoff > time.Second {
					backoff = time.Second
				}
				time.Sleep(backoff)
				continue
			}
			logutil.Error("accept failed, stopping accept loop", zap.Error(err))
			return
		}
		backoff = 0
		s.handleAccepted(conn)
	}
}

func (s *Server) handleAccepted(netConn net.Conn) {
	fd, err := s.Extract(netConn)
	if err != nil {
		logutil.Error("failed to extract fd from accepted connection", zap.Error(err))
		_ = netConn.Close()
		return
	}
	sock, err := s.NewSock(fd)
	if err != nil {
		logutil.Error("failed to wrap accepted connection as non-blocking socket", zap.Error(err))
		_ = netConn.Close()
		return
	}

	s.mu.Lock()
	threadIdx := s.threadSeq % s.nWorkers
	s.threadSeq++
	connID := s.connSeq + 1
	s.connSeq = connID
	s.mu.Unlock()

	c := NewConnection(fd, sock, threadIdx)
	if s.PU != nil && s.PU.SV != nil && s.PU.SV.PacketLenMax > 0 {
		c.PacketLenMax = int(s.PU.SV.PacketLenMax)
	}
	if tcp, ok := netConn.RemoteAddr().(*net.TCPAddr); ok {
		c.SetPeer(tcp)
	}
	if s.RM != nil {
		s.RM.Register(c)
	}
	if reg, ok := s.Fsm.Reactor.(interface {
		Register(fd, threadIdx int, dir ArmDirection) error
	}); ok {
		if err := reg.Register(fd, threadIdx, ArmOut); err != nil {
			logutil.Error("failed to register connection with reactor", zap.Error(err))
			_ = netConn.Close()
			return
		}
	}
	s.Fsm.Step(c, connID)
}
