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
	"errors"
	"net"

	"github.com/baikaldb/sqlgate/pkg/frontend"
	"golang.org/x/sys/unix"
)

var errUnsupportedConn = errors.New("reactor: accepted connection is not a *net.TCPConn")

// FDSocket adapts a non-blocking raw file descriptor to frontend.Socket,
// translating EAGAIN/EWOULDBLOCK into frontend.ErrWouldBlock -- the WAIT
// signal spec.md §4.1 and §4.4 describe.
type FDSocket struct {
	Fd int
}

var _ frontend.Socket = (*FDSocket)(nil)

func NewFDSocket(fd int) (*FDSocket, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, err
	}
	return &FDSocket{Fd: fd}, nil
}

func (s *FDSocket) Read(buf []byte) (int, error) {
	n, err := unix.Read(s.Fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, frontend.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (s *FDSocket) Write(buf []byte) (int, error) {
	n, err := unix.Write(s.Fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return n, frontend.ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

// ExtractFD pulls the raw, duplicated file descriptor out of an accepted
// net.TCPConn so it can be handed to epoll directly, grounded on the
// syscall.RawConn pattern the teacher's pkg/frontend/linuxonly/tcpconn.go
// uses to reach a *net.TCPConn's underlying fd.
func ExtractFD(conn net.Conn) (int, error) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return 0, errUnsupportedConn
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	var dupErr error
	err = raw.Control(func(s uintptr) {
		fd, dupErr = unix.Dup(int(s))
	})
	if err != nil {
		return 0, err
	}
	if dupErr != nil {
		return 0, dupErr
	}
	return fd, nil
}

// NewFDSocketAsSocket adapts NewFDSocket to frontend.SocketFactory's
// signature (returning the interface rather than the concrete type).
func NewFDSocketAsSocket(fd int) (frontend.Socket, error) {
	return NewFDSocket(fd)
}
