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

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/baikaldb/sqlgate/internal/reactor"
	"github.com/baikaldb/sqlgate/pkg/config"
	"github.com/baikaldb/sqlgate/pkg/frontend"
	"github.com/baikaldb/sqlgate/pkg/logutil"
	"go.uber.org/zap"
)

var srv *frontend.Server

func createServer(configFile string) (*frontend.Server, error) {
	sv := config.NewDefaultFrontendParameters()
	if configFile != "" {
		if _, err := toml.DecodeFile(configFile, sv); err != nil {
			return nil, fmt.Errorf("load config %s: %w", configFile, err)
		}
	}
	pu := config.NewParameterUnit(sv)

	schema := frontend.NewMemSchema()
	schema.AddUser(frontend.NewUserInfo(sv.RootName, "default", [20]byte{}, sv.MaxConnectionsPerUser, sv.QueryQuotaPerUser))

	nWorkers := runtime.GOMAXPROCS(0)
	ep, err := reactor.NewEpoll(nWorkers, nil)
	if err != nil {
		return nil, fmt.Errorf("create epoll reactor: %w", err)
	}

	fsm := &frontend.Fsm{Schema: schema, Reactor: ep}
	rm := frontend.NewRoutineManager(fsm)
	fsm.OnTeardown = rm.Unregister
	ep.SetHandler(func(ev reactor.Event) { rm.OnReadiness(ev.Fd) })
	ep.Run(nil)

	addr := fmt.Sprintf("%s:%d", sv.Host, sv.Port)
	return frontend.NewServer(addr, pu, fsm, rm, reactor.ExtractFD, reactor.NewFDSocketAsSocket, nWorkers), nil
}

func waitSignal() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGTERM, syscall.SIGINT)
	<-sigchan
}

func main() {
	configFile := flag.String("config", "", "path to a TOML configuration file")
	flag.Parse()

	var err error
	srv, err = createServer(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logutil.Error("failed to start server", zap.Error(err))
		os.Exit(1)
	}
	logutil.Info("sqlgate-server started", zap.String("addr", srv.Addr))

	waitSignal()
	fmt.Println("\rBye!")
	_ = srv.Stop()
}
