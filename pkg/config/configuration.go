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

package config

import (
	"context"

	"github.com/baikaldb/sqlgate/pkg/logutil"
)

type ConfigurationKeyType int

const (
	ParameterUnitKey ConfigurationKeyType = 1
)

// FrontendParameters configures the listener, authentication defaults, and
// ambient logging for the frontend protocol core.
type FrontendParameters struct {
	//root name
	RootName string `toml:"rootname"`

	//root password
	RootPassword string `toml:"rootpassword"`

	//port defines which port the server listens on and clients connect to
	Port int64 `toml:"port"`

	//listening ip
	Host string `toml:"host"`

	//connection cap given to the root user created at startup; users from the
	//catalog carry their own cap and this value is not applied to them
	MaxConnectionsPerUser int64 `toml:"maxConnectionsPerUser"`

	//QPS cap given to the root user created at startup; users from the
	//catalog carry their own quota and this value is not applied to them
	QueryQuotaPerUser int64 `toml:"queryQuotaPerUser"`

	//max length, in bytes, of one protocol packet body
	PacketLenMax int64 `toml:"packetLenMax"`

	//the length of query printed into the log. -1: complete string, 0: empty, >0: prefix length
	LengthOfQueryPrinted int64 `toml:"lengthOfQueryPrinted"`

	//default is 'info'. the level of log.
	LogLevel string `toml:"logLevel"`

	//default is 'console'. the format of log.
	LogFormat string `toml:"logFormat"`

	//default is ''. the file
	LogFilename string `toml:"logFilename"`

	//default is 512MB. the maximum of log file size
	LogMaxSize int64 `toml:"logMaxSize"`

	//default is 0. the maximum days of log file to be kept
	LogMaxDays int64 `toml:"logMaxDays"`

	//default is 0. the maximum numbers of log file to be retained
	LogMaxBackups int64 `toml:"logMaxBackups"`
}

// NewDefaultFrontendParameters returns the same defaults spec.md §6 calls out:
// 4000 connections/user, 3000 queries/s/user.
func NewDefaultFrontendParameters() *FrontendParameters {
	return &FrontendParameters{
		Host:                   "0.0.0.0",
		Port:                   6789,
		MaxConnectionsPerUser:  4000,
		QueryQuotaPerUser:      3000,
		PacketLenMax:           16 * 1024 * 1024,
		LengthOfQueryPrinted:   200,
		LogLevel:               "info",
		LogFormat:              "console",
	}
}

func (fp *FrontendParameters) logConfig() logutil.LogConfig {
	return logutil.LogConfig{
		Level:      fp.LogLevel,
		Format:     fp.LogFormat,
		Filename:   fp.LogFilename,
		MaxSize:    int(fp.LogMaxSize),
		MaxDays:    int(fp.LogMaxDays),
		MaxBackups: int(fp.LogMaxBackups),
	}
}

// ParameterUnit bundles the decoded configuration for injection into the
// frontend Server. Kept as an explicit struct (passed by constructor)
// rather than fetched off a package-level singleton on the hot path, per the
// Design Note on singleton replacement.
type ParameterUnit struct {
	SV *FrontendParameters
}

func NewParameterUnit(sv *FrontendParameters) *ParameterUnit {
	logutil.InitLogger(sv.logConfig())
	return &ParameterUnit{SV: sv}
}

// GetParameterUnit retrieves the configuration from the context, kept for
// parity with call sites that only have a context.Context in hand (e.g. a
// collaborator callback); the frontend Server holds a direct *ParameterUnit
// field.
func GetParameterUnit(ctx context.Context) *ParameterUnit {
	pu, ok := ctx.Value(ParameterUnitKey).(*ParameterUnit)
	if !ok || pu == nil {
		panic("parameter unit is invalid")
	}
	return pu
}

func WithParameterUnit(ctx context.Context, pu *ParameterUnit) context.Context {
	return context.WithValue(ctx, ParameterUnitKey, pu)
}
