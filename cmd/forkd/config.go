// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

// config runtime configuration, assembled from defaults, then the optional
// YAML file, then explicitly-set flags.
type config struct {
	API struct {
		Addr           string `yaml:"addr"`
		AllowedOrigins string `yaml:"allowedOrigins"`
		EnableMetrics  bool   `yaml:"enableMetrics"`
		EnableReqLogs  bool   `yaml:"enableRequestLogs"`
	} `yaml:"api"`
	RPC struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"rpc"`
	Fork struct {
		TTL          time.Duration `yaml:"ttl"`
		ReapInterval time.Duration `yaml:"reapInterval"`
	} `yaml:"fork"`
	Verbosity int `yaml:"verbosity"`
}

func loadConfig(ctx *cli.Context) (*config, error) {
	var cfg config
	cfg.API.Addr = apiAddrFlag.Value
	cfg.API.AllowedOrigins = apiCorsFlag.Value
	cfg.RPC.URL = rpcURLFlag.Value
	cfg.RPC.Timeout = rpcTimeoutFlag.Value
	cfg.Fork.TTL = forkTTLFlag.Value
	cfg.Fork.ReapInterval = reapIntervalFlag.Value
	cfg.Verbosity = verbosityFlag.Value

	if path := ctx.String(configFlag.Name); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WithMessage(err, "read config file")
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.WithMessage(err, "parse config file")
		}
	}

	if ctx.IsSet(apiAddrFlag.Name) {
		cfg.API.Addr = ctx.String(apiAddrFlag.Name)
	}
	if ctx.IsSet(apiCorsFlag.Name) {
		cfg.API.AllowedOrigins = ctx.String(apiCorsFlag.Name)
	}
	if ctx.IsSet(rpcURLFlag.Name) {
		cfg.RPC.URL = ctx.String(rpcURLFlag.Name)
	}
	if ctx.IsSet(rpcTimeoutFlag.Name) {
		cfg.RPC.Timeout = ctx.Duration(rpcTimeoutFlag.Name)
	}
	if ctx.IsSet(forkTTLFlag.Name) {
		cfg.Fork.TTL = ctx.Duration(forkTTLFlag.Name)
	}
	if ctx.IsSet(reapIntervalFlag.Name) {
		cfg.Fork.ReapInterval = ctx.Duration(reapIntervalFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		cfg.API.EnableMetrics = true
	}
	if ctx.Bool(enableAPILogsFlag.Name) {
		cfg.API.EnableReqLogs = true
	}
	return &cfg, nil
}
