// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/forkpoint/forkd/fork"
	"github.com/forkpoint/forkd/rpcclient"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a YAML config file; explicit flags override it",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8080",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "*",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	rpcURLFlag = cli.StringFlag{
		Name:  "rpc-url",
		Value: "https://api.mainnet-beta.solana.com",
		Usage: "remote ledger JSON-RPC endpoint forks hydrate from",
	}
	rpcTimeoutFlag = cli.DurationFlag{
		Name:  "rpc-timeout",
		Value: rpcclient.DefaultTimeout,
		Usage: "timeout of a single remote ledger call",
	}
	forkTTLFlag = cli.DurationFlag{
		Name:  "fork-ttl",
		Value: fork.DefaultTTL,
		Usage: "fork lifetime, absolute from creation",
	}
	reapIntervalFlag = cli.DurationFlag{
		Name:  "reap-interval",
		Value: fork.DefaultReapInterval,
		Usage: "how often expired forks are reaped",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 2,
		Usage: "log verbosity (0-4: error,warn,info,debug,trace)",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "expose prometheus metrics on /metrics",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "log every API request",
	}
)
