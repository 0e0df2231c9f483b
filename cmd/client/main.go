// SPDX-License-Identifier: GPL-3.0-or-later

// Command client runs the reverse-tunnel client: it dials a relay server's
// gateway listener, waits for the server to pair it with a public
// connection, then dials a private target and splices the two together.
//
// Usage:
//
//	client [-v...] <gateway-addr-list> <private-addr-list>
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/nstratos/tcprelay/internal/addrlist"
	"github.com/nstratos/tcprelay/internal/client"
	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/verbosity"
)

func main() {
	os.Exit(run())
}

func run() int {
	var verbose verbosity.Flag
	flag.Var(&verbose, "v", "increase log verbosity (repeatable): 0=warn, 1=info, 2=debug, 3+=trace")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: client [-v...] <gateway-addr-list> <private-addr-list>")
		return 2
	}
	gatewaySpec, privateSpec := flag.Arg(0), flag.Arg(1)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: verbose.Level(),
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gateways, err := addrlist.Resolve(ctx, net.DefaultResolver, gatewaySpec)
	if err != nil {
		logger.Error("failed to resolve gateway address list", "spec", gatewaySpec, "err", err)
		return 1
	}
	if len(gateways) == 0 {
		logger.Error("gateway address list resolved to zero addresses", "spec", gatewaySpec)
		return 1
	}

	privates, err := addrlist.Resolve(ctx, net.DefaultResolver, privateSpec)
	if err != nil {
		logger.Error("failed to resolve private address list", "spec", privateSpec, "err", err)
		return 1
	}
	if len(privates) == 0 {
		logger.Error("private address list resolved to zero addresses", "spec", privateSpec)
		return 1
	}

	c := client.New(config.New(), logger, gateways, privates)
	logger.Info("client starting", "gateways", gateways, "privates", privates)

	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("client stopped unexpectedly", "err", err)
		return 1
	}
	return 0
}
