// SPDX-License-Identifier: GPL-3.0-or-later

// Command server runs the reverse-tunnel server: it listens for gateway
// connections from a relay agent and public connections from the
// Internet-facing side, pairing and splicing them together.
//
// Usage:
//
//	server [-v...] <gateway-addr> <public-addr>
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

	"github.com/nstratos/tcprelay/internal/config"
	"github.com/nstratos/tcprelay/internal/server"
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
		fmt.Fprintln(os.Stderr, "usage: server [-v...] <gateway-addr> <public-addr>")
		return 2
	}
	gatewayAddr, publicAddr := flag.Arg(0), flag.Arg(1)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: verbose.Level(),
	}))

	gatewayLn, err := net.Listen("tcp", gatewayAddr)
	if err != nil {
		logger.Error("failed to bind gateway listener", "addr", gatewayAddr, "err", err)
		return 1
	}
	defer gatewayLn.Close()

	publicLn, err := net.Listen("tcp", publicAddr)
	if err != nil {
		logger.Error("failed to bind public listener", "addr", publicAddr, "err", err)
		return 1
	}
	defer publicLn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(config.New(), logger, gatewayLn, publicLn)
	logger.Info("server listening", "gateway", gatewayLn.Addr(), "public", publicLn.Addr())

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server stopped unexpectedly", "err", err)
		return 1
	}
	return 0
}
