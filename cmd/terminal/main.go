// Package main starts the syndicate terminal service and handles
// termination.
//
// The process is a transport adapter around the command dispatcher and
// record cache, so identity and contract state remains owned by the
// record store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	terminalcmd "github.com/sablegrid/syndnet/internal/cmd/terminal"
)

func main() {
	cfg, err := terminalcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TERMINAL] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := terminalcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
