package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	distributorcmd "github.com/drillwire/drillwire/internal/cmd/distributor"
)

func main() {
	cfg, err := distributorcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[DISTRIBUTOR] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := distributorcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
