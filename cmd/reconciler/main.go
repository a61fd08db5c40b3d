package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/taskchain/taskchain/pkg/app"
	"github.com/taskchain/taskchain/pkg/app/reconciler"
	"github.com/taskchain/taskchain/pkg/config"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	once       = flag.Bool("once", false, "Run a single reconciliation sweep and exit")
	port       = flag.Int("port", 0, "Override server.port for the health and metrics endpoints")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadAPIServer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	var runner app.Runner = reconciler.NewServer(cfg, *once)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Reconciler stopped: %v\n", err)
		os.Exit(1)
	}
}
