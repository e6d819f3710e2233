package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/koshlabs/stellar-evm-bridge/pkg/app"
	"github.com/koshlabs/stellar-evm-bridge/pkg/app/api"
	"github.com/koshlabs/stellar-evm-bridge/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = api.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Bridge server failed: %v\n", err)
		os.Exit(1)
	}
}
