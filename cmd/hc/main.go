package main

import (
	"context"
	"os"
	"time"

	"github.com/h44z/vote-portal/internal/adapters"
	"github.com/h44z/vote-portal/internal/config"
)

// main checks whether the voting backend at the given base URL answers the candidate list request.
// On success, exit code 0 will be returned, otherwise exit code 1.
func main() {
	os.Exit(checkBackendFromArgs())
}

func checkBackendFromArgs() int {
	if len(os.Args) < 2 {
		return 1
	}
	if status := checkBackend(os.Args[1]); !status {
		return 1
	}
	return 0
}

func checkBackend(baseUrl string) bool {
	cfg := &config.Config{
		Backend: config.BackendConfig{
			BaseUrl:   baseUrl,
			ApiPrefix: "/api",
			Timeout:   2 * time.Second,
			VerifyTls: true,
		},
	}
	cfg.Backend.Sanitize()
	if err := cfg.Backend.Validate(); err != nil {
		return false
	}

	gw, err := adapters.NewVotingGateway(cfg, nil)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
	defer cancel()

	return gw.Ping(ctx)
}
