// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command quorumd starts the consensus engine HTTP daemon.
//
// This is the main entry point for the containerized quorum service. It
// reads configuration from environment variables, serves the consensus
// API, and optionally watches a spool directory for exam files.
//
// # Environment Variables
//
//   - QUORUMD_PORT: HTTP server port (default: 12310)
//   - QUORUMD_CONFIG: path to the consensus YAML config (optional)
//   - QUORUMD_SPOOL_DIR: exam spool directory to watch (optional)
//   - QUORUMD_PARALLEL: concurrent sessions per exam (default: 4)
//   - QUORUMD_LOG_DIR: directory for JSON log files (optional)
//   - QUORUMD_LOG_LEVEL: debug, info, warn, error (default: info)
//   - OPENAI_API_KEY: OpenAI credential, or mount /run/secrets/openai_api_key
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//
// # Usage
//
//	# Build
//	go build -o quorumd ./cmd/quorumd
//
//	# Run
//	QUORUMD_SPOOL_DIR=/var/spool/quorum ./quorumd
package main

import (
	"log"
	"os"
	"strconv"

	"github.com/AleutianAI/AleutianQuorum/pkg/logging"
	"github.com/AleutianAI/AleutianQuorum/services/quorumd"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("QUORUMD_LOG_LEVEL")),
		LogDir:  os.Getenv("QUORUMD_LOG_DIR"),
		Service: "quorumd",
		JSON:    true,
	})
	defer logger.Close()

	cfg := quorumd.Config{
		Port:         getEnvInt("QUORUMD_PORT", 12310),
		EngineConfig: os.Getenv("QUORUMD_CONFIG"),
		SpoolDir:     os.Getenv("QUORUMD_SPOOL_DIR"),
		Parallel:     getEnvInt("QUORUMD_PARALLEL", 4),
		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	svc, err := quorumd.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create quorumd: %v", err)
	}

	// Blocks until shutdown signal.
	if err := svc.Run(); err != nil {
		log.Fatalf("quorumd error: %v", err)
	}
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
