// Package main starts the fixture-backed mock of the equipment
// analytics service, for developing and demoing the client without a
// real backend.
package main

import (
	"flag"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/chemviz/chemviz/internal/logger"
	"github.com/chemviz/chemviz/internal/mockapi"
)

var (
	// version and buildDate are set via ldflags.
	version   string
	buildDate string
)

// or returns the first non-empty string, like cmp.Or (go 1.22+),
// which is unavailable on the go 1.21 toolchain used to build this.
func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func main() {
	addr := flag.String("a", "localhost:8000", "listen address (ip:port)")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	fmt.Printf("Build version: %s\n", or(version, "N/A"))
	fmt.Printf("Build date: %s\n", or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(*level); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}

	server := mockapi.New(log.Log)

	log.Log.Info("starting mock analytics server",
		zap.String("addr", *addr),
		zap.String("demo_account", "demo/demo"),
	)
	if err := http.ListenAndServe(*addr, server.Router()); err != nil {
		log.Log.Fatal("server stopped", zap.Error(err))
	}
}
