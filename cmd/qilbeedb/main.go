// Command qilbeedb opens an embedded qilbeedb instance and runs a scripted
// smoke check against it: create a graph, run a query, remember an
// episode, and report back what it found. It exists to exercise
// pkg/qilbee end-to-end from the command line, not as a server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/qilbeedb/qilbeedb/internal/health"
	"github.com/qilbeedb/qilbeedb/internal/memory"
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/pkg/qilbee"
)

func main() {
	os.Exit(run())
}

func run() int {
	dataDir := flag.String("data-dir", "./qilbeedb-data", "directory holding the database files")
	graphName := flag.String("graph", "default", "graph to open or create")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	healthAddr := flag.String("health-addr", "", "if set, serve /healthz and /readyz on this address")
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	slog.Info("qilbeedb starting", "data_dir", *dataDir, "graph", *graphName)

	db, err := qilbee.Open(*dataDir, qilbee.WithLogger(logger))
	if err != nil {
		slog.Error("failed to open database", "err", err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("close error", "err", err)
		}
	}()

	if err := smokeCheck(db, *graphName); err != nil {
		slog.Error("smoke check failed", "err", err)
		return 1
	}

	if *healthAddr != "" {
		serveHealth(*healthAddr, db, *graphName)
	}

	printStartupSummary(db, *graphName)
	slog.Info("qilbeedb ready")
	return 0
}

// serveHealth starts a background HTTP server exposing /healthz and /readyz,
// the latter backed by a readiness check that confirms graphName still
// resolves and can be queried.
func serveHealth(addr string, db *qilbee.DB, graphName string) {
	h := health.New(health.Checker{
		Name: "graph:" + graphName,
		Check: func(ctx context.Context) error {
			_, err := db.Query(graphName, "MATCH (n) RETURN n", nil)
			return err
		},
	})
	mux := http.NewServeMux()
	h.Register(mux)
	go func() {
		slog.Info("health endpoint listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("health endpoint stopped", "err", err)
		}
	}()
}

// smokeCheck exercises the core operations a caller of pkg/qilbee relies on:
// graph creation, a node write, a lookup query, and an agent-memory write.
func smokeCheck(db *qilbee.DB, graphName string) error {
	if db.Graph(graphName) == nil {
		if _, err := db.CreateGraph(graphName); err != nil {
			return fmt.Errorf("create graph %q: %w", graphName, err)
		}
	}

	g := db.Graph(graphName)
	if _, err := g.CreateNode([]string{"Probe"}, map[string]property.Value{
		"name": property.String("qilbeedb-smoke-check"),
	}); err != nil {
		return fmt.Errorf("create probe node: %w", err)
	}

	_, err := db.Query(graphName, `MATCH (n:Probe) WHERE n.name = $name RETURN n.name`,
		map[string]property.Value{"name": property.String("qilbeedb-smoke-check")},
	)
	if err != nil {
		return fmt.Errorf("run smoke query: %w", err)
	}

	ep := &memory.Episode{
		AgentID: "qilbeedb-cli",
		Kind:    memory.KindObservation,
		Content: memory.Content{Primary: "smoke check completed cleanly"},
	}
	if err := db.Remember(graphName, ep); err != nil {
		return fmt.Errorf("remember smoke episode: %w", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printStartupSummary(db *qilbee.DB, graphName string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          qilbeedb — ready              ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Active graph    : %-19s ║\n", truncate(graphName, 19))
	fmt.Printf("║  Graphs catalogued: %-18d ║\n", len(db.ListGraphs()))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
