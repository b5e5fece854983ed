package main

import (
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quorumhq/raft"
	"github.com/quorumhq/raft/statemachine/kv"
	"github.com/quorumhq/raft/storage/filecell"
	"github.com/quorumhq/raft/storage/filelog"
	"github.com/quorumhq/raft/transport/grpcraft"
)

var configPath string

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raftd",
		Short: "Run a single node of a quorumhq/raft cluster",
		RunE:  runDaemon,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "raftd.yaml", "path to the node's YAML config file")
	return cmd
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Debug {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapLogger, err := zapCfg.Build()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	logger := zapLogger.Sugar().With("node_id", cfg.ID)
	defer zapLogger.Sync()

	storageDir := cfg.Storage.Dir
	if storageDir == "" {
		storageDir = "."
	}
	cell, err := filecell.Open(filepath.Join(storageDir, cfg.ID+".cell.gob"))
	if err != nil {
		return err
	}

	logFile := filelog.New(filepath.Join(storageDir, cfg.ID+".log.gob"))
	persistedEntries, persistedCompacted, err := logFile.Load()
	if err != nil {
		return err
	}

	sm := kv.New()
	logStore := raft.NewLogStore(sm)
	logStore.Restore(persistedEntries, persistedCompacted)

	transport, err := grpcraft.Listen(cfg.Listen)
	if err != nil {
		return err
	}
	go func() {
		if err := transport.Serve(); err != nil {
			logger.Errorw("transport stopped", "error", err)
		}
	}()
	defer transport.Close()

	var peers []raft.Peer
	for _, p := range cfg.Cluster {
		if p.ID == cfg.ID {
			continue
		}
		peers = append(peers, raft.Peer{ID: p.ID, Endpoint: p.Endpoint})
	}

	var opts []raft.Option
	opts = append(opts, raft.WithDebug(cfg.Debug))
	if cfg.electionBase() > 0 {
		opts = append(opts, raft.WithElectionBase(cfg.electionBase()))
	}
	if cfg.heartbeatBase() > 0 {
		opts = append(opts, raft.WithHeartbeatBase(cfg.heartbeatBase()))
	}
	if cfg.BatchSize > 0 {
		opts = append(opts, raft.WithBatchSize(cfg.BatchSize))
	}

	node := raft.NewNode(cfg.ID, peers, transport, cell, logStore, opts...)
	defer node.Shutdown()

	registry := prometheus.NewRegistry()
	node.Orchestrator().RegisterMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/append", appendHandler(node))
	mux.HandleFunc("/get", getHandler(node))
	mux.HandleFunc("/diagnostic", diagnosticHandler(node))

	httpServer := &http.Server{Addr: httpAddr(cfg.Listen), Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("http server stopped", "error", err)
		}
	}()

	defer func() {
		if err := logFile.Save(logStore.Entries(), logStore.Compacted()); err != nil {
			logger.Errorw("failed to persist log", "error", err)
		}
	}()

	sig := <-terminalSignalCh()
	logger.Infow("received shutdown signal", "signal", sig.String())
	return nil
}

// httpAddr derives the diagnostics/client HTTP port from the gRPC listen
// address: the CORE and its transport are wire-protocol agnostic, but a
// single process still needs two distinct ports.
func httpAddr(grpcAddr string) string {
	host, portStr, err := net.SplitHostPort(grpcAddr)
	if err != nil {
		return ":8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return ":8080"
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1))
}

type appendRequest struct {
	Data []byte `json:"data"`
}

func appendHandler(node *raft.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, redirect, err := node.Append(req.Data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if redirect != nil {
			w.WriteHeader(http.StatusTemporaryRedirect)
			json.NewEncoder(w).Encode(redirect)
			return
		}
		json.NewEncoder(w).Encode(result)
	}
}

func getHandler(node *raft.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := node.Get()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(value)
	}
}

func diagnosticHandler(node *raft.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := node.Diagnostic()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(report)
	}
}
