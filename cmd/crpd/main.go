package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"crp/config"
	"crp/core/journal"
	"crp/core/state"
	"crp/native/compliance"
	"crp/native/governance"
	"crp/native/membership"
	"crp/native/pool"
	"crp/native/registry"
	"crp/native/rewards"
	"crp/native/shares"
	"crp/native/treasury"
	"crp/observability/logging"
	"crp/rpc"
	"crp/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("crpd", cfg.Environment, logging.Options{FilePath: cfg.LogFile})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	jrnl, err := journal.Open(cfg.JournalPath, nil)
	if err != nil {
		panic(fmt.Sprintf("Failed to open journal: %v", err))
	}
	defer jrnl.Close()

	manager := state.NewManager(db)
	emitter := journal.NewEmitter(jrnl, logger)

	if err := seedGenesisAdmin(cfg, manager, logger); err != nil {
		logger.Error("Failed to seed genesis admin", slog.Any("error", err))
		os.Exit(1)
	}

	members := membership.NewEngine()
	members.SetState(manager)
	members.SetEmitter(emitter)

	comp := compliance.NewEngine()
	comp.SetState(manager)
	comp.SetAdminGate(members)
	comp.SetEmitter(emitter)

	treas := treasury.NewEngine()
	treas.SetState(manager)
	treas.SetComplianceGate(comp)
	treas.SetPauses(manager)
	treas.SetEmitter(emitter)

	ledger := shares.NewLedger()
	ledger.SetState(manager)

	pools := pool.NewEngine()
	pools.SetState(manager)
	pools.SetRoleGate(members)
	pools.SetComplianceGate(comp)
	pools.SetShareLedger(ledger)
	pools.SetPauses(manager)
	pools.SetEmitter(emitter)

	staking := rewards.NewEngine()
	staking.SetState(manager)
	staking.SetRoleGate(members)
	staking.SetPauses(manager)
	staking.SetEmitter(emitter)

	gov := governance.NewEngine()
	gov.SetState(manager)
	gov.SetRoleGate(members)
	gov.SetAdminTransferor(members)
	gov.SetPauses(manager)
	gov.SetEmitter(emitter)

	hub := registry.NewHub()
	hub.SetState(manager)
	hub.SetAdminGate(members)
	hub.SetEmitter(emitter)

	rpcServer := rpc.NewServer(rpc.ServerConfig{
		Membership: members,
		Compliance: comp,
		Treasury:   treas,
		Pools:      pools,
		Rewards:    staking,
		Governance: gov,
		Registry:   hub,
		Shares:     ledger,
		Journal:    jrnl,
		AuthToken:  cfg.RPCAuthToken,
		Logger:     logger,
	})

	rpcErrCh := make(chan error, 1)
	go func() {
		rpcErrCh <- rpcServer.Start(cfg.RPCAddress)
	}()

	if cfg.MetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("starting metrics server", "addr", cfg.MetricsAddress)
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				logger.Error("metrics server terminated", slog.Any("error", err))
			}
		}()
	}

	logger.Info("crpd node initialised and running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-rpcErrCh:
		if err != nil {
			logger.Error("RPC server terminated", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}
}

// seedGenesisAdmin grants the configured genesis admin the admin role once.
// An address that is already a member keeps its stored role.
func seedGenesisAdmin(cfg *config.Config, manager *state.Manager, logger *slog.Logger) error {
	admin, ok, err := cfg.AdminAddress()
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("no genesis admin configured, mutating operations require an existing member set")
		return nil
	}
	if _, exists, err := manager.MembershipGetMember(admin); err != nil {
		return err
	} else if exists {
		return nil
	}
	if err := manager.MembershipPutMember(&membership.Member{Address: admin, Role: membership.RoleAdmin}); err != nil {
		return err
	}
	logger.Info("seeded genesis admin")
	return nil
}
