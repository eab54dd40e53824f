// Package dbt is this module's embedder-facing facade: it wires region
// formation (internal/dbt/rft), the AOS database and solver
// (internal/dbt/aos), and the compile pipeline orchestrator
// (internal/dbt/manager) into the single Runtime type an interpreter
// drives, the way wazero's top-level runtime.go wires its own engine,
// store and module-instantiation pieces behind one Runtime.
package dbt

import (
	"context"
	"log/slog"

	"github.com/OpenISA/oi-dbt/internal/dbt/aos"
	"github.com/OpenISA/oi-dbt/internal/dbt/logging"
	"github.com/OpenISA/oi-dbt/internal/dbt/manager"
	"github.com/OpenISA/oi-dbt/internal/dbt/rft"
	"github.com/OpenISA/oi-dbt/oi"
)

// Config is re-exported so embedders only need to import this package.
type Config = manager.Config

// OptPolitic is re-exported from manager.
type OptPolitic = manager.OptPolitic

const (
	PoliticDefault      = manager.PoliticDefault
	PoliticConservative = manager.PoliticConservative
	PoliticAggressive   = manager.PoliticAggressive
)

// Runtime is the embedding interpreter's single handle onto this
// translator: feed it the branch stream via OnBranch/Feed, probe it via
// IsNativeRegionEntry before dispatching a PC natively, and run compiled
// code via JumpToRegion.
type Runtime struct {
	cfg     Config
	decoder oi.Decoder
	net     *rft.Net
	mgr     *manager.Manager
	db      *aos.Database
	log     *slog.Logger
}

// Option configures an optional Runtime input not covered by Config.
type Option = manager.Option

// WithMachine supplies the spec §6 Machine collaborator so the compile
// pipeline can speculate on indirect-branch return targets
// (improveIndirectBranch, spec §4.C). Without it, Jumpr/Ijmp always falls
// back to a plain return to the interpreter.
func WithMachine(m oi.Machine) Option {
	return manager.WithMachine(m)
}

// New builds a Runtime from cfg, opening (or creating) the AOS database
// at cfg.DBPath and starting cfg.Threads background compile workers.
func New(cfg Config, decoder oi.Decoder, opts ...Option) (*Runtime, error) {
	var db *aos.Database
	if cfg.DBPath != "" {
		var err error
		db, err = aos.Load(cfg.DBPath)
		if err != nil {
			return nil, err
		}
	}
	solver := &aos.HeuristicSolver{DB: db}
	mgr := manager.New(cfg, decoder, solver, db, opts...)

	net := rft.NewNet(rft.Policy{
		HotnessThreshold: cfg.HotnessThreshold,
		RegionLimitSize:  cfg.RegionLimitSize,
		Relaxed:          cfg.Relaxed,
	})

	return &Runtime{
		cfg:     cfg,
		decoder: decoder,
		net:     net,
		mgr:     mgr,
		db:      db,
		log:     logging.New(cfg.Verbose),
	}, nil
}

// Close stops the background compile workers, waiting up to ctx's
// deadline for in-flight work to finish.
func (r *Runtime) Close(ctx context.Context) error {
	return r.mgr.Close(ctx)
}

// Feed reports one executed, non-branching instruction to region
// formation.
func (r *Runtime) Feed(ri oi.RegionInst) {
	r.net.Feed(ri)
}

// OnBranch reports one executed branch to region formation, submitting a
// completed region to the compile pipeline when formation finishes.
func (r *Runtime) OnBranch(ri oi.RegionInst, inst oi.Inst, landedAt oi.Addr) {
	region, kind, done := r.net.OnBranch(ri, inst, landedAt, r.decoder)
	if !done {
		return
	}
	targets := oi.BuildBranchTargetMap(region, r.decoder)
	r.log.Debug("region formed", "entry", region.EntryPC, "insts", len(region.Insts), "kind", kind)
	r.mgr.AddRegion(region, targets)
}

// IsNativeRegionEntry reports whether pc currently has compiled, runnable
// native code installed.
func (r *Runtime) IsNativeRegionEntry(pc oi.Addr) bool {
	return r.mgr.IsNativeRegionEntry(pc)
}

// JumpToRegion runs the compiled region at pc and returns the guest PC
// execution should resume at.
func (r *Runtime) JumpToRegion(pc oi.Addr, regs *[oi.TotalRegSlots]int32, mem []byte) oi.Addr {
	return r.mgr.JumpToRegion(pc, regs, mem)
}

// Stats returns the manager's compile-pipeline counters.
func (r *Runtime) Stats() manager.Stats {
	return r.mgr.Stats()
}
