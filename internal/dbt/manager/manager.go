// Package manager implements component F: the orchestrator owning the
// region tables, the process-wide code cache, and the worker pool that
// lifts, optimizes, and installs compiled regions in the background while
// the interpreter keeps running ahead of them (spec §4.F, §5).
package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OpenISA/oi-dbt/internal/dbt/aos"
	"github.com/OpenISA/oi-dbt/internal/dbt/backend"
	"github.com/OpenISA/oi-dbt/internal/dbt/codecache"
	"github.com/OpenISA/oi-dbt/internal/dbt/frontend"
	"github.com/OpenISA/oi-dbt/internal/dbt/optimizer"
	"github.com/OpenISA/oi-dbt/internal/dbt/ssa"
	"github.com/OpenISA/oi-dbt/oi"
)

// Config is the embedder-facing knob set (spec §3's Config entity).
type Config struct {
	Threads          int
	Politic          OptPolitic
	DataMemOffset    uint32
	HotnessThreshold uint32
	RegionLimitSize  int
	Relaxed          bool
	Verbose          bool
	DBPath           string
}

// OptPolitic names an optimization policy for Config.Politic (spec
// §3/§4.E). Nothing in the manager or in aos.HeuristicSolver reads it;
// the solver's escalation is the same for every value.
type OptPolitic int

const (
	PoliticDefault OptPolitic = iota
	PoliticConservative
	PoliticAggressive
)

// Stats are the counters spec §4.F asks the manager to expose.
type Stats struct {
	CompiledRegions int
	AvgOptCodeSize  float64
}

// callSiteIndex is the manager-owned, persistent implementation of
// frontend.CallSites: the spec §4.C CallTargetList, scoped to the Manager
// per the spec's Design Notes rather than kept as a frontend-level global,
// so call sites discovered while compiling one region remain visible to
// improveIndirectBranch when a later job lowers that callee's Jumpr.
type callSiteIndex struct {
	mu sync.Mutex
	m  map[oi.Addr][]oi.Addr
}

func newCallSiteIndex() *callSiteIndex {
	return &callSiteIndex{m: make(map[oi.Addr][]oi.Addr)}
}

func (c *callSiteIndex) Record(callee, site oi.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.m[callee] {
		if s == site {
			return
		}
	}
	c.m[callee] = append(c.m[callee], site)
}

func (c *callSiteIndex) Lookup(callee oi.Addr) []oi.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]oi.Addr, len(c.m[callee]))
	copy(out, c.m[callee])
	return out
}

type regionEntry struct {
	region  oi.Region
	targets oi.BranchTargetMap
}

type compiledEntry struct {
	fn     *ssa.Function
	entry  backend.Entry
	dna    oi.DNA
	size   int
}

// Manager owns region formation results, compiled code, and the code
// cache, and drives the background compile pipeline.
type Manager struct {
	cfg     Config
	decoder oi.Decoder
	solver  aos.Solver
	db      *aos.Database
	cache   *codecache.Table
	backend backend.Compiler

	regionMu sync.RWMutex
	regions  map[oi.Addr]*regionEntry

	compiledMu sync.RWMutex
	compiled   []compiledEntry
	byEntry    map[oi.Addr]int

	jobs   chan job
	wg     sync.WaitGroup
	cancel context.CancelFunc

	statsMu sync.Mutex
	stats   Stats

	machine   oi.Machine
	callSites *callSiteIndex
}

// Option configures an optional Manager input not covered by Config.
type Option func(*Manager)

// WithMachine supplies the spec §6 Machine collaborator the manager passes
// to the frontend on every compile job, enabling indirect-return
// speculation (improveIndirectBranch, spec §4.C). Without it, Jumpr/Ijmp
// always falls back to a plain return to the interpreter.
func WithMachine(m oi.Machine) Option {
	return func(mgr *Manager) { mgr.machine = m }
}

type job struct {
	region  oi.Region
	targets oi.BranchTargetMap
}

// New returns a Manager ready to accept AddRegion calls. It starts
// cfg.Threads worker goroutines immediately; callers must call Close to
// stop them.
func New(cfg Config, decoder oi.Decoder, solver aos.Solver, db *aos.Database, opts ...Option) *Manager {
	if cfg.Threads < 0 {
		cfg.Threads = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       cfg,
		decoder:   decoder,
		solver:    solver,
		db:        db,
		cache:     codecache.NewTable(4096),
		backend:   backend.EvalCompiler{},
		regions:   make(map[oi.Addr]*regionEntry),
		byEntry:   make(map[oi.Addr]int),
		jobs:      make(chan job, cfg.Threads*4),
		cancel:    cancel,
		callSites: newCallSiteIndex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for i := 0; i < cfg.Threads; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	return m
}

// Close stops accepting new work and waits for in-flight compiles to
// finish, or for ctx to be done, whichever happens first.
func (m *Manager) Close(ctx context.Context) error {
	m.cancel()
	close(m.jobs)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddRegion atomically registers a newly formed region and enqueues it for
// background compilation, returning true if this call performed the
// insert. A region already present (by entry PC) is left untouched and
// AddRegion returns false — spec §4.F's addOIRegion contract and §8
// invariant 3 (idempotent registration): a region is compiled, and its
// code-cache entry installed, at most once. It is safe to call from the
// interpreter's goroutine while workers compile previously submitted
// regions concurrently.
func (m *Manager) AddRegion(region oi.Region, targets oi.BranchTargetMap) bool {
	m.regionMu.Lock()
	if _, ok := m.regions[region.EntryPC]; ok {
		m.regionMu.Unlock()
		return false
	}
	m.regions[region.EntryPC] = &regionEntry{region: region, targets: targets}
	m.regionMu.Unlock()

	select {
	case m.jobs <- job{region: region, targets: targets}:
	default:
		// The queue is full (always so with Threads == 0): rather than
		// block the interpreter thread, the region stays registered but
		// is not compiled, and later AddRegion calls for it return false.
	}
	return true
}

// IsRegionEntry reports whether pc is the entry address of a region the
// manager has already recorded (hot enough to have started formation or
// compilation), regardless of whether compilation has finished.
func (m *Manager) IsRegionEntry(pc oi.Addr) bool {
	m.regionMu.RLock()
	defer m.regionMu.RUnlock()
	_, ok := m.regions[pc]
	return ok
}

// IsNativeRegionEntry reports whether pc currently has a compiled, cache-
// installed entry point ready to run.
func (m *Manager) IsNativeRegionEntry(pc oi.Addr) bool {
	_, ok := m.cache.Lookup(pc)
	return ok
}

// Lookup returns the installed backend.Entry for pc and true, or false if
// pc has no compiled region (yet).
func (m *Manager) Lookup(pc oi.Addr) (backend.Entry, bool) {
	e, ok := m.cache.Lookup(pc)
	if !ok {
		return nil, false
	}
	m.compiledMu.RLock()
	defer m.compiledMu.RUnlock()
	if int(e.Index) >= len(m.compiled) {
		return nil, false
	}
	return m.compiled[e.Index].entry, true
}

// CompiledEntryPCs returns the entry PC of every region installed in the
// code cache so far, in no particular order — the iterator accessor over
// CompiledOIRegions spec §4.F asks the manager to expose.
func (m *Manager) CompiledEntryPCs() []oi.Addr {
	m.compiledMu.RLock()
	defer m.compiledMu.RUnlock()
	out := make([]oi.Addr, 0, len(m.byEntry))
	for pc := range m.byEntry {
		out = append(out, pc)
	}
	return out
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case j, ok := <-m.jobs:
			if !ok {
				return
			}
			m.compileAndInstall(j)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) compileAndInstall(j job) {
	start := time.Now()

	dna := oi.Fingerprint(j.region, m.decoder)

	// Each region is compiled at most once by this manager (AddRegion
	// rejects duplicates before a job is ever enqueued), so there is no
	// in-process recompile count to report; the Solver still escalates
	// across process restarts via its own database lookup.
	opts := m.solver.Select(dna, 0)

	var lowerOpts []frontend.Option
	lowerOpts = append(lowerOpts, frontend.WithCallSites(m.callSites))
	if m.machine != nil {
		lowerOpts = append(lowerOpts, frontend.WithMachine(m.machine))
	}
	fn, _, err := frontend.Lower(j.region, m.decoder, lowerOpts...)
	if err != nil {
		// A region this manager cannot lower is dropped rather than
		// crashing the whole process: the interpreter simply keeps
		// running it uncompiled.
		return
	}

	mod := ssa.NewModule()
	mod.AddFunction(fn)
	if err := optimizer.Run(mod, opts.Passes, opts.Level); err != nil {
		return
	}

	entries, err := m.backend.Compile(mod)
	if err != nil {
		return
	}
	entry, ok := entries[j.region.EntryPC]
	if !ok {
		return
	}

	size := fn.NumInsts()
	m.compiledMu.Lock()
	idx := len(m.compiled)
	m.compiled = append(m.compiled, compiledEntry{fn: fn, entry: entry, dna: dna, size: size})
	m.byEntry[j.region.EntryPC] = idx
	m.compiledMu.Unlock()

	m.cache.Install(codecache.Entry{GuestPC: j.region.EntryPC, Index: uint32(idx)})

	compileTime := time.Since(start)
	if m.db != nil {
		_ = m.db.Append(aos.Record{DNA: dna, Opts: opts, CompileTime: compileTime})
	}

	m.statsMu.Lock()
	m.stats.CompiledRegions++
	n := float64(m.stats.CompiledRegions)
	m.stats.AvgOptCodeSize = m.stats.AvgOptCodeSize*(n-1)/n + float64(size)/n
	m.statsMu.Unlock()
}

// JumpToRegion runs the compiled region installed at pc against the
// caller's register file and data memory, returning the guest PC
// execution should resume at. It panics if pc has no compiled entry —
// callers must check IsNativeRegionEntry (or use Lookup) first.
func (m *Manager) JumpToRegion(pc oi.Addr, regs *[oi.TotalRegSlots]int32, mem []byte) oi.Addr {
	e, ok := m.Lookup(pc)
	if !ok {
		panic(fmt.Sprintf("manager: JumpToRegion called for uncompiled pc=%#x", pc))
	}
	return oi.Addr(e(regs, mem, int32(pc)))
}
