// Package rft implements component B, region formation: the Next
// Executing Tail (NET) algorithm that watches the interpreter's branch
// stream and decides when a hot sequence of guest instructions has become
// worth handing to the compiler pipeline. Ported from original_source's
// RFT/NET.cpp onBranch state machine.
package rft

import "github.com/OpenISA/oi-dbt/oi"

// Policy configures NET's sensitivity, mirroring Config's
// HotnessThreshold, RegionLimitSize and Relaxed fields (spec §3).
type Policy struct {
	// HotnessThreshold is the number of times a branch target must be
	// seen before NET starts recording a region from it.
	HotnessThreshold uint32
	// RegionLimitSize caps the number of instructions a single region
	// may accumulate before formation is forced to stop even without a
	// backward branch (a LIMITED-policy region).
	RegionLimitSize int
	// Relaxed allows formation to continue past a call instruction
	// instead of always treating it as a region boundary.
	Relaxed bool
}

// FormationKind records why a region's formation ended: on a backward
// branch (FormationBackwardBranch), or on reaching RegionLimitSize or a
// call boundary (FormationLimited). dbt.Runtime only logs it; the manager
// does not receive it.
type FormationKind int

const (
	FormationNone FormationKind = iota
	FormationBackwardBranch
	FormationLimited
)

// Net tracks, per guest PC, how many times a branch has landed there, and
// drives the single in-flight region-recording state machine. It is not
// safe for concurrent use; the interpreter that owns program counter
// advancement drives it from one goroutine.
type Net struct {
	policy Policy

	execFreq map[oi.Addr]uint32

	recording  bool
	entry      oi.Addr
	insts      []oi.RegionInst
	lastTarget oi.Addr
}

// NewNet returns a Net using policy.
func NewNet(policy Policy) *Net {
	return &Net{policy: policy, execFreq: make(map[oi.Addr]uint32)}
}

// OnBranch is called by the interpreter every time it executes a branch
// (including an unconditional jump or call), after the branch has been
// taken, with the instruction that branched, its decoded form, and the PC
// it landed on. It returns a completed Region and true when this call
// finished region formation, or ok=false if formation is still in
// progress (or never started).
func (n *Net) OnBranch(ri oi.RegionInst, inst oi.Inst, landedAt oi.Addr, d oi.Decoder) (oi.Region, FormationKind, bool) {
	if n.recording {
		n.insts = append(n.insts, ri)

		if landedAt == n.entry {
			return n.finish(FormationBackwardBranch)
		}
		if d.IsControlFlowInst(inst) && !n.policy.Relaxed && isCall(d, inst) {
			return n.finish(FormationLimited)
		}
		if n.policy.RegionLimitSize > 0 && len(n.insts) >= n.policy.RegionLimitSize {
			return n.finish(FormationLimited)
		}
		n.lastTarget = landedAt
		return oi.Region{}, FormationNone, false
	}

	n.execFreq[landedAt]++
	if n.execFreq[landedAt] >= n.policy.HotnessThreshold {
		n.start(landedAt)
	}
	return oi.Region{}, FormationNone, false
}

// Feed records a straight-line (non-branching) instruction into the
// region currently being formed. The interpreter calls this for every
// instruction it executes while Recording is true, between the branches
// that drive OnBranch.
func (n *Net) Feed(ri oi.RegionInst) {
	if n.recording {
		n.insts = append(n.insts, ri)
	}
}

// Recording reports whether a region is currently being formed.
func (n *Net) Recording() bool { return n.recording }

func (n *Net) start(entry oi.Addr) {
	n.recording = true
	n.entry = entry
	n.insts = nil
	n.lastTarget = entry
}

func (n *Net) finish(kind FormationKind) (oi.Region, FormationKind, bool) {
	r := oi.Region{EntryPC: n.entry, Insts: n.insts}
	n.recording = false
	n.insts = nil
	// Reset this entry's frequency so a just-compiled region's hot
	// counter doesn't immediately re-trigger formation before the
	// manager has had a chance to install it in the code cache.
	delete(n.execFreq, n.entry)
	return r, kind, true
}

func isCall(d oi.Decoder, inst oi.Inst) bool {
	return inst.Op == oi.OpCall || inst.Op == oi.OpCallr
}
