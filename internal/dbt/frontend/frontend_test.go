package frontend_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenISA/oi-dbt/internal/dbt/backend"
	"github.com/OpenISA/oi-dbt/internal/dbt/dbttest"
	"github.com/OpenISA/oi-dbt/internal/dbt/frontend"
	"github.com/OpenISA/oi-dbt/internal/dbt/ssa"
	"github.com/OpenISA/oi-dbt/oi"
)

// fakeCallSites is a minimal frontend.CallSites for tests that don't need
// the manager's persistent, thread-safe implementation.
type fakeCallSites struct {
	m map[oi.Addr][]oi.Addr
}

func newFakeCallSites() *fakeCallSites { return &fakeCallSites{m: make(map[oi.Addr][]oi.Addr)} }

func (f *fakeCallSites) Record(callee, site oi.Addr) { f.m[callee] = append(f.m[callee], site) }
func (f *fakeCallSites) Lookup(callee oi.Addr) []oi.Addr { return f.m[callee] }

func compileRegion(t *testing.T, r oi.Region) backend.Entry {
	t.Helper()
	d := oi.StdDecoder{}
	fn, _, err := frontend.Lower(r, d)
	require.NoError(t, err)

	mod := ssa.NewModule()
	mod.AddFunction(fn)
	entries, err := backend.EvalCompiler{}.Compile(mod)
	require.NoError(t, err)
	entry, ok := entries[r.EntryPC]
	require.True(t, ok)
	return entry
}

func TestSingleAddRegion(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x1000,
		Insts: []oi.RegionInst{
			{PC: 0x1000, Word: oi.Encode(oi.Inst{Op: oi.OpAdd, RS: 1, RT: 2, RD: 3})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[1] = 7
	regs[2] = 35
	exitPC := entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(42), regs[3])
	require.Equal(t, int32(0x1004), exitPC)
}

func TestAddImmediateAndMemoryStore(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x2000,
		Insts: []oi.RegionInst{
			{PC: 0x2000, Word: oi.Encode(oi.Inst{Op: oi.OpAddi, RS: 1, RT: 2, Imm: 10})},
			{PC: 0x2004, Word: oi.Encode(oi.Inst{Op: oi.OpStw, RS: 3, RT: 2, Imm: 0})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[1] = 5
	regs[3] = 0
	mem := make([]byte, 64)
	exitPC := entry(&regs, mem, int32(r.EntryPC))

	require.Equal(t, int32(15), regs[2])
	require.Equal(t, int32(0x2008), exitPC)
	require.Equal(t, uint32(15), uint32(mem[0])|uint32(mem[1])<<8|uint32(mem[2])<<16|uint32(mem[3])<<24)
}

func TestConditionalBranchTakenExitsAtTakenTarget(t *testing.T) {
	// jeqz r1, +2  (taken -> pc+4+2*4 = entry+12)
	// addi r2, r2, 1  (fallthrough only)
	r := oi.Region{
		EntryPC: 0x3000,
		Insts: []oi.RegionInst{
			{PC: 0x3000, Word: oi.Encode(oi.Inst{Op: oi.OpJeqz, RS: 1, Imm: 2})},
			{PC: 0x3004, Word: oi.Encode(oi.Inst{Op: oi.OpAddi, RS: 2, RT: 2, Imm: 1})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[1] = 0 // zero, so jeqz is taken
	exitPC := entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(0x3000+12), exitPC)
	require.Equal(t, int32(0), regs[2]) // fallthrough body never ran
}

func TestConditionalBranchNotTakenFallsThrough(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x3100,
		Insts: []oi.RegionInst{
			{PC: 0x3100, Word: oi.Encode(oi.Inst{Op: oi.OpJeqz, RS: 1, Imm: 2})},
			{PC: 0x3104, Word: oi.Encode(oi.Inst{Op: oi.OpAddi, RS: 2, RT: 2, Imm: 1})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[1] = 5 // nonzero, jeqz not taken
	exitPC := entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(1), regs[2])
	require.Equal(t, int32(0x3108), exitPC)
}

// TestDivuWideningIsDiscarded pins the source's literal Divu behavior: the
// original computes 64-bit widened copies of the operands and then does
// not use them, dividing the 32-bit values instead, so this test
// documents that Divu behaves like a plain 32-bit unsigned divide
// (see DESIGN.md's Open Questions entry).
func TestDivuWideningIsDiscarded(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x3200,
		Insts: []oi.RegionInst{
			{PC: 0x3200, Word: oi.Encode(oi.Inst{Op: oi.OpDivu, RS: 1, RT: 2, RD: 3})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[1] = int32(uint32(100))
	regs[2] = int32(uint32(7))
	entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(uint32(100)/uint32(7)), regs[3])
}

// TestRegionDiscontinuityExitsBetweenSegments pins spec §8 scenario 4: a
// region buffer holding two non-adjacent straight-line segments must gain
// an exit returning the first segment's last_pc+4, not silently fall
// through into the second segment's guest code.
func TestRegionDiscontinuityExitsBetweenSegments(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x7000,
		Insts: []oi.RegionInst{
			{PC: 0x7000, Word: oi.Encode(oi.Inst{Op: oi.OpAddi, RS: 1, RT: 2, Imm: 1})},
			// Non-adjacent: a real gap, as NET would record when the
			// interpreter didn't actually fall through from 0x7004.
			{PC: 0x7100, Word: oi.Encode(oi.Inst{Op: oi.OpAddi, RS: 2, RT: 3, Imm: 1})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	exitPC := entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(1), regs[2]) // first segment ran
	require.Equal(t, int32(0), regs[3]) // second segment never ran
	require.Equal(t, int32(0x7004), exitPC)
}

// TestImproveIndirectBranchSpeculatesKnownReturn pins spec §8 scenario 3:
// once a call site is known against the enclosing function, a Jumpr whose
// runtime target matches that call site's return address branches
// directly to the block already lowered for it, instead of exiting to the
// interpreter.
func TestImproveIndirectBranchSpeculatesKnownReturn(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x5000,
		Insts: []oi.RegionInst{
			// Stands in for "the call site's return address": a
			// self-contained terminator so speculating into it can never
			// loop back into the Jumpr below.
			{PC: 0x5000, Word: oi.Encode(oi.Inst{Op: oi.OpSyscall})},
			{PC: 0x6000, Word: oi.Encode(oi.Inst{Op: oi.OpJumpr, RT: 1})},
		},
	}

	machine := dbttest.NewMachine(0, 0)
	machine.Methods[0x6000] = r.EntryPC // Jumpr belongs to this function

	sites := newFakeCallSites()
	sites.Record(r.EntryPC, 0x4FFC) // call site whose return address is 0x5000

	d := oi.StdDecoder{}
	fn, _, err := frontend.Lower(r, d, frontend.WithMachine(machine), frontend.WithCallSites(sites))
	require.NoError(t, err)

	mod := ssa.NewModule()
	mod.AddFunction(fn)
	entries, err := backend.EvalCompiler{}.Compile(mod)
	require.NoError(t, err)
	entry, ok := entries[0x6000]
	require.True(t, ok, "Jumpr's own PC must be a usable entry for this test to drive its block directly")

	var regs [oi.TotalRegSlots]int32
	regs[1] = 0x5000 // matches the known return address: speculation should fire
	exitPC := entry(&regs, nil, int32(0x6000))
	require.Equal(t, int32(0x5004), exitPC, "should have run the Syscall at 0x5000 and returned its next PC")

	regs[1] = 0x9999 // does not match any known return address: falls back
	exitPC = entry(&regs, nil, int32(0x6000))
	require.Equal(t, int32(0x9999), exitPC, "unknown target still exits to the interpreter with the computed PC")
}

func TestFusedMultiplyAddAndSubtract(t *testing.T) {
	// fmadd r4, r1, r2, r3 -> r4 = r1*r2 + r3
	// fmsub r5, r1, r2, r3 -> r5 = r1*r2 - r3
	r := oi.Region{
		EntryPC: 0x3400,
		Insts: []oi.RegionInst{
			{PC: 0x3400, Word: oi.Encode(oi.Inst{Op: oi.OpFMadd, RS: 1, RT: 2, RD: 4, RV: 3})},
			{PC: 0x3404, Word: oi.Encode(oi.Inst{Op: oi.OpFMsub, RS: 1, RT: 2, RD: 5, RV: 3})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[1] = int32(math.Float32bits(2))
	regs[2] = int32(math.Float32bits(3))
	regs[3] = int32(math.Float32bits(1))
	exitPC := entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(0x3408), exitPC)
	require.Equal(t, float32(7), math.Float32frombits(uint32(regs[4]))) // 2*3+1
	require.Equal(t, float32(5), math.Float32frombits(uint32(regs[5]))) // 2*3-1
}

// TestExtBitfieldExtract pins the Ext opcode's bitfield-extract semantics
// (original IREmitter.cpp's Ext): source RD, destination RV, with RS/RT
// giving the field's offset/width.
func TestExtBitfieldExtract(t *testing.T) {
	// ext rv=2, rd=1, rs=4 (offset), rt=3 (width-1, so a 4-bit field):
	// extract bits [4:7] of r1 into r2.
	r := oi.Region{
		EntryPC: 0x3500,
		Insts: []oi.RegionInst{
			{PC: 0x3500, Word: oi.Encode(oi.Inst{Op: oi.OpExt, RS: 4, RT: 3, RD: 1, RV: 2})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[1] = 0xF0 // bits [4:7] = 0xF, everything else 0
	exitPC := entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(0x3504), exitPC)
	require.Equal(t, int32(0xF), regs[2])
}

// TestFloatNegAndAbs pins the Negs/Abss lowering: source RT, destination RS
// (original IREmitter.cpp's Negs/Abss), unlike the RS/RT/RD convention most
// other opcodes use.
func TestFloatNegAndAbs(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x3600,
		Insts: []oi.RegionInst{
			{PC: 0x3600, Word: oi.Encode(oi.Inst{Op: oi.OpNegs, RS: 2, RT: 1})},
			{PC: 0x3604, Word: oi.Encode(oi.Inst{Op: oi.OpAbss, RS: 4, RT: 3})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[1] = int32(math.Float32bits(2.5))
	regs[3] = int32(math.Float32bits(-1.5))
	exitPC := entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(0x3608), exitPC)
	require.Equal(t, float32(-2.5), math.Float32frombits(uint32(regs[2])))
	require.Equal(t, float32(1.5), math.Float32frombits(uint32(regs[4])))
}

// TestIjmphiSetsHighBitsForIjmp pins the Ijmphi/Ijmp pairing (spec §3):
// Ijmphi sets IJMP_REG's high bits, the same way Ldihi pairs with Ldi, and
// a following Ijmp returns the register the original reads from — Inst.RT,
// not Inst.RS.
func TestIjmphiSetsHighBitsForIjmp(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x3700,
		Insts: []oi.RegionInst{
			{PC: 0x3700, Word: oi.Encode(oi.Inst{Op: oi.OpIjmphi, Imm: 1})},
			{PC: 0x3704, Word: oi.Encode(oi.Inst{Op: oi.OpIjmp, RT: 2})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	regs[2] = 0x4000
	exitPC := entry(&regs, nil, int32(r.EntryPC))

	require.Equal(t, int32(0x4000), exitPC, "Ijmp returns Inst.RT's value")
	require.Equal(t, int32(1<<16), regs[oi.RegIjmp], "Ijmphi must have set IJMP_REG's high bits")
}

func TestSyscallExitsRegionAtNextPC(t *testing.T) {
	r := oi.Region{
		EntryPC: 0x3300,
		Insts: []oi.RegionInst{
			{PC: 0x3300, Word: oi.Encode(oi.Inst{Op: oi.OpSyscall})},
		},
	}
	entry := compileRegion(t, r)

	var regs [oi.TotalRegSlots]int32
	exitPC := entry(&regs, nil, int32(r.EntryPC))
	require.Equal(t, int32(0x3304), exitPC)
}
