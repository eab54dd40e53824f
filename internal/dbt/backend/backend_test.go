package backend_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenISA/oi-dbt/internal/dbt/backend"
	"github.com/OpenISA/oi-dbt/internal/dbt/ssa"
	"github.com/OpenISA/oi-dbt/oi"
)

// TestDoubleRegisterRoundTripsAsConsecutivePair pins the register-pair
// convention for RegType Double (spec §4.C): a 64-bit float register view
// is stored across two adjacent 32-bit slots of the same int32 backing
// array, low half first, rather than needing its own storage class.
func TestDoubleRegisterRoundTripsAsConsecutivePair(t *testing.T) {
	fn := ssa.NewFunction(0x1000)
	b := ssa.NewBuilder(fn)

	x := b.RegLoad(1, ssa.TypeF64)
	b.RegStore(3, ssa.TypeF64, x)
	b.Return(b.Iconst(ssa.TypeI32, 0x1004))

	mod := ssa.NewModule()
	mod.AddFunction(fn)
	entries, err := backend.EvalCompiler{}.Compile(mod)
	require.NoError(t, err)
	entry := entries[0x1000]

	var regs [oi.TotalRegSlots]int32
	want := 3.5
	bits := math.Float64bits(want)
	regs[1] = int32(uint32(bits))
	regs[2] = int32(uint32(bits >> 32))

	exitPC := entry(&regs, nil, 0x1000)
	require.Equal(t, int32(0x1004), exitPC)

	gotBits := uint64(uint32(regs[3])) | uint64(uint32(regs[4]))<<32
	require.Equal(t, want, math.Float64frombits(gotBits))
}

// TestRegisterZeroLoadsAsConstantZero pins spec §4.C's register model: a
// load from register 0 always reads 0, regardless of what was last stored
// there, while a store to register 0 is still performed.
func TestRegisterZeroLoadsAsConstantZero(t *testing.T) {
	fn := ssa.NewFunction(0x9000)
	b := ssa.NewBuilder(fn)

	b.RegStore(0, ssa.TypeI32, b.Iconst(ssa.TypeI32, 77))
	x := b.RegLoad(0, ssa.TypeI32)
	b.RegStore(1, ssa.TypeI32, x)
	b.Return(b.Iconst(ssa.TypeI32, 0x9004))

	mod := ssa.NewModule()
	mod.AddFunction(fn)
	entries, err := backend.EvalCompiler{}.Compile(mod)
	require.NoError(t, err)
	entry := entries[0x9000]

	var regs [oi.TotalRegSlots]int32
	regs[0] = 55 // a prior write the load must ignore
	exitPC := entry(&regs, nil, 0x9000)

	require.Equal(t, int32(0x9004), exitPC)
	require.Equal(t, int32(0), regs[1], "register 0 must load as constant 0")
	require.Equal(t, int32(77), regs[0], "the store to register 0 is still performed")
}

// TestDoubleFaddUsesFullPrecision exercises a double-precision add through
// a register pair end to end, guarding against the low/high halves being
// truncated to a single 32-bit slot.
func TestDoubleFaddUsesFullPrecision(t *testing.T) {
	fn := ssa.NewFunction(0x2000)
	b := ssa.NewBuilder(fn)

	x := b.RegLoad(1, ssa.TypeF64)
	y := b.RegLoad(3, ssa.TypeF64)
	sum := b.BinOp(ssa.OpFadd, ssa.TypeF64, x, y)
	b.RegStore(5, ssa.TypeF64, sum)
	b.Return(b.Iconst(ssa.TypeI32, 0x2004))

	mod := ssa.NewModule()
	mod.AddFunction(fn)
	entries, err := backend.EvalCompiler{}.Compile(mod)
	require.NoError(t, err)
	entry := entries[0x2000]

	var regs [oi.TotalRegSlots]int32
	setDouble := func(reg int, v float64) {
		bits := math.Float64bits(v)
		regs[reg] = int32(uint32(bits))
		regs[reg+1] = int32(uint32(bits >> 32))
	}
	setDouble(1, 1.5)
	setDouble(3, 2.25)

	entry(&regs, nil, 0x2000)

	got := math.Float64frombits(uint64(uint32(regs[5])) | uint64(uint32(regs[6]))<<32)
	require.Equal(t, 3.75, got)
}
