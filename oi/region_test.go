package oi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossImmediates(t *testing.T) {
	d := StdDecoder{}
	r1 := Region{
		EntryPC: 0x1000,
		Insts: []RegionInst{
			{PC: 0x1000, Word: Encode(Inst{Op: OpAddi, RS: 1, RT: 2, Imm: 5})},
			{PC: 0x1004, Word: Encode(Inst{Op: OpAddi, RS: 2, RT: 3, Imm: 9})},
		},
	}
	r2 := Region{
		EntryPC: 0x1000,
		Insts: []RegionInst{
			{PC: 0x1000, Word: Encode(Inst{Op: OpAddi, RS: 1, RT: 2, Imm: 999})},
			{PC: 0x1004, Word: Encode(Inst{Op: OpAddi, RS: 2, RT: 3, Imm: -1})},
		},
	}
	require.Equal(t, Fingerprint(r1, d), Fingerprint(r2, d), "DNA keys on opcode shape, not operand immediates")
}

func TestFingerprintDiffersByOpcodeSequence(t *testing.T) {
	d := StdDecoder{}
	r1 := Region{EntryPC: 0x2000, Insts: []RegionInst{{PC: 0x2000, Word: Encode(Inst{Op: OpAdd})}}}
	r2 := Region{EntryPC: 0x2000, Insts: []RegionInst{{PC: 0x2000, Word: Encode(Inst{Op: OpSub})}}}
	require.NotEqual(t, Fingerprint(r1, d), Fingerprint(r2, d))
}

func TestBuildBranchTargetMapSkipsIndirectBranches(t *testing.T) {
	d := StdDecoder{}
	r := Region{
		EntryPC: 0x100,
		Insts: []RegionInst{
			{PC: 0x100, Word: Encode(Inst{Op: OpJeqz, RS: 1, Imm: 2})},
			{PC: 0x104, Word: Encode(Inst{Op: OpJumpr, RS: 2})},
		},
	}
	m := BuildBranchTargetMap(r, d)
	_, hasDirect := m[0x100]
	_, hasIndirect := m[0x104]
	require.True(t, hasDirect)
	require.False(t, hasIndirect)
}
