package oi

import "hash/fnv"

// RegionInst is one (guest_pc, raw_word) pair, the element type of an OI
// region per spec §3.
type RegionInst struct {
	PC   Addr
	Word Word
}

// Region is an ordered sequence of decoded guest instructions treated as
// one compilation unit. Straight-line segments advance guest_pc in steps
// of 4; a region may contain more than one such segment when formation hit
// a discontinuity (spec §4.C's discontinuity check / §8 scenario 4).
type Region struct {
	EntryPC Addr
	Insts   []RegionInst
}

// BranchTargets is the per-guest-pc entry of the branch-target map: the
// taken and fallthrough destinations of a control-flow instruction. A zero
// value for either means "none" (spec §3).
type BranchTargets struct {
	Taken, Fallthrough Addr
}

// BranchTargetMap maps a branch's guest_pc to its possible destinations.
type BranchTargetMap map[Addr]BranchTargets

// BuildBranchTargetMap derives the branch-target map for a region from its
// decoded control-flow instructions, using d to decode and classify each
// word.
func BuildBranchTargetMap(r Region, d Decoder) BranchTargetMap {
	m := make(BranchTargetMap)
	for _, ri := range r.Insts {
		inst := d.Decode(ri.Word)
		if !d.IsControlFlowInst(inst) || d.IsIndirectBranch(inst) {
			continue
		}
		t := d.GetPossibleTargets(ri.PC, inst)
		m[ri.PC] = BranchTargets{Taken: t[0], Fallthrough: t[1]}
	}
	return m
}

// DNA is a region fingerprint: a stable identity derived from the region's
// entry address and ordered opcode stream, used as the AOS database key
// (spec §3, §6). Two regions with the same entry and the same opcode
// sequence (regardless of operand immediates) share a DNA, since the
// optimization plan AOS picks depends on shape, not literal constants.
type DNA uint64

// Fingerprint computes a region's DNA.
func Fingerprint(r Region, d Decoder) DNA {
	h := fnv.New64a()
	var buf [4]byte
	putU32 := func(v uint32) {
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v >> 16)
		buf[3] = byte(v >> 24)
		_, _ = h.Write(buf[:])
	}
	putU32(r.EntryPC)
	for _, ri := range r.Insts {
		putU32(uint32(d.Decode(ri.Word).Op))
	}
	return DNA(h.Sum64())
}
