// Package ssa implements the portable, SSA-based compiler IR component C
// lifts an OI region into: one function per region entry point, whose
// control-flow graph mirrors the guest region and whose side effects are
// expressed against explicit guest-register and guest-memory buffers.
//
// IR entities are addressed by stable arena index rather than by pointer
// (spec's Design Notes), so that block splitting and branch patching —
// which in the original mutate raw LLVM pointers in place — become index
// rewrites over a Pool[T] instead.
package ssa

// Type is the SSA-level type of a Value: the width/kind of the register
// or memory element an instruction reads or writes.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeI32
	TypeI64
	TypeF32
	TypeF64
)

func (t Type) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	default:
		return "invalid"
	}
}

// Value identifies the result produced by an instruction. The zero value,
// ValueInvalid, never names a real result.
type Value uint32

const ValueInvalid Value = 0

// Valid reports whether v names a real instruction result.
func (v Value) Valid() bool { return v != ValueInvalid }

// InstID is the arena index of an Instruction within a Function's
// instruction pool.
type InstID uint32

// BlockID is the arena index of a BasicBlock within a Function's block
// pool. Block 0 is always the function's entry block.
type BlockID uint32

const EntryBlock BlockID = 0

// InstRef locates a guest PC's first-lowered instruction by (block,
// index-within-block) rather than by pointer — the arena-indexed
// replacement for the source's IRMemoryMap entries.
type InstRef struct {
	Block BlockID
	Inst  InstID
}
