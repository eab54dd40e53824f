package oi

// Register file layout. Integer and float registers overlap the same
// backing array (RegType selects the cast applied at the element address);
// indices beyond the 64 general-purpose registers are synthetic slots used
// only by specific opcodes.
const (
	NumGPR = 64

	// SlotLdiTarget holds the register index (not its value) targeted by
	// the most recently lowered Ldi. The frontend writes it on every Ldi;
	// Ldihi loads it but does not use the loaded index (it writes its own
	// RT instead).
	SlotLdiTarget = 64
	// RegCC carries the result of the last FP compare, read by Bc1t/Bc1f
	// and by Movt/Movf.
	RegCC = 65
	// RegIjmp is indirect-jump scratch: Ijmphi ORs its high bits in. Ijmp
	// itself jumps through its RT register and does not read this slot.
	RegIjmp = 66

	TotalRegSlots = 67
)

// Word is a raw 32-bit guest instruction encoding.
type Word = uint32

// Addr is a 32-bit guest byte address.
type Addr = uint32

// Inst is a decoded OI instruction: an opcode tag plus the operand tuple
// (RS, RT, RD, RV, Imm, Addrs). Fields a variant does not use are zero.
type Inst struct {
	Op Opcode

	RS, RT, RD, RV uint8
	Imm            int32
	Addrs          uint32

	// RegWidth selects the typed register view (Int/Int64/Float/Double)
	// for opcodes whose operands may be float or double; zero value Int
	// is correct for every integer opcode.
	RegWidth RegType
	// Cond selects the relation tested by OpFCmp.
	Cond FPCond
	// MemWidth is the access width in bytes for load/store opcodes: 1
	// (byte), 2 (half), or 4 (word).
	MemWidth uint8
	// Signed selects sign- vs zero-extension for narrow loads.
	Signed bool
}

// IsControlFlowInst reports whether i can transfer control away from the
// next sequential guest address.
func IsControlFlowInst(i Inst) bool {
	switch i.Op {
	case OpJeqz, OpJnez, OpJeq, OpJne, OpJltz, OpJgez, OpJlez, OpJgtz,
		OpBc1t, OpBc1f, OpJump, OpJumpr, OpIjmp, OpCall, OpCallr, OpSyscall:
		return true
	default:
		return false
	}
}

// IsIndirectBranch reports whether i's target is not statically known from
// its encoding alone.
func IsIndirectBranch(i Inst) bool {
	switch i.Op {
	case OpJumpr, OpIjmp, OpCallr:
		return true
	default:
		return false
	}
}

// IsDirectBranch reports whether i is a conditional or unconditional
// branch/call whose target(s) are fully determined by its encoding.
func IsDirectBranch(i Inst) bool {
	switch i.Op {
	case OpJeqz, OpJnez, OpJeq, OpJne, OpJltz, OpJgez, OpJlez, OpJgtz,
		OpBc1t, OpBc1f, OpJump, OpCall:
		return true
	default:
		return false
	}
}

// GetPossibleTargets returns the up-to-two statically knowable successor
// addresses of a control-flow instruction at pc: index 0 is the taken
// target, index 1 the fallthrough. A 0 entry means "none" (spec §3's
// branch-target map convention). Indirect branches return both as 0 —
// their targets are runtime values, not static ones.
func GetPossibleTargets(pc Addr, i Inst) [2]Addr {
	var targets [2]Addr
	switch i.Op {
	case OpJump:
		targets[0] = (pc & 0xF0000000) | (i.Addrs << 2)
	case OpCall:
		targets[0] = (pc & 0xF0000000) | (uint32(i.Addrs) << 2)
		targets[1] = pc + 4
	case OpJeqz, OpJnez, OpJeq, OpJne, OpJltz, OpJgez, OpJlez, OpJgtz,
		OpBc1t, OpBc1f:
		targets[0] = uint32(int32(pc) + (i.Imm << 2) + 4)
		targets[1] = pc + 4
	default:
		// Indirect branches and non-branches: nothing statically known.
	}
	return targets
}
