// Package oi describes the guest instruction set ("OI") lifted by this
// translator, and the external contracts (Machine, Decoder, syscall bridge)
// the rest of the pipeline depends on without depending on a concrete guest
// interpreter.
package oi

// Opcode identifies the variant of a decoded OI instruction. The set below
// covers every category named in the instruction model (integer ALU,
// shifts, typed loads/stores, float/double arithmetic and compares,
// conditional/indirect/direct branches, calls, ijmp, syscall, nop, the
// ldi/ldihi pair, and the bitfield extract) and every mnemonic the lowering
// rules name explicitly. Mnemonics that differ only in operand width (e.g.
// the load family) each get their own constant; Decode derives the
// MemWidth/Signed fields on Inst from the opcode.
type Opcode uint32

const (
	OpInvalid Opcode = iota

	// Integer ALU.
	OpAdd
	OpAddi
	OpSub
	OpAnd
	OpAndi
	OpOr
	OpOri
	OpXor
	OpXori
	OpNor
	OpSlt
	OpSltu
	OpSlti
	OpSltiu
	OpMul
	OpMulu
	OpDiv
	OpDivu
	OpMod
	OpModu
	OpSeb
	OpSeh
	OpRor

	// Shifts (OpShlr/OpShrr/OpAsrr shift by the low 5 bits of a register).
	OpShl
	OpShr
	OpAsr
	OpShlr
	OpShrr
	OpAsrr
	OpExt // bitfield extract: RV = (RD >> RS) & ((1<<(RT+1))-1)

	// The Ldi/Ldihi pair.
	OpLdi
	OpLdihi

	// Typed memory access, one opcode per width; Decode sets MemWidth and
	// Signed on Inst from the opcode.
	OpLdw
	OpLdh
	OpLdb
	OpStw
	OpSth
	OpStb

	// Float/double arithmetic. Double selects the .d variant.
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFSqrt
	OpFMadd
	OpFMsub
	OpNegs
	OpNegd
	OpAbss
	OpAbsd

	// Float/double/int conversions.
	OpCvtds
	OpCvtdw
	OpCvtsw
	OpCvtsd

	// Float/double compare; writes CC_REG. Cond selects the relation.
	OpFCmp

	// Conditional register move, gated on CC_REG (t/f) or a GPR (z/n).
	OpMovz
	OpMovn
	OpMovt
	OpMovf

	// Float<->int register transfer and memory-mapped float load/store.
	OpMtc1
	OpMfc1
	OpMflc1
	OpMfhc1
	OpMtlc1
	OpMthc1
	OpTruncwd
	OpTruncws
	OpLdc1
	OpLwc1
	OpLwxc1
	OpLdxc1
	OpSwc1
	OpSwxc1
	OpSdc1
	OpSdxc1

	// Direct conditional/unconditional branches.
	OpJeqz
	OpJnez
	OpJeq
	OpJne
	OpJltz
	OpJgez
	OpJlez
	OpJgtz
	OpBc1t
	OpBc1f
	OpJump

	// Indirect control flow and calls.
	OpJumpr
	OpIjmp
	OpIjmphi
	OpCall
	OpCallr

	// Everything else.
	OpNop
	OpSyscall

	opcodeCount
)

// RegType selects which typed view of a register slot an instruction reads
// or writes: the integer and float register spaces overlap the same
// backing array, distinguished only by the cast applied at the element
// address.
type RegType uint8

const (
	Int RegType = iota
	Int64
	Float
	Double
)

// FPCond enumerates the relations OpFCmp can test.
type FPCond uint8

const (
	FCondEq FPCond = iota
	FCondLt
	FCondLe
	FCondUnordered
)

// String names an opcode for diagnostics; unknown opcodes never reach this
// path in production use (Decode never returns one), but diagnostics and
// tests want a readable label.
func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return "invalid"
}

var opcodeNames = [...]string{
	OpInvalid: "invalid", OpAdd: "add", OpAddi: "addi", OpSub: "sub",
	OpAnd: "and", OpAndi: "andi", OpOr: "or", OpOri: "ori", OpXor: "xor",
	OpXori: "xori", OpNor: "nor", OpSlt: "slt", OpSltu: "sltu",
	OpSlti: "slti", OpSltiu: "sltiu", OpMul: "mul", OpMulu: "mulu",
	OpDiv: "div", OpDivu: "divu", OpMod: "mod", OpModu: "modu",
	OpSeb: "seb", OpSeh: "seh", OpRor: "ror", OpShl: "shl", OpShr: "shr",
	OpAsr: "asr", OpShlr: "shlr", OpShrr: "shrr", OpAsrr: "asrr",
	OpExt: "ext", OpLdi: "ldi", OpLdihi: "ldihi", OpLdw: "ldw",
	OpLdh: "ldh", OpLdb: "ldb", OpStw: "stw", OpSth: "sth", OpStb: "stb",
	OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFDiv: "fdiv",
	OpFSqrt: "fsqrt", OpFMadd: "fmadd", OpFMsub: "fmsub", OpFCmp: "fcmp",
	OpNegs: "negs", OpNegd: "negd", OpAbss: "abss", OpAbsd: "absd",
	OpCvtds: "cvtds", OpCvtdw: "cvtdw", OpCvtsw: "cvtsw", OpCvtsd: "cvtsd",
	OpMovz: "movz", OpMovn: "movn", OpMovt: "movt", OpMovf: "movf",
	OpMtc1: "mtc1", OpMfc1: "mfc1", OpMflc1: "mflc1", OpMfhc1: "mfhc1",
	OpMtlc1: "mtlc1", OpMthc1: "mthc1", OpTruncwd: "truncwd",
	OpTruncws: "truncws", OpLdc1: "ldc1", OpLwc1: "lwc1",
	OpLwxc1: "lwxc1", OpLdxc1: "ldxc1", OpSwc1: "swc1", OpSwxc1: "swxc1",
	OpSdc1: "sdc1", OpSdxc1: "sdxc1", OpJeqz: "jeqz", OpJnez: "jnez",
	OpJeq: "jeq", OpJne: "jne", OpJltz: "jltz", OpJgez: "jgez",
	OpJlez: "jlez", OpJgtz: "jgtz", OpBc1t: "bc1t", OpBc1f: "bc1f",
	OpJump: "jump", OpJumpr: "jumpr", OpIjmp: "ijmp", OpIjmphi: "ijmphi",
	OpCall: "call", OpCallr: "callr", OpNop: "nop", OpSyscall: "syscall",
}
