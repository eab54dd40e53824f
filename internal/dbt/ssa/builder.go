package ssa

// Builder provides the incremental, one-instruction-at-a-time
// construction API the frontend drives while walking a region's
// instructions in order — mirroring wazero's ssa.Builder, adapted so that
// "inserting at the current position" means appending to the current
// block's instruction list in an arena rather than a linked list.
type Builder struct {
	Func *Function
	cur  BlockID

	nextValue Value
}

// NewBuilder returns a Builder positioned at fn's entry block.
func NewBuilder(fn *Function) *Builder {
	return &Builder{Func: fn, cur: EntryBlock, nextValue: 1}
}

// SetBlock repositions subsequent Emit calls to append to block id.
func (b *Builder) SetBlock(id BlockID) { b.cur = id }

// CurrentBlock returns the block Emit currently appends to.
func (b *Builder) CurrentBlock() BlockID { return b.cur }

// allocValue returns a fresh, never-reused Value ID.
func (b *Builder) allocValue() Value {
	v := b.nextValue
	b.nextValue++
	return v
}

// emit appends inst to the current block and returns its InstID.
func (b *Builder) emit(inst Instruction) InstID {
	id, slot := b.Func.insts.Allocate()
	*slot = inst
	blk := b.Func.Block(b.cur)
	blk.insts = append(blk.insts, InstID(id))
	return InstID(id)
}

// Emit appends a side-effecting or result-producing instruction (anything
// but a terminator) and returns the Value it produces, or ValueInvalid if
// it produces none (e.g. OpRegStore, OpStore).
func (b *Builder) Emit(op Opcode, typ Type, args [2]Value, imm64 int64, producesResult bool) (InstID, Value) {
	var result Value
	if producesResult {
		result = b.allocValue()
	}
	id := b.emit(Instruction{Op: op, Type: typ, Args: args, Imm64: imm64, Result: result})
	return id, result
}

// Iconst emits an integer constant.
func (b *Builder) Iconst(typ Type, v int64) Value {
	_, r := b.Emit(OpIconst, typ, [2]Value{}, v, true)
	return r
}

// RegLoad emits a read of guest register reg, typed typ (I32 for GPR,
// F32/F64 for the float-register view). Register 0 is hardwired to the
// constant zero (spec §4.C): reading it never touches the register file,
// matching the guest ISA's r0 convention. Stores to register 0 are not
// special-cased here — RegStore still emits them, harmlessly, per spec.
func (b *Builder) RegLoad(reg int, typ Type) Value {
	if reg == 0 {
		return b.Iconst(typ, 0)
	}
	_, r := b.Emit(OpRegLoad, typ, [2]Value{}, int64(reg), true)
	return r
}

// RegStore emits a write of v into guest register reg.
func (b *Builder) RegStore(reg int, typ Type, v Value) {
	b.emit(Instruction{Op: OpRegStore, Type: typ, Args: [2]Value{v}, Imm64: int64(reg)})
}

// Load emits a guest data-memory read of the given width/signedness at
// address addr (already offset-translated by the frontend).
func (b *Builder) Load(typ Type, addr Value, width int, signed bool) Value {
	_, r := b.Emit(OpLoad, typ, [2]Value{addr}, PackLoadImm(width, signed), true)
	return r
}

// Store emits a guest data-memory write of val at addr, with the given
// width.
func (b *Builder) Store(addr, val Value, width int) {
	b.emit(Instruction{Op: OpStore, Args: [2]Value{addr, val}, Imm64: PackLoadImm(width, false)})
}

// BinOp emits a two-operand instruction and returns its result.
func (b *Builder) BinOp(op Opcode, typ Type, x, y Value) Value {
	_, r := b.Emit(op, typ, [2]Value{x, y}, 0, true)
	return r
}

// UnOp emits a one-operand instruction and returns its result.
func (b *Builder) UnOp(op Opcode, typ Type, x Value) Value {
	_, r := b.Emit(op, typ, [2]Value{x}, 0, true)
	return r
}

// UnOpImm emits a one-operand instruction carrying an immediate (e.g.
// OpSextFromWidth, OpExtractBits) and returns its result.
func (b *Builder) UnOpImm(op Opcode, typ Type, x Value, imm int64) Value {
	_, r := b.Emit(op, typ, [2]Value{x}, imm, true)
	return r
}

// Jump terminates the current block with an unconditional branch to
// target, and records the predecessor/successor edge.
func (b *Builder) Jump(target BlockID) {
	b.emit(Instruction{Op: OpJump, Targets: []BlockID{target}})
	b.link(b.cur, target)
}

// Branch terminates the current block on cond, jumping to taken if zero
// (brz) and nonzero (brnz) respectively, and falling through to
// notTaken otherwise.
func (b *Builder) Branch(brz bool, cond Value, taken, notTaken BlockID) {
	op := OpBrnz
	if brz {
		op = OpBrz
	}
	b.emit(Instruction{Op: op, Args: [2]Value{cond}, Targets: []BlockID{taken, notTaken}})
	b.link(b.cur, taken)
	b.link(b.cur, notTaken)
}

// Switch terminates the current block, dispatching on val to the block
// paired with a matching entry in vals, or to def if none match.
func (b *Builder) Switch(val Value, def BlockID, vals []int64, dests []BlockID) {
	targets := append([]BlockID{def}, dests...)
	b.emit(Instruction{Op: OpSwitch, Args: [2]Value{val}, Targets: targets, SwitchVals: append([]int64{}, vals...)})
	for _, t := range targets {
		b.link(b.cur, t)
	}
}

// Return terminates the current block, yielding pc as the guest address
// execution resumes at outside this function.
func (b *Builder) Return(pc Value) {
	b.emit(Instruction{Op: OpReturn, Args: [2]Value{pc}})
}

// CallDirect emits a call to the function entered at calleeEntry (known,
// per the frontend's caller, to live in the same module), returning the
// guest PC the callee actually returned to.
func (b *Builder) CallDirect(calleeEntry Addr) Value {
	_, r := b.Emit(OpCallDirect, TypeI32, [2]Value{}, int64(calleeEntry), true)
	return r
}

// CallIndirect emits a call through a dynamically computed target
// address, returning the guest PC the callee actually returned to.
func (b *Builder) CallIndirect(target Value) Value {
	_, r := b.Emit(OpCallIndirect, TypeI32, [2]Value{target}, 0, true)
	return r
}

func (b *Builder) link(from, to BlockID) {
	fromBlk := b.Func.Block(from)
	toBlk := b.Func.Block(to)
	fromBlk.Succs = append(fromBlk.Succs, to)
	toBlk.Preds = append(toBlk.Preds, from)
}

// Seal marks a block's predecessor set final.
func (b *Builder) Seal(id BlockID) { b.Func.Block(id).sealed = true }
