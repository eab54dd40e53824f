// Package frontend implements component C's IR emitter: it lowers one
// formed oi.Region into an ssa.Function, porting IREmitter.cpp's
// generateInstIR per-opcode switch onto the arena-indexed SSA model (spec
// §4.C, §9). Guest registers are never promoted to SSA-local values the
// way a stack-machine frontend promotes locals — every OpRegLoad/
// OpRegStore in the emitted IR is a real access against the register
// array the caller supplies at Entry time, exactly as the source reads
// and writes its register array directly rather than through an
// alloca-based mem2reg candidate.
package frontend

import (
	"fmt"

	"github.com/OpenISA/oi-dbt/internal/dbt/ssa"
	"github.com/OpenISA/oi-dbt/oi"
)

// CallSites lets the frontend record direct-call sites as it lowers OpCall
// instructions, and consult sites previously recorded against a callee when
// lowering that callee's Jumpr/Ijmp — the improveIndirectBranch input (spec
// §4.C). Per the spec's Design Notes ("global/process-wide state... the
// redesign scopes them to the Manager"), this repository does not keep
// CallTargetList as a frontend-owned global: the manager owns the single
// persistent implementation and passes it into every Lower call via
// WithCallSites.
type CallSites interface {
	Record(callee, site oi.Addr)
	Lookup(callee oi.Addr) []oi.Addr
}

// Option configures an optional Lower input. The zero value of Lower's
// variadic opts (no options) lowers a region with no machine reference and
// no call-site speculation, which is sufficient for straight-line and
// direct-branch regions.
type Option func(*lowerer)

// WithMachine supplies the spec §6 Machine collaborator, used only for its
// FindMethod lookup during improveIndirectBranch.
func WithMachine(m oi.Machine) Option {
	return func(l *lowerer) { l.machine = m }
}

// WithCallSites supplies the manager's persistent call-site index, enabling
// improveIndirectBranch. Without it, Jumpr/Ijmp always falls back to
// returning the computed target to the interpreter.
func WithCallSites(cs CallSites) Option {
	return func(l *lowerer) { l.sites = cs }
}

// Lower builds an ssa.Function for region, using d to decode each word.
// It returns the function together with the branch-target map that
// oi.BuildBranchTargetMap derived from the region and that Lower used to
// wire the function's branch edges.
func Lower(region oi.Region, d oi.Decoder, opts ...Option) (*ssa.Function, oi.BranchTargetMap, error) {
	targets := oi.BuildBranchTargetMap(region, d)
	fn := ssa.NewFunction(region.EntryPC)

	l := &lowerer{
		fn:      fn,
		d:       d,
		targets: targets,
		blocks:  make(map[oi.Addr]ssa.BlockID),
		region:  region,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.blocks[region.EntryPC] = ssa.EntryBlock

	// Pre-create a block for every address any branch in the region can
	// land on, including the region's own entry, so branches resolve to
	// blocks inside this function. Lower does not record any of these
	// addresses in fn.ExtraEntries: EntryPC is the function's only entry.
	for _, t := range targets {
		l.blockFor(t.Taken)
		l.blockFor(t.Fallthrough)
	}

	if err := l.run(); err != nil {
		return nil, nil, err
	}
	ssa.LayoutBlocks(fn)
	return fn, targets, nil
}

type lowerer struct {
	fn      *ssa.Function
	d       oi.Decoder
	targets oi.BranchTargetMap
	blocks  map[oi.Addr]ssa.BlockID
	region  oi.Region
	b       *ssa.Builder

	machine oi.Machine
	sites   CallSites
}

// blockFor returns the block starting at addr, allocating one if this is
// the first reference to it. addr 0 is never a valid block address in
// this model (guest text starts above the zero page), so it is treated as
// "no target" and ignored.
func (l *lowerer) blockFor(addr oi.Addr) ssa.BlockID {
	if addr == 0 {
		return ssa.EntryBlock
	}
	if id, ok := l.blocks[addr]; ok {
		return id
	}
	id := l.fn.CreateBlock()
	l.blocks[addr] = id
	return id
}

func (l *lowerer) run() error {
	l.b = ssa.NewBuilder(l.fn)
	l.b.SetBlock(ssa.EntryBlock)

	insts := l.region.Insts
	var prevPC oi.Addr
	for i, ri := range insts {
		// Discontinuity check: if control reaches this point by simple
		// fallthrough from the previous instruction but this PC is also
		// the start of a block another branch targets, split here so the
		// predecessor edges stay accurate — without this, a later branch
		// into the middle of a block already being built would have to
		// retroactively splice it.
		if id, isTarget := l.blocks[ri.PC]; isTarget && i > 0 {
			prevTerminated := l.currentBlockTerminated()
			if !prevTerminated {
				l.b.Jump(id)
			}
			l.b.SetBlock(id)
		} else if i > 0 && ri.PC != prevPC+4 {
			// The region buffer itself skipped bytes here (NET recorded a
			// gap between two straight-line segments): falling through
			// would silently execute guest code this execution never
			// actually reached, so exit to the interpreter at the
			// previous instruction's natural successor and resume
			// lowering into a fresh block (spec §4.C, §8 scenario 4).
			if !l.currentBlockTerminated() {
				l.b.Return(l.b.Iconst(ssa.TypeI32, int64(prevPC+4)))
			}
			l.b.SetBlock(l.fn.CreateBlock())
		}
		l.fn.RecordPC(ri.PC, ssa.InstRef{Block: l.b.CurrentBlock(), Inst: ssa.InstID(len(l.fn.Block(l.b.CurrentBlock()).Insts()))})

		inst := l.d.Decode(ri.Word)
		if err := l.lowerOne(ri.PC, inst); err != nil {
			return err
		}
		prevPC = ri.PC
	}

	// Fell off the end of the region without hitting an explicit
	// terminator (e.g. the last instruction lowered was a plain ALU op):
	// return control to the interpreter at the next sequential PC.
	if !l.currentBlockTerminated() {
		last := insts[len(insts)-1]
		l.b.Return(l.b.Iconst(ssa.TypeI32, int64(last.PC+4)))
	}

	// Any block that was pre-created for a branch target outside the
	// region (so it never got a chance to be visited by the main loop
	// above) is an exit point: hand control back to the interpreter at
	// the guest address it names.
	for addr, id := range l.blocks {
		if id == ssa.EntryBlock && addr != l.region.EntryPC {
			continue // blockFor's addr-0 special case, not a real block
		}
		if len(l.fn.Block(id).Insts()) == 0 && id != ssa.EntryBlock {
			l.b.SetBlock(id)
			l.b.Return(l.b.Iconst(ssa.TypeI32, int64(addr)))
		}
	}
	return nil
}

func (l *lowerer) currentBlockTerminated() bool {
	blk := l.fn.Block(l.b.CurrentBlock())
	n := len(blk.Insts())
	if n == 0 {
		return false
	}
	return l.fn.Inst(blk.Insts()[n-1]).IsTerminator()
}

func (l *lowerer) lowerOne(pc oi.Addr, inst oi.Inst) error {
	b := l.b
	rt := func() int { return int(inst.RT) }
	rs := func() int { return int(inst.RS) }
	rd := func() int { return int(inst.RD) }
	rv := func() int { return int(inst.RV) }

	intTy := ssa.TypeI32
	switch inst.Op {
	case oi.OpAdd, oi.OpSub, oi.OpAnd, oi.OpOr, oi.OpXor, oi.OpNor,
		oi.OpSlt, oi.OpSltu, oi.OpMul, oi.OpMulu, oi.OpDiv, oi.OpDivu,
		oi.OpMod, oi.OpModu, oi.OpRor, oi.OpShl, oi.OpShr, oi.OpAsr:
		x := b.RegLoad(rs(), intTy)
		y := b.RegLoad(rt(), intTy)
		var v ssa.Value
		switch inst.Op {
		case oi.OpAdd:
			v = b.BinOp(ssa.OpIadd, intTy, x, y)
		case oi.OpSub:
			v = b.BinOp(ssa.OpIsub, intTy, x, y)
		case oi.OpAnd:
			v = b.BinOp(ssa.OpBand, intTy, x, y)
		case oi.OpOr:
			v = b.BinOp(ssa.OpBor, intTy, x, y)
		case oi.OpXor:
			v = b.BinOp(ssa.OpBxor, intTy, x, y)
		case oi.OpNor:
			v = b.UnOp(ssa.OpBnot, intTy, b.BinOp(ssa.OpBor, intTy, x, y))
		case oi.OpSlt:
			v = b.BinOp(ssa.OpIltS, intTy, x, y)
		case oi.OpSltu:
			v = b.BinOp(ssa.OpIltU, intTy, x, y)
		case oi.OpMul:
			v = b.BinOp(ssa.OpImulhs, intTy, x, y)
		case oi.OpMulu:
			// Only the low 32 bits of the product are stored, in RD; the
			// high half is not computed.
			v = b.BinOp(ssa.OpImul, intTy, x, y)
		case oi.OpDiv:
			v = b.BinOp(ssa.OpIdivs, intTy, x, y)
		case oi.OpDivu:
			v = b.BinOp(ssa.OpIdivu, intTy, x, y)
		case oi.OpMod:
			v = b.BinOp(ssa.OpIrems, intTy, x, y)
		case oi.OpModu:
			v = b.BinOp(ssa.OpIremu, intTy, x, y)
		case oi.OpRor:
			v = b.BinOp(ssa.OpRotr, intTy, x, y)
		case oi.OpShl:
			v = b.BinOp(ssa.OpShl, intTy, x, y)
		case oi.OpShr:
			v = b.BinOp(ssa.OpShru, intTy, x, y)
		case oi.OpAsr:
			v = b.BinOp(ssa.OpShrs, intTy, x, y)
		}
		b.RegStore(rd(), intTy, v)
		return nil

	case oi.OpAddi, oi.OpAndi, oi.OpOri, oi.OpXori, oi.OpSlti, oi.OpSltiu:
		x := b.RegLoad(rs(), intTy)
		y := b.Iconst(intTy, int64(inst.Imm))
		var v ssa.Value
		switch inst.Op {
		case oi.OpAddi:
			v = b.BinOp(ssa.OpIadd, intTy, x, y)
		case oi.OpAndi:
			v = b.BinOp(ssa.OpBand, intTy, x, y)
		case oi.OpOri:
			v = b.BinOp(ssa.OpBor, intTy, x, y)
		case oi.OpXori:
			v = b.BinOp(ssa.OpBxor, intTy, x, y)
		case oi.OpSlti:
			v = b.BinOp(ssa.OpIltS, intTy, x, y)
		case oi.OpSltiu:
			v = b.BinOp(ssa.OpIltU, intTy, x, y)
		}
		b.RegStore(rt(), intTy, v)
		return nil

	case oi.OpShlr, oi.OpShrr, oi.OpAsrr:
		x := b.RegLoad(rs(), intTy)
		sh := b.Iconst(intTy, int64(inst.Imm))
		op := ssa.OpShl
		if inst.Op == oi.OpShrr {
			op = ssa.OpShru
		} else if inst.Op == oi.OpAsrr {
			op = ssa.OpShrs
		}
		b.RegStore(rt(), intTy, b.BinOp(op, intTy, x, sh))
		return nil

	case oi.OpSeb:
		x := b.RegLoad(rs(), intTy)
		b.RegStore(rt(), intTy, b.UnOpImm(ssa.OpSextFromWidth, intTy, x, 8))
		return nil
	case oi.OpSeh:
		x := b.RegLoad(rs(), intTy)
		b.RegStore(rt(), intTy, b.UnOpImm(ssa.OpSextFromWidth, intTy, x, 16))
		return nil

	case oi.OpExt:
		// Bitfield extract (original IREmitter.cpp's Ext): source is RD,
		// destination is RV, and RS/RT give the field's offset/width — the
		// shift-left-then-logical-shift-right the source performs is
		// algebraically a plain (RD >> RS) & ((1<<(RT+1))-1).
		src := b.RegLoad(int(inst.RD), intTy)
		packed := (int64(inst.RS) << 8) | (int64(inst.RT) + 1)
		b.RegStore(int(inst.RV), intTy, b.UnOpImm(ssa.OpExtractBits, intTy, src, packed))
		return nil

	case oi.OpLdi:
		// The source's Ldi/Ldihi pair remembers which register slot Ldi
		// targeted (not its value) so a following Ldihi knows where to
		// OR the high half in; slot 64 tracking this is an Open Question
		// resolved in DESIGN.md by preserving the literal behavior.
		v := b.Iconst(intTy, int64(inst.Imm))
		b.RegStore(rt(), intTy, v)
		b.RegStore(oi.SlotLdiTarget, intTy, b.Iconst(intTy, int64(rt())))
		return nil
	case oi.OpLdihi:
		slot := b.RegLoad(oi.SlotLdiTarget, intTy)
		// Ldihi ORs Imm<<16 into the register named by its own RT. The
		// value loaded from SlotLdiTarget is not used, so the register
		// the last Ldi wrote is not consulted; the two agree only when
		// Ldihi names the same register as the preceding Ldi.
		_ = slot
		x := b.RegLoad(rt(), intTy)
		hi := b.Iconst(intTy, int64(inst.Imm)<<16)
		b.RegStore(rt(), intTy, b.BinOp(ssa.OpBor, intTy, x, hi))
		return nil

	case oi.OpLdw, oi.OpLdh, oi.OpLdb:
		base := b.RegLoad(rs(), intTy)
		off := b.Iconst(intTy, int64(inst.Imm))
		addr := b.BinOp(ssa.OpIadd, intTy, base, off)
		width, signed := widthOf(inst.Op)
		v := b.Load(intTy, addr, width, signed)
		b.RegStore(rt(), intTy, v)
		return nil

	case oi.OpStw, oi.OpSth, oi.OpStb:
		base := b.RegLoad(rs(), intTy)
		off := b.Iconst(intTy, int64(inst.Imm))
		addr := b.BinOp(ssa.OpIadd, intTy, base, off)
		val := b.RegLoad(rt(), intTy)
		width, _ := widthOf(inst.Op)
		b.Store(addr, val, width)
		return nil

	case oi.OpLdc1, oi.OpLwc1:
		base := b.RegLoad(rs(), intTy)
		off := b.Iconst(intTy, int64(inst.Imm))
		addr := b.BinOp(ssa.OpIadd, intTy, base, off)
		if inst.Op == oi.OpLwc1 {
			v := b.Load(intTy, addr, ssa.Width32, false)
			b.RegStore(rt(), intTy, v)
			return nil
		}
		l.lowerDoubleLoad(addr, rt())
		return nil

	case oi.OpLwxc1, oi.OpLdxc1:
		x := b.RegLoad(rs(), intTy)
		y := b.RegLoad(rt(), intTy)
		addr := b.BinOp(ssa.OpIadd, intTy, x, y)
		if inst.Op == oi.OpLwxc1 {
			v := b.Load(intTy, addr, ssa.Width32, false)
			b.RegStore(rd(), intTy, v)
			return nil
		}
		l.lowerDoubleLoad(addr, rd())
		return nil

	case oi.OpSwc1:
		base := b.RegLoad(rs(), intTy)
		off := b.Iconst(intTy, int64(inst.Imm))
		addr := b.BinOp(ssa.OpIadd, intTy, base, off)
		b.Store(addr, b.RegLoad(rt(), intTy), ssa.Width32)
		return nil

	case oi.OpSwxc1:
		x := b.RegLoad(rs(), intTy)
		y := b.RegLoad(rt(), intTy)
		addr := b.BinOp(ssa.OpIadd, intTy, x, y)
		b.Store(addr, b.RegLoad(rd(), intTy), ssa.Width32)
		return nil

	case oi.OpSdc1:
		base := b.RegLoad(rs(), intTy)
		off := b.Iconst(intTy, int64(inst.Imm))
		addr := b.BinOp(ssa.OpIadd, intTy, base, off)
		l.lowerDoubleStore(addr, rt())
		return nil

	case oi.OpSdxc1:
		x := b.RegLoad(rs(), intTy)
		y := b.RegLoad(rt(), intTy)
		addr := b.BinOp(ssa.OpIadd, intTy, x, y)
		l.lowerDoubleStore(addr, rd())
		return nil

	case oi.OpFAdd, oi.OpFSub, oi.OpFMul, oi.OpFDiv:
		ty := floatTypeOf(inst)
		x := b.RegLoad(rs(), ty)
		y := b.RegLoad(rt(), ty)
		b.RegStore(rd(), ty, b.BinOp(floatOp(inst.Op), ty, x, y))
		return nil

	case oi.OpFSqrt:
		ty := floatTypeOf(inst)
		x := b.RegLoad(rs(), ty)
		b.RegStore(rd(), ty, b.UnOp(ssa.OpFsqrt, ty, x))
		return nil

	case oi.OpFMadd, oi.OpFMsub:
		ty := floatTypeOf(inst)
		x := b.RegLoad(rs(), ty)
		y := b.RegLoad(rt(), ty)
		z := b.RegLoad(rv(), ty)
		prod := b.BinOp(ssa.OpFmul, ty, x, y)
		combineOp := ssa.OpFadd
		if inst.Op == oi.OpFMsub {
			combineOp = ssa.OpFsub
		}
		b.RegStore(rd(), ty, b.BinOp(combineOp, ty, prod, z))
		return nil

	case oi.OpNegs, oi.OpNegd:
		ty := floatTypeOf(inst)
		x := b.RegLoad(rt(), ty)
		b.RegStore(rs(), ty, b.UnOp(ssa.OpFneg, ty, x))
		return nil

	case oi.OpAbss, oi.OpAbsd:
		ty := floatTypeOf(inst)
		x := b.RegLoad(rt(), ty)
		b.RegStore(rs(), ty, b.UnOp(ssa.OpFabs, ty, x))
		return nil

	case oi.OpCvtds:
		x := b.RegLoad(rt(), ssa.TypeF32)
		b.RegStore(rs(), ssa.TypeF64, b.UnOp(ssa.OpF32ToF64, ssa.TypeF64, x))
		return nil

	case oi.OpCvtsd:
		x := b.RegLoad(rt(), ssa.TypeF64)
		b.RegStore(rs(), ssa.TypeF32, b.UnOp(ssa.OpF64ToF32, ssa.TypeF32, x))
		return nil

	case oi.OpCvtdw:
		bits := b.RegLoad(rt(), ssa.TypeF32)
		asInt := b.UnOp(ssa.OpBitcastF2I, intTy, bits)
		b.RegStore(rs(), ssa.TypeF64, b.UnOp(ssa.OpSIToFP, ssa.TypeF64, asInt))
		return nil

	case oi.OpCvtsw:
		bits := b.RegLoad(rt(), ssa.TypeF32)
		asInt := b.UnOp(ssa.OpBitcastF2I, intTy, bits)
		b.RegStore(rs(), ssa.TypeF32, b.UnOp(ssa.OpSIToFP, ssa.TypeF32, asInt))
		return nil

	case oi.OpFCmp:
		ty := floatTypeOf(inst)
		x := b.RegLoad(rs(), ty)
		y := b.RegLoad(rt(), ty)
		_, v := b.Emit(ssa.OpFcmp, intTy, [2]ssa.Value{x, y}, int64(inst.Cond), true)
		b.RegStore(oi.RegCC, intTy, v)
		return nil

	case oi.OpMtc1, oi.OpMtlc1, oi.OpMthc1:
		x := b.RegLoad(rs(), intTy)
		b.RegStore(rt(), ssa.TypeF32, b.UnOp(ssa.OpBitcastI2F, ssa.TypeF32, x))
		return nil
	case oi.OpMfc1, oi.OpMflc1, oi.OpMfhc1:
		x := b.RegLoad(rs(), ssa.TypeF32)
		b.RegStore(rt(), intTy, b.UnOp(ssa.OpBitcastF2I, intTy, x))
		return nil

	case oi.OpTruncwd, oi.OpTruncws:
		ty := floatTypeOf(inst)
		x := b.RegLoad(rs(), ty)
		asInt := b.UnOp(ssa.OpFPToSI, intTy, x)
		// The original then bitcasts the truncated integer's bit pattern
		// back into a float register rather than leaving it as an
		// integer — an odd but literal behavior this keeps (spec §9).
		b.RegStore(rd(), ssa.TypeF32, b.UnOp(ssa.OpBitcastI2F, ssa.TypeF32, asInt))
		return nil

	case oi.OpMovz, oi.OpMovn, oi.OpMovt, oi.OpMovf:
		return l.lowerCondMove(pc, inst)

	case oi.OpJeqz, oi.OpJnez, oi.OpJltz, oi.OpJgez, oi.OpJlez, oi.OpJgtz:
		x := b.RegLoad(rs(), intTy)
		zero := b.Iconst(intTy, 0)
		var cond ssa.Value
		brz := false
		switch inst.Op {
		case oi.OpJeqz:
			cond, brz = x, true
		case oi.OpJnez:
			cond, brz = x, false
		case oi.OpJltz:
			cond = b.BinOp(ssa.OpIltS, intTy, x, zero)
			brz = false
		case oi.OpJgez:
			cond = b.BinOp(ssa.OpIltS, intTy, x, zero)
			brz = true
		case oi.OpJlez:
			cond = b.BinOp(ssa.OpIltS, intTy, zero, x)
			brz = true
		case oi.OpJgtz:
			cond = b.BinOp(ssa.OpIltS, intTy, zero, x)
			brz = false
		}
		l.emitCondBranch(pc, inst, cond, brz)
		return nil

	case oi.OpJeq, oi.OpJne:
		x := b.RegLoad(rs(), intTy)
		y := b.RegLoad(rt(), intTy)
		cond := b.BinOp(ssa.OpIeq, intTy, x, y)
		l.emitCondBranch(pc, inst, cond, inst.Op == oi.OpJne)
		return nil

	case oi.OpBc1t, oi.OpBc1f:
		cc := b.RegLoad(oi.RegCC, intTy)
		l.emitCondBranch(pc, inst, cc, inst.Op == oi.OpBc1f)
		return nil

	case oi.OpJump:
		targets := oi.GetPossibleTargets(pc, inst)
		b.Jump(l.blockFor(targets[0]))
		return nil

	case oi.OpCall:
		targets := oi.GetPossibleTargets(pc, inst)
		if l.sites != nil {
			// CallTargetList[target] ∪= {site} (spec §4.C): recorded so a
			// later Jumpr lowered for the callee function — possibly in a
			// separate compilation job — can speculate on this call's
			// return address via improveIndirectBranch.
			l.sites.Record(targets[0], pc)
		}
		ret := b.CallDirect(targets[0])
		// The region ends at the call: it returns to the interpreter at
		// the PC the call value yields (the callee's entry in the
		// reference backend). The fallthrough address is not used.
		b.Return(ret)
		_ = targets[1]
		return nil

	case oi.OpJumpr, oi.OpIjmp:
		// The original (IREmitter.cpp:1222-1305) reads the target register
		// from Inst.RT for both Jumpr and Ijmp, not Inst.RS.
		if l.improveIndirectBranch(pc, rt()) {
			return nil
		}
		target := b.RegLoad(rt(), intTy)
		b.Return(target)
		return nil

	case oi.OpIjmphi:
		// Pairs with Ijmp the way Ldihi pairs with Ldi: sets the high bits
		// of the accumulating IJMP_REG scratch register (IREmitter.cpp:
		// 482-486).
		lo := b.RegLoad(oi.RegIjmp, intTy)
		hi := b.Iconst(intTy, int64(inst.Imm)<<16)
		b.RegStore(oi.RegIjmp, intTy, b.BinOp(ssa.OpBor, intTy, lo, hi))
		return nil

	case oi.OpCallr:
		// Also Inst.RT per the original (IREmitter.cpp:1270-1285).
		target := b.RegLoad(rt(), intTy)
		ret := b.CallIndirect(target)
		b.Return(ret)
		return nil

	case oi.OpNop:
		return nil

	case oi.OpSyscall:
		// Syscalls always exit the compiled region: the interpreter owns
		// the oi.SyscallBridge, so the compiled code's job is only to
		// hand back the PC following the syscall instruction.
		b.Return(b.Iconst(intTy, int64(pc+4)))
		return nil

	default:
		return fmt.Errorf("frontend: unhandled opcode %v at pc=%#x", inst.Op, pc)
	}
}

// improveIndirectBranch implements spec §4.C's indirect-return speculation.
// It looks up the guest function a Jumpr/Ijmp at pc belongs to, consults
// every call site previously recorded against that function, and — for
// each candidate return address (call site + 4) that this same region
// already lowered an instruction for — rewrites the return into a switch
// with one case per candidate, branching directly to the block containing
// that return PC instead of exiting to the interpreter. The default case
// (and the fallback when no candidate matches) still returns the
// dynamically computed target, exactly as an unspeculated Jumpr would.
// Returns false (having emitted nothing) when speculation is not
// possible, so the caller falls back to the plain lowering.
func (l *lowerer) improveIndirectBranch(pc oi.Addr, regIdx int) bool {
	if l.machine == nil || l.sites == nil {
		return false
	}
	funcEntry := l.machine.FindMethod(pc)
	if funcEntry == 0 {
		return false
	}
	sites := l.sites.Lookup(funcEntry)
	if len(sites) == 0 {
		return false
	}

	var vals []int64
	var dests []ssa.BlockID
	seen := make(map[oi.Addr]bool)
	for _, site := range sites {
		ret := site + 4
		if seen[ret] {
			continue
		}
		ref, ok := l.fn.Lookup(ret)
		if !ok {
			continue
		}
		seen[ret] = true
		vals = append(vals, int64(ret))
		dests = append(dests, ref.Block)
	}
	if len(vals) == 0 {
		return false
	}

	b := l.b
	target := b.RegLoad(regIdx, ssa.TypeI32)
	def := l.fn.CreateBlock()
	b.Switch(target, def, vals, dests)
	b.SetBlock(def)
	b.Return(target)
	return true
}

// lowerCondMove implements Movz/Movn/Movt/Movf as an actual branch to a
// block that performs the register write, then a merge block, matching
// the source's codegen (which never synthesizes a select instruction for
// conditional moves) rather than introducing an ssa.OpSelect this IR
// otherwise has no use for.
func (l *lowerer) lowerCondMove(pc oi.Addr, inst oi.Inst) error {
	b := l.b
	intTy := ssa.TypeI32

	var cond ssa.Value
	brz := false
	switch inst.Op {
	case oi.OpMovz:
		cond, brz = b.RegLoad(int(inst.RT), intTy), false
	case oi.OpMovn:
		cond, brz = b.RegLoad(int(inst.RT), intTy), true
	case oi.OpMovt:
		cond, brz = b.RegLoad(oi.RegCC, intTy), true
	case oi.OpMovf:
		cond, brz = b.RegLoad(oi.RegCC, intTy), false
	}

	writeBlk := l.fn.CreateBlock()
	mergeBlk := l.fn.CreateBlock()
	b.Branch(brz, cond, mergeBlk, writeBlk)

	b.SetBlock(writeBlk)
	v := b.RegLoad(int(inst.RS), intTy)
	b.RegStore(int(inst.RD), intTy, v)
	b.Jump(mergeBlk)

	b.SetBlock(mergeBlk)
	return nil
}

// lowerDoubleLoad reads the 64-bit guest word at addr as a little-endian
// pair of 32-bit halves into the adjacent float-register pair (reg, reg+1),
// matching the MIPS-style convention that a double occupies two consecutive
// single-precision slots in the same backing array (spec §4.C register
// model) rather than needing a distinct 64-bit register storage class.
func (l *lowerer) lowerDoubleLoad(addr ssa.Value, reg int) {
	b := l.b
	intTy := ssa.TypeI32
	lo := b.Load(intTy, addr, ssa.Width32, false)
	hiAddr := b.BinOp(ssa.OpIadd, intTy, addr, b.Iconst(intTy, 4))
	hi := b.Load(intTy, hiAddr, ssa.Width32, false)
	b.RegStore(reg, intTy, lo)
	b.RegStore(reg+1, intTy, hi)
}

// lowerDoubleStore is lowerDoubleLoad's inverse, used by Sdc1/Sdxc1.
func (l *lowerer) lowerDoubleStore(addr ssa.Value, reg int) {
	b := l.b
	intTy := ssa.TypeI32
	b.Store(addr, b.RegLoad(reg, intTy), ssa.Width32)
	hiAddr := b.BinOp(ssa.OpIadd, intTy, addr, b.Iconst(intTy, 4))
	b.Store(hiAddr, b.RegLoad(reg+1, intTy), ssa.Width32)
}

// emitCondBranch terminates the current block on cond (brz selects
// "branch if zero"), wiring the taken/fallthrough edges from the
// region's precomputed branch-target map rather than recomputing them.
func (l *lowerer) emitCondBranch(pc oi.Addr, inst oi.Inst, cond ssa.Value, brz bool) {
	t := l.targets[pc]
	taken := l.blockFor(t.Taken)
	fall := l.blockFor(t.Fallthrough)
	l.b.Branch(brz, cond, taken, fall)
}

func widthOf(op oi.Opcode) (width int, signed bool) {
	switch op {
	case oi.OpLdb:
		return ssa.Width8, true
	case oi.OpStb:
		return ssa.Width8, false
	case oi.OpLdh:
		return ssa.Width16, true
	case oi.OpSth:
		return ssa.Width16, false
	default:
		return ssa.Width32, false
	}
}

func floatTypeOf(inst oi.Inst) ssa.Type {
	if inst.RegWidth == oi.Double {
		return ssa.TypeF64
	}
	return ssa.TypeF32
}

func floatOp(op oi.Opcode) ssa.Opcode {
	switch op {
	case oi.OpFAdd:
		return ssa.OpFadd
	case oi.OpFSub:
		return ssa.OpFsub
	case oi.OpFMul:
		return ssa.OpFmul
	case oi.OpFDiv:
		return ssa.OpFdiv
	default:
		return ssa.OpInvalid
	}
}
