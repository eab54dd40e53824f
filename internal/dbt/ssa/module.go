package ssa

// Function is one compiled region: a control-flow graph of BasicBlocks
// sharing a single instruction arena. EntryPC is the guest address this
// function was formed from; ExtraEntries lists additional guest addresses
// that jump directly into the middle of this function's blocks (spec
// §4.C). frontend.Lower never fills it, so a lowered function has EntryPC
// as its only entry.
type Function struct {
	EntryPC      Addr
	ExtraEntries []Addr

	blocks Pool[BasicBlock]
	insts  Pool[Instruction]

	// entryByPC maps every guest_pc this function has a lowered
	// instruction for to that instruction's InstRef, the arena-indexed
	// stand-in for the source's IRMemoryMap.
	entryByPC map[Addr]InstRef

	blockOrder []BlockID // reverse postorder, set by LayoutBlocks
}

// NewFunction returns an empty Function rooted at entryPC.
func NewFunction(entryPC Addr) *Function {
	f := &Function{
		EntryPC:   entryPC,
		entryByPC: make(map[Addr]InstRef),
	}
	id, blk := f.blocks.Allocate()
	blk.id = BlockID(id)
	return f
}

// Block returns the BasicBlock for id.
func (f *Function) Block(id BlockID) *BasicBlock { return f.blocks.View(int(id)) }

// Inst returns the Instruction for id.
func (f *Function) Inst(id InstID) *Instruction { return f.insts.View(int(id)) }

// NumBlocks returns the number of blocks allocated so far.
func (f *Function) NumBlocks() int { return f.blocks.Len() }

// NumInsts returns the number of instructions allocated so far.
func (f *Function) NumInsts() int { return f.insts.Len() }

// CreateBlock allocates and returns a new, empty block.
func (f *Function) CreateBlock() BlockID {
	id, blk := f.blocks.Allocate()
	blk.id = BlockID(id)
	return BlockID(id)
}

// RecordPC associates guestPC with ref, the first time it is lowered.
// Later calls for the same PC are no-ops, matching the source's
// find-or-insert IRMemoryMap semantics.
func (f *Function) RecordPC(guestPC Addr, ref InstRef) {
	if _, ok := f.entryByPC[guestPC]; !ok {
		f.entryByPC[guestPC] = ref
	}
}

// Lookup returns the InstRef previously recorded for guestPC, if any.
func (f *Function) Lookup(guestPC Addr) (InstRef, bool) {
	ref, ok := f.entryByPC[guestPC]
	return ref, ok
}

// BlockOrder returns the block layout order computed by LayoutBlocks, or
// nil if it has not been run yet.
func (f *Function) BlockOrder() []BlockID { return f.blockOrder }

// EntryBlockFor returns the block a caller entering at guestPC should
// start execution in: the block of the first instruction RecordPC
// associated with guestPC, or the function's entry block if guestPC is
// unrecognized (treated as f.EntryPC itself).
func (f *Function) EntryBlockFor(guestPC Addr) BlockID {
	if ref, ok := f.entryByPC[guestPC]; ok {
		return ref.Block
	}
	return EntryBlock
}

// Module is a set of Functions produced from the same region-formation
// pass, compiled and optimized together so that direct calls between
// regions already resident in the module can be linked without a
// dispatch-table round trip (spec §4.C's "callee in the same module"
// case).
type Module struct {
	Funcs []*Function
}

// NewModule returns an empty Module.
func NewModule() *Module { return &Module{} }

// AddFunction appends fn to the module and returns it for chaining.
func (m *Module) AddFunction(fn *Function) *Function {
	m.Funcs = append(m.Funcs, fn)
	return fn
}

// FindFunction returns the Function whose EntryPC or ExtraEntries include
// pc, or nil.
func (m *Module) FindFunction(pc Addr) *Function {
	for _, fn := range m.Funcs {
		if fn.EntryPC == pc {
			return fn
		}
		for _, e := range fn.ExtraEntries {
			if e == pc {
				return fn
			}
		}
	}
	return nil
}
