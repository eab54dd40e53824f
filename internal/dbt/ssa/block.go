package ssa

// BasicBlock is a maximal straight-line run of instructions ending in
// exactly one terminator (OpJump/OpBrz/OpBrnz/OpSwitch/OpReturn). Blocks
// are referenced by BlockID; Preds/Succs are kept in sync by Builder as
// terminators are added, the arena-indexed replacement for the source's
// llvm::BasicBlock predecessor/successor iteration.
type BasicBlock struct {
	id    BlockID
	insts []InstID

	Preds []BlockID
	Succs []BlockID

	// GuestEntryPC is the guest address a block starts. No code in this
	// module sets it; the frontend maps guest addresses to blocks with
	// its own table instead.
	GuestEntryPC Addr
	hasGuestPC   bool

	sealed bool
}

// Addr mirrors oi.Addr without importing the oi package, avoiding a
// dependency cycle back from oi into ssa; the frontend converts between
// the two at its boundary.
type Addr = uint32

// ID returns the block's stable index.
func (b *BasicBlock) ID() BlockID { return b.id }

// Insts returns the block's instructions in order.
func (b *BasicBlock) Insts() []InstID { return b.insts }

// Sealed reports whether the block's predecessor set is final. Since this
// IR never needs block parameters (guest registers live in an aliased
// buffer, not SSA-promoted locals — see the frontend's doc comment),
// sealing has no role in phi resolution; no pass in this package
// consults it.
func (b *BasicBlock) Sealed() bool { return b.sealed }
