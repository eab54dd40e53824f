package oi

// Machine is the spec §6 external collaborator contract: the guest
// interpreter's register file, memory, and PC. Nothing in this repository
// implements Machine for production use — it is provided by the
// interpreter this core is embedded in. For tests, dbttest.Machine
// (internal/dbt/dbttest) is a concrete implementation.
type Machine interface {
	GetPC() Addr
	SetPC(Addr)
	GetLastPC() Addr

	GetRegister(i int) int32
	SetRegister(i int, v int32)

	// ByteMemory returns the backing guest data-memory buffer; guest
	// address a maps to ByteMemory()[a - DataMemOffset()].
	ByteMemory() []byte
	DataMemOffset() Addr

	// InstAt returns the raw 32-bit word at guest address pc.
	InstAt(pc Addr) Word

	// FindMethod returns the entry address of the guest function
	// containing pc, or 0 if unknown.
	FindMethod(pc Addr) Addr
}
