// Package dbttest provides a minimal, in-memory oi.Machine used only by
// this module's own tests. The real Machine is an external collaborator
// (spec §6) supplied by whatever guest interpreter embeds this core;
// nothing under internal/dbt depends on this package outside of _test.go
// files.
package dbttest

import "github.com/OpenISA/oi-dbt/oi"

// Machine is a straight-line, single-threaded oi.Machine backed by plain
// Go slices, with no OS/syscall integration beyond what oi.SyscallBridge
// itself provides.
type Machine struct {
	Regs       [oi.TotalRegSlots]int32
	Mem        []byte
	PC, LastPC oi.Addr
	MemOffset  oi.Addr

	// Code maps guest PC to the raw instruction word there, the
	// in-memory analogue of InstAt reading guest text.
	Code map[oi.Addr]oi.Word

	// Methods maps any PC within a function to that function's entry,
	// backing FindMethod.
	Methods map[oi.Addr]oi.Addr
}

// NewMachine returns a Machine with memSize bytes of guest data memory
// starting at memOffset.
func NewMachine(memSize int, memOffset oi.Addr) *Machine {
	return &Machine{
		Mem:       make([]byte, memSize),
		MemOffset: memOffset,
		Code:      make(map[oi.Addr]oi.Word),
		Methods:   make(map[oi.Addr]oi.Addr),
	}
}

func (m *Machine) GetPC() oi.Addr     { return m.PC }
func (m *Machine) SetPC(pc oi.Addr)   { m.PC = pc }
func (m *Machine) GetLastPC() oi.Addr { return m.LastPC }

func (m *Machine) GetRegister(i int) int32 {
	if i == 0 {
		return 0
	}
	return m.Regs[i]
}

func (m *Machine) SetRegister(i int, v int32) {
	if i == 0 {
		return
	}
	m.Regs[i] = v
}

func (m *Machine) ByteMemory() []byte    { return m.Mem }
func (m *Machine) DataMemOffset() oi.Addr { return m.MemOffset }

func (m *Machine) InstAt(pc oi.Addr) oi.Word { return m.Code[pc] }

func (m *Machine) FindMethod(pc oi.Addr) oi.Addr { return m.Methods[pc] }

// LoadProgram installs insts into Code, keyed by PC, and records entry as
// the FindMethod result for every instruction in the range — convenient
// for tests that only have one function in play.
func (m *Machine) LoadProgram(entry oi.Addr, insts []oi.Word) {
	pc := entry
	for _, w := range insts {
		m.Code[pc] = w
		m.Methods[pc] = entry
		pc += 4
	}
}

// Advance executes one step of bookkeeping a real interpreter would do
// between instructions: LastPC becomes the PC the instruction executed
// at, and PC moves to next.
func (m *Machine) Advance(next oi.Addr) {
	m.LastPC = m.PC
	m.PC = next
}
