package oi

import (
	"bytes"
	"fmt"
	"os"
)

// SyscallNumber identifies a guest syscall, computed as guest_r4 - 4000
// (spec §6).
type SyscallNumber int32

const (
	SyscallExit  SyscallNumber = 1
	SyscallRead  SyscallNumber = 3
	SyscallWrite SyscallNumber = 4
	SyscallOpen  SyscallNumber = 5
	SyscallClose SyscallNumber = 6
	SyscallFstat SyscallNumber = 108
)

// UnsupportedSyscallError is fatal per spec §7 (exit code 2): the guest
// requested a syscall number this bridge doesn't implement.
type UnsupportedSyscallError struct {
	Number SyscallNumber
}

func (e *UnsupportedSyscallError) Error() string {
	return fmt.Sprintf("syscall (%d) not implemented", e.Number)
}

// SyscallBridge emulates guest OS calls against the host OS, following
// syscall.cpp's register convention: number in r4-4000, arguments in
// r5/r6/r7, return value in r2. Memory-pointer arguments are guest
// addresses and are translated by subtracting the machine's
// DataMemOffset.
type SyscallBridge struct {
	// ExitStatus is set by a successful Exit syscall.
	ExitStatus int32
	Exited     bool
}

// Handle processes the syscall requested by m's current register state.
// It returns an *UnsupportedSyscallError for any syscall number this
// bridge does not implement; the caller is expected to treat that as
// fatal per spec §7.
func (b *SyscallBridge) Handle(m Machine) error {
	num := SyscallNumber(m.GetRegister(4) - 4000)
	mem := m.ByteMemory()
	off := m.DataMemOffset()

	switch num {
	case SyscallExit:
		b.Exited = true
		b.ExitStatus = m.GetRegister(5)
		return nil

	case SyscallFstat:
		// Matches the source: always reports failure, never actually
		// stats the guest file descriptor.
		m.SetRegister(2, -1)
		return nil

	case SyscallRead:
		fd := m.GetRegister(5)
		addr := uint32(m.GetRegister(6)) - off
		n := int(m.GetRegister(7))
		if addr > uint32(len(mem)) || addr+uint32(n) > uint32(len(mem)) {
			m.SetRegister(2, -1)
			return nil
		}
		r, err := readFD(fd, mem[addr:addr+uint32(n)])
		if err != nil {
			m.SetRegister(2, -1)
			return nil
		}
		m.SetRegister(2, int32(r))
		return nil

	case SyscallWrite:
		fd := m.GetRegister(5)
		addr := uint32(m.GetRegister(6)) - off
		n := int(m.GetRegister(7))
		if addr > uint32(len(mem)) || addr+uint32(n) > uint32(len(mem)) {
			m.SetRegister(2, -1)
			return nil
		}
		r, err := writeFD(fd, mem[addr:addr+uint32(n)])
		if err != nil {
			m.SetRegister(2, -1)
			return nil
		}
		m.SetRegister(2, int32(r))
		return nil

	case SyscallOpen:
		nameAddr := uint32(m.GetRegister(5)) - off
		name, rest := cString(mem, nameAddr)
		mode, _ := cString(mem, rest)
		var r int32 = -1
		switch mode {
		case "r":
			if f, err := os.Open(name); err == nil {
				r = int32(f.Fd())
			}
		case "w":
			if f, err := os.Create(name); err == nil {
				r = int32(f.Fd())
			}
		}
		m.SetRegister(2, r)
		return nil

	case SyscallClose:
		fd := m.GetRegister(5)
		if err := closeFD(fd); err != nil {
			m.SetRegister(2, -1)
			return nil
		}
		m.SetRegister(2, 0)
		return nil

	default:
		return &UnsupportedSyscallError{Number: num}
	}
}

// cString reads a NUL-terminated string starting at offset off within mem,
// returning the string and the offset immediately after the terminator —
// the layout Open uses for its filename followed by a mode string.
func cString(mem []byte, off uint32) (string, uint32) {
	if off >= uint32(len(mem)) {
		return "", off
	}
	end := bytes.IndexByte(mem[off:], 0)
	if end < 0 {
		return string(mem[off:]), uint32(len(mem))
	}
	return string(mem[off : off+uint32(end)]), off + uint32(end) + 1
}

// readFD/writeFD/closeFD operate on a raw guest file descriptor via
// os.NewFile, avoiding a direct dependency on the syscall package for a
// single read/write/close.
func readFD(fd int32, p []byte) (int, error) {
	return os.NewFile(uintptr(fd), "").Read(p)
}

func writeFD(fd int32, p []byte) (int, error) {
	return os.NewFile(uintptr(fd), "").Write(p)
}

func closeFD(fd int32) error {
	f := os.NewFile(uintptr(fd), "")
	return f.Close()
}
