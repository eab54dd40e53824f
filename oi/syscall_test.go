package oi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMachine(mem []byte) *stubMachine {
	return &stubMachine{mem: mem}
}

// stubMachine is a minimal Machine used only to drive SyscallBridge in
// isolation, without pulling in the dbttest package (which itself depends
// on oi and would create an import cycle if used from oi's own tests).
type stubMachine struct {
	regs [8]int32
	mem  []byte
}

func (m *stubMachine) GetPC() Addr             { return 0 }
func (m *stubMachine) SetPC(Addr)              {}
func (m *stubMachine) GetLastPC() Addr         { return 0 }
func (m *stubMachine) GetRegister(i int) int32 { return m.regs[i] }
func (m *stubMachine) SetRegister(i int, v int32) { m.regs[i] = v }
func (m *stubMachine) ByteMemory() []byte      { return m.mem }
func (m *stubMachine) DataMemOffset() Addr     { return 0 }
func (m *stubMachine) InstAt(Addr) Word        { return 0 }
func (m *stubMachine) FindMethod(Addr) Addr    { return 0 }

func TestSyscallExitSetsStatus(t *testing.T) {
	m := newTestMachine(make([]byte, 16))
	m.SetRegister(4, 1+4000)
	m.SetRegister(5, 7)

	var b SyscallBridge
	require.NoError(t, b.Handle(m))
	require.True(t, b.Exited)
	require.Equal(t, int32(7), b.ExitStatus)
}

func TestSyscallUnsupportedIsError(t *testing.T) {
	m := newTestMachine(make([]byte, 16))
	m.SetRegister(4, 999+4000)

	var b SyscallBridge
	err := b.Handle(m)
	require.Error(t, err)
	var unsupported *UnsupportedSyscallError
	require.ErrorAs(t, err, &unsupported)
}

func TestSyscallOpenWriteCloseReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	mem := make([]byte, 256)
	nameOff, bufOff := 0, 96
	// Open reads the mode string directly after the filename's NUL.
	modeOff := nameOff + len(path) + 1
	copy(mem[nameOff:], append([]byte(path), 0))
	copy(mem[modeOff:], []byte("w\x00"))
	payload := []byte("hello")
	copy(mem[bufOff:], payload)

	m := newTestMachine(mem)
	var b SyscallBridge

	m.SetRegister(4, int32(SyscallOpen)+4000)
	m.SetRegister(5, int32(nameOff))
	require.NoError(t, b.Handle(m))
	fd := m.GetRegister(2)
	require.NotEqual(t, int32(-1), fd)

	m.SetRegister(4, int32(SyscallWrite)+4000)
	m.SetRegister(5, fd)
	m.SetRegister(6, int32(bufOff))
	m.SetRegister(7, int32(len(payload)))
	require.NoError(t, b.Handle(m))
	require.Equal(t, int32(len(payload)), m.GetRegister(2))

	m.SetRegister(4, int32(SyscallClose)+4000)
	m.SetRegister(5, fd)
	require.NoError(t, b.Handle(m))
	require.Equal(t, int32(0), m.GetRegister(2))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestSyscallReadWriteDoesNotCloseFDBetweenCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "multi.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()

	mem := make([]byte, 64)
	copy(mem[0:], []byte("AB"))
	copy(mem[32:], []byte("CD"))

	m := newTestMachine(mem)
	var b SyscallBridge

	for _, off := range []int32{0, 32} {
		m.SetRegister(4, int32(SyscallWrite)+4000)
		m.SetRegister(5, int32(f.Fd()))
		m.SetRegister(6, off)
		m.SetRegister(7, 2)
		require.NoError(t, b.Handle(m))
		require.Equal(t, int32(2), m.GetRegister(2), "write at offset %d must succeed; an fd closed after the first write would fail here", off)
	}
}
