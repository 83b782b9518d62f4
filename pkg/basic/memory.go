package basic

// MemorySize is the size of the simulated address space.
const MemorySize = 65536

// VIC-II colour registers honoured by POKE.
const (
	addrBorderColor     = 53280
	addrBackgroundColor = 53281
)

// Memory is the simulated RAM behind PEEK and POKE.
type Memory struct {
	cells [MemorySize]byte
}

func checkAddress(addr float64) (int, error) {
	if addr < 0 || addr >= MemorySize {
		return 0, newError(KindIllegalQuantity, "ADDRESS %s", formatNumber(addr))
	}
	return int(addr), nil
}

// Peek reads one byte.
func (m *Memory) Peek(addr float64) (int, error) {
	a, err := checkAddress(addr)
	if err != nil {
		return 0, err
	}
	return int(m.cells[a]), nil
}

// Poke writes one byte. Values outside 0..255 are rejected.
func (m *Memory) Poke(addr, value float64) error {
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	if value < 0 || value > 255 {
		return newError(KindIllegalQuantity, "VALUE %s", formatNumber(value))
	}
	m.cells[a] = byte(value)
	return nil
}

// Reset zeroes all memory.
func (m *Memory) Reset() {
	m.cells = [MemorySize]byte{}
}
