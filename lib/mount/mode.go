package mount

// Mode is the access mode of a mounted filesystem.
type Mode int

// Unknown is returned alongside an error when the mode cannot be read
const Unknown Mode = -1

const (
	// ReadOnly is the mode the medium is mounted in at power-up
	ReadOnly Mode = iota
	// ReadWrite is entered at most once per boot
	ReadWrite
)

// ModeFor maps an application's read-only flag to the mode it needs.
func ModeFor(readOnly bool) Mode {
	if readOnly {
		return ReadOnly
	}
	return ReadWrite
}

// Option returns the mount(8) option for the mode.
func (m Mode) Option() string {
	if m == ReadWrite {
		return "rw"
	}
	return "ro"
}

func (m Mode) String() string {
	switch m {
	case ReadWrite:
		return "read-write"
	case ReadOnly:
		return "read-only"
	}
	return "unknown"
}
