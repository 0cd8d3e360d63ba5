package dram

// Error is the closed set of library error codes.
type Error int

// Error codes. ErrNone is never returned as a non-nil error.
const (
	ErrNone Error = iota
	ErrUndocumented
	ErrMemTest
)

func (e Error) Error() string {
	switch e {
	case ErrNone:
		return "dram: no error"
	case ErrUndocumented:
		return "dram: undocumented condition"
	case ErrMemTest:
		return "dram: memory test failed"
	}

	return "dram: unknown error"
}
