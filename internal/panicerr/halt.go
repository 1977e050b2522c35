package panicerr

import "fmt"

// HaltError is panicked by Halt to stop a function run under Recover; it is
// returned as-is rather than as a recovered panic.
type HaltError struct{ Err error }

func (err HaltError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("halted: %v", err.Err)
	}
	return "halted"
}

func (err HaltError) Unwrap() error { return err.Err }

// Halt stops the calling goroutine's Recover-ed function with err, which
// may be nil for a clean stop.
func Halt(err error) { panic(HaltError{err}) }
