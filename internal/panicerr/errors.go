package panicerr

import (
	"errors"
	"fmt"
)

// PanicError is a recovered panic.
type PanicError struct {
	Name  string
	Value interface{}
	Stack []byte
}

func (pe PanicError) Error() string { return fmt.Sprint(pe) }

// Format adds the panicking goroutine's stack under %+v.
func (pe PanicError) Format(f fmt.State, c rune) {
	if pe.Name == "" {
		fmt.Fprintf(f, "panicked: %v", pe.Value)
	} else {
		fmt.Fprintf(f, "%v panicked: %v", pe.Name, pe.Value)
	}
	if c == 'v' && f.Flag('+') {
		fmt.Fprintf(f, "\npanic stack: %s", pe.Stack)
	}
}

// Unwrap returns the panic value if it was an error.
func (pe PanicError) Unwrap() error {
	err, _ := pe.Value.(error)
	return err
}

// ExitError reports a goroutine that called runtime.Goexit.
type ExitError struct{ Name string }

func (ee ExitError) Error() string {
	if ee.Name == "" {
		return "runtime.Goexit called"
	}
	return ee.Name + " called runtime.Goexit"
}

// IsPanic reports whether err is or wraps a recovered panic.
func IsPanic(err error) bool {
	var pe PanicError
	return errors.As(err, &pe)
}

// IsExit reports whether err is or wraps a recovered goroutine exit.
func IsExit(err error) bool {
	var ee ExitError
	return errors.As(err, &ee)
}

// Stack returns the stack of a recovered panic, or "".
func Stack(err error) string {
	var pe PanicError
	if errors.As(err, &pe) {
		return string(pe.Stack)
	}
	return ""
}
