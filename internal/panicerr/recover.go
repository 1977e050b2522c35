// Package panicerr runs functions that may stop abnormally, turning a
// Halt, a panic or runtime.Goexit into an ordinary error return.
package panicerr

import "runtime/debug"

// Recover runs f on a new goroutine and returns its result. A Halt returns
// its HaltError, any other panic a PanicError, and runtime.Goexit an
// ExitError.
func Recover(name string, f func() error) error {
	result := make(chan error, 1)
	go func() {
		returned := false
		defer func() {
			if returned {
				return
			}
			switch e := recover().(type) {
			case nil:
				result <- ExitError{name}
			case HaltError:
				result <- e
			default:
				result <- PanicError{Name: name, Value: e, Stack: debug.Stack()}
			}
		}()
		err := f()
		returned = true
		result <- err
	}()
	return <-result
}
