//go:build !linux

package invoker

func raiseThreadPriority() error {
	return nil
}
