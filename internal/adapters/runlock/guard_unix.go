//go:build unix

package runlock

import (
	"os"
	"syscall"
)

// lockGuard toma un flock exclusivo (bloqueante) sobre path. El kernel lo
// suelta si el proceso muere, así que el guard nunca queda caducado.
func lockGuard(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}
