// Package runlock evita que dos ejecuciones del pipeline se solapen sobre el
// mismo ledger. Es un lock file creado con O_EXCL que guarda un token uuid;
// crear, romper por caducado y liberar ocurren bajo un flock sobre un guard
// file vecino.
package runlock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrLocked indica que otra ejecución tiene el lock y no está caducado.
var ErrLocked = errors.New("runlock: another run holds the lock")

// Lock es un lock adquirido. Release solo borra el fichero si sigue siendo nuestro.
type Lock struct {
	path  string
	token string
}

// Acquire crea el lock file. Si existe y es más viejo que staleAfter se
// considera abandonado (proceso muerto) y se rompe.
func Acquire(path string, staleAfter time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("runlock.Acquire: %w", err)
	}
	unlock, err := lockGuard(guardPath(path))
	if err != nil {
		return nil, fmt.Errorf("runlock.Acquire: guard: %w", err)
	}
	defer unlock()

	token := uuid.NewString()
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%s\n%s\n", token, time.Now().UTC().Format(time.RFC3339))
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("runlock.Acquire: write: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path, token: token}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("runlock.Acquire: %w", err)
		}

		seen, err := readOwner(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue // liberado entre OpenFile y Stat
			}
			return nil, fmt.Errorf("runlock.Acquire: %w", err)
		}
		age := time.Since(seen.modTime)
		if staleAfter <= 0 || age < staleAfter {
			return nil, ErrLocked
		}
		if err := breakStale(path, seen); err != nil {
			return nil, fmt.Errorf("runlock.Acquire: %w", err)
		}
	}
	return nil, ErrLocked
}

// owner es el contenido del lock file en el momento de juzgarlo caducado.
type owner struct {
	token   string
	modTime time.Time
}

func readOwner(path string) (owner, error) {
	info, err := os.Stat(path)
	if err != nil {
		return owner{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return owner{}, err
	}
	token, _, _ := strings.Cut(string(data), "\n")
	return owner{token: token, modTime: info.ModTime()}, nil
}

// beforeBreak se ejecuta entre juzgar el lock caducado y romperlo. Solo tests.
var beforeBreak func()

// breakStale borra el lock caducado solo si sigue siendo el mismo fichero que
// se juzgó: mismo token y mismo modtime. Se llama con el guard tomado.
func breakStale(path string, seen owner) error {
	if beforeBreak != nil {
		beforeBreak()
	}
	current, err := readOwner(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.token != seen.token || !current.modTime.Equal(seen.modTime) {
		slog.Debug("stale run lock already replaced", "path", path)
		return nil
	}
	slog.Warn("breaking stale run lock", "path", path, "age", time.Since(seen.modTime).Round(time.Second))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale: %w", err)
	}
	return nil
}

// guardPath serializa crear, romper y liberar el lock entre procesos.
func guardPath(path string) string { return path + ".guard" }

// Token devuelve el identificador del dueño del lock.
func (l *Lock) Token() string { return l.token }

// Release borra el lock file si el token coincide. Si otro proceso lo rompió
// por caducado y lo recreó, no se toca.
func (l *Lock) Release() error {
	unlock, err := lockGuard(guardPath(l.path))
	if err != nil {
		return fmt.Errorf("runlock.Release: guard: %w", err)
	}
	defer unlock()

	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("runlock.Release: %w", err)
	}
	owner, _, _ := strings.Cut(string(data), "\n")
	if owner != l.token {
		slog.Warn("run lock taken over by another run", "path", l.path)
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("runlock.Release: %w", err)
	}
	return nil
}

// File implementa ports.RunLocker sobre Acquire.
type File struct {
	Path       string
	StaleAfter time.Duration
}

// Lock adquiere el lock file y devuelve su Release.
func (f File) Lock() (func() error, error) {
	l, err := Acquire(f.Path, f.StaleAfter)
	if err != nil {
		return nil, err
	}
	return l.Release, nil
}
