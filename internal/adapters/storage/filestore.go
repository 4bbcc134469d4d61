package storage

// filestore.go — los dos documentos JSON en un directorio.
//
// Cada escritura va a un temporal en el mismo directorio, se hace fsync, se
// renombra sobre el destino y se hace fsync del directorio: un lector nunca
// ve un documento a medio escribir.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// FileStore implementa ports.LedgerStore sobre ficheros JSON.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore crea el directorio si no existe.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewFileStore: %w", &domain.PersistenceError{Op: "mkdir", Target: dir, Err: err})
	}
	return &FileStore{dir: dir}, nil
}

// HistoryPath devuelve la ruta del documento History.
func (s *FileStore) HistoryPath() string { return filepath.Join(s.dir, HistoryDocument) }

// PerformancePath devuelve la ruta del documento de rendimiento.
func (s *FileStore) PerformancePath() string { return filepath.Join(s.dir, PerformanceDocument) }

// LoadHistory lee el History. Fichero inexistente → ledger vacío.
func (s *FileStore) LoadHistory(ctx context.Context) (domain.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := readDocument(s.HistoryPath())
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewHistory(), nil
	}
	if err != nil {
		return domain.History{}, fmt.Errorf("storage.FileStore.LoadHistory: %w", err)
	}
	h, err := decodeHistory(s.HistoryPath(), data)
	if err != nil {
		return domain.History{}, fmt.Errorf("storage.FileStore.LoadHistory: %w", err)
	}
	return h, nil
}

// LoadPerformance lee el documento de rendimiento. Inexistente → vacío.
func (s *FileStore) LoadPerformance(ctx context.Context) (domain.PerformanceByCondition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := readDocument(s.PerformancePath())
	if errors.Is(err, fs.ErrNotExist) {
		return domain.PerformanceByCondition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.FileStore.LoadPerformance: %w", err)
	}
	perf, err := decodePerformance(s.PerformancePath(), data)
	if err != nil {
		return nil, fmt.Errorf("storage.FileStore.LoadPerformance: %w", err)
	}
	return perf, nil
}

// Save reemplaza ambos documentos. El History se escribe primero: si el
// proceso muere entre las dos escrituras, el rendimiento se reconstruye
// desde el log de validaciones al cargar.
func (s *FileStore) Save(ctx context.Context, h domain.History, perf domain.PerformanceByCondition) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storage.FileStore.Save: %w", err)
	}
	hData, err := encodeDocument(HistoryDocument, h)
	if err != nil {
		return fmt.Errorf("storage.FileStore.Save: %w", err)
	}
	pData, err := encodeDocument(PerformanceDocument, perf)
	if err != nil {
		return fmt.Errorf("storage.FileStore.Save: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.HistoryPath(), hData); err != nil {
		return fmt.Errorf("storage.FileStore.Save: %w", err)
	}
	if err := writeAtomic(s.PerformancePath(), pData); err != nil {
		return fmt.Errorf("storage.FileStore.Save: %w", err)
	}
	return nil
}

// SaveHistory reemplaza solo el History.
func (s *FileStore) SaveHistory(ctx context.Context, h domain.History) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storage.FileStore.SaveHistory: %w", err)
	}
	data, err := encodeDocument(HistoryDocument, h)
	if err != nil {
		return fmt.Errorf("storage.FileStore.SaveHistory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.HistoryPath(), data); err != nil {
		return fmt.Errorf("storage.FileStore.SaveHistory: %w", err)
	}
	return nil
}

// Close no hace nada: no hay recursos abiertos entre operaciones.
func (s *FileStore) Close() error { return nil }

func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", Target: path, Err: err}
	}
	return data, nil
}

// writeAtomic escribe data en path vía temp + rename. Si algo falla el
// destino conserva su contenido anterior.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &domain.PersistenceError{Op: "save", Target: path, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return &domain.PersistenceError{Op: "save", Target: path, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &domain.PersistenceError{Op: "save", Target: path, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &domain.PersistenceError{Op: "save", Target: path, Err: err}
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return &domain.PersistenceError{Op: "save", Target: path, Err: err}
	}
	syncDir(dir)
	return nil
}

// syncDir persiste la entrada de directorio del rename. Algunos sistemas de
// ficheros no soportan fsync sobre directorios; ahí se ignora.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
