package ports

// RunLocker impide que dos ejecuciones escriban el mismo ledger a la vez.
type RunLocker interface {
	// Lock adquiere el lock o falla enseguida; nunca espera.
	Lock() (release func() error, err error)
}
