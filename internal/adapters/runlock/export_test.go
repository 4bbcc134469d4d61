package runlock

// SetBeforeBreak instala un hook entre juzgar el lock caducado y romperlo.
func SetBeforeBreak(fn func()) (restore func()) {
	prev := beforeBreak
	beforeBreak = fn
	return func() { beforeBreak = prev }
}
