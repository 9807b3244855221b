package watch

// Running returns how many callbacks are tracked as in flight.
func (w *Watcher) Running() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.running)
}
