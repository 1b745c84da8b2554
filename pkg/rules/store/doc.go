// Package store holds the process-wide rule cache.
//
// A Store loads the active rule document from a source.Source into an
// immutable Snapshot and publishes it through an atomic pointer. Readers
// call Snapshot and never block; a refresh builds a complete new snapshot
// and swaps it in, so a reader sees either the old rule set or the new
// one and never a mix. A failed refresh keeps the previous snapshot.
//
// Start owns the one subscription per process: it watches the source (for
// sources that can detect their own changes) and the configured notifier,
// and funnels both into a single reload loop.
//
//	st := store.New(src, store.WithNotifier(n), store.WithMetrics(collector))
//	if err := st.Start(ctx); err != nil {
//	    logger.Warn("starting without rules", "error", err)
//	}
//	snap, err := st.Snapshot()
package store
