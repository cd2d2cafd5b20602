/*
Package reconciler keeps the cached serving-reservations view converging on the
server.

Optimistic mutations patch the cache directly, and only a confirm invalidates
it. Everything else stays patched until something refetches. The reconciler is
that something for long-running processes such as `tableside watch`:

	every interval
	    │
	    ▼
	Refresh (client fetch → merge with journal → cache)
	    │
	    ├── ok        → cache.refreshed event
	    ├── cancelled → skipped, a mutation owns the key now
	    └── error     → cache.refresh_failed event, previous value kept

A cycle holds the reconciler's mutex so cycles never overlap. Stop cancels the
running cycle's context and waits for it to return.
*/
package reconciler
