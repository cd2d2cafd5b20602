/*
Package cache holds the serving-reservations snapshot shared by the board and
the mutation coordinator.

QueryCache stores one value per key together with a generation counter. A fetch
records the generation it started at; when it returns, the result is stored only
if the generation is unchanged. CancelInFlight increments the generation, so the
fetch still runs to completion but its result is dropped and Fetch reports
ErrFetchCancelled. Invalidate marks the value stale and starts a background
refetch; Wait blocks until those refetches return.

Values are copied on the way in and on the way out.
*/
package cache
