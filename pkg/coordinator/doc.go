/*
Package coordinator runs the optimistic add, confirm and cancel mutations.

Every mutation walks the same state machine:

	Idle ──► Optimistic ──► Committed
	                   └──► RolledBack

and the same steps:

 1. cancel any in-flight fetch of the serving-reservations key, so its result
    cannot overwrite the optimistic value
 2. capture the current cached value
 3. change the journal (Append for add, Remove for confirm and cancel)
 4. write the patched value to the cache
 5. run the request; on failure restore the captured value

The three mutations differ after step 5:

	            restores journal   invalidates cache
	add         never              never
	confirm     never              always, after settling
	cancel      never              never

A confirm therefore always ends with a refetch, while an add or cancel keeps
the patched value until something else refetches. A rolled back add leaves its
entries in the journal, so they come back on the next merge.

The default Requester does no I/O. client.OrderItemsRequester posts added
dishes to the order-items endpoint instead.
*/
package coordinator
