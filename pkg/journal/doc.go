/*
Package journal persists dishes that were added locally but not yet confirmed.

The journal is a single JSON record, stored under the key "pendingDishes",
mapping a reservation code to its pending entries in append order:

	{
	  "R1": [
	    {"id": "1-1700000000000-k3j9x2abc", "dishId": 1, "name": "Phở Bò",
	     "quantity": 2, "price": "80000", "_isNew": true}
	  ]
	}

Entry ids have the form <dishId>-<unix millis>-<9 random characters>. They never
parse as an integer, which keeps them apart from server-issued menu line ids.

# Read-modify-write

Append and Remove each load the whole mapping, change one reservation's list and
write the whole mapping back:

	Append(R1)                 Append(R2)
	    │                          │
	    ├── Load  {}               │
	    │                          ├── Load  {}
	    ├── Persist {R1}           │
	    │                          └── Persist {R2}     ← R1 is gone
	    ▼
	last writer wins

Nothing serializes the two sequences, so concurrent writers lose updates.
WithSerializedWrites holds a mutex across each sequence inside one Journal
instance. It does not help across processes sharing the same storage.

# Failure handling

The journal never returns errors. A failed or corrupt read yields an empty
mapping and a failed write is logged and dropped. Both are counted in
tableside_journal_errors_total and reported on the "journal" health component.
*/
package journal
