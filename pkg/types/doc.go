/*
Package types defines the shared data model for the store orchestration
platform: the store entity with its lifecycle states, audit log entries,
operation kinds, and the snapshot structs returned by the cluster inspector.

The store lifecycle is a small state machine:

	queued → provisioning → ready
	            │              │
	            ▼              │
	         failed ──retry────┘
	            │
	  (any but deleting/deleted) → deleting → deleted

deleted is terminal. A failed store always carries a non-empty error
message; a ready store always carries its public URLs.
*/
package types
