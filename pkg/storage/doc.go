/*
Package storage provides BoltDB-backed persistence for store lifecycle state
and the append-only audit log.

The storage package implements the Store interface using BoltDB (bbolt) as
the underlying database. The control plane is the single writer; reads run
concurrently through BoltDB's MVCC snapshots, and every commit is fsynced,
which is what makes provisioning state survive a crash mid-workflow.

# Buckets

	stores     store records keyed by store id (store-<8 hex>)
	audit_log  audit entries keyed by big-endian sequence number

Audit entry ids come from the bucket sequence, so ids are monotone and
cursor order equals id order. Entries are never updated or deleted.

Audit writes triggered by registry mutations are best-effort write-through:
the mutation commits in its own transaction first, and a failed audit append
is logged without rolling anything back.

# Transaction Model

  - Read: db.View() - concurrent, consistent snapshots
  - Write: db.Update() - serialized, atomic commits with fsync

Deleted is terminal at this layer: any mutation of a deleted store returns
ErrStoreDeleted regardless of what the caller asks for.
*/
package storage
