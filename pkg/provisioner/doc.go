/*
Package provisioner implements the store lifecycle workflows: provision
(install chart, poll readiness, mark ready or failed) and delete (uninstall,
cascade-delete namespace, mark deleted).

# Workflow shape

	API handler ──go──▶ Provision(storeID)
	                      │ acquire per-store lock (skip if held)
	                      │ deadline = PROVISION_TIMEOUT_MS
	                      ▼
	            validate engine → status provisioning
	                      ▼
	            helm install (idempotent via release-exists)
	                      ▼
	            readiness poll ≤ 60 × 5s ──fail-fast──▶ failed + events
	                      ▼
	            mark ready with engine URLs

Workflows are fire-and-forget from the API's point of view: the handler
returns 201/202 and the outcome is recorded on the store record. At most one
workflow runs per store id, enforced by the in-process operation lock; the
lock is advisory and empty after a crash, with correctness restored by the
startup reconciler plus the deployer's release-exists idempotency and the
namespace-equals-id naming convention.

Delete is belt-and-suspenders: a failed chart uninstall is logged as a
warning and the namespace deletion still runs, so resources are reclaimed
even when release metadata is corrupted.
*/
package provisioner
