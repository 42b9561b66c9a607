/*
Package cluster inspects store namespaces through the Kubernetes API:
namespace lifecycle, pod readiness snapshots, job completion and recent
events.

The inspector is read-mostly; its only mutation is namespace deletion, the
cascade-delete backstop that removes anything a chart uninstall left behind.
Every call carries a short timeout so a slow API server cannot stall a
provisioning workflow; the readiness poll's cadence lives in the
provisioner, not here.

An empty kubeconfig path selects in-cluster configuration, matching how the
control plane runs inside the cluster it manages.
*/
package cluster
