/*
Package helm wraps the helm binary for chart install, uninstall and
release-existence checks against a namespaced release.

Each call runs a fresh helm process under exec.CommandContext with a bounded
timeout. Install never passes --wait or --atomic: chart init jobs can take
minutes, and store readiness is observed independently by the provisioner
polling the cluster. Install is idempotent through a release-exists check,
which is what makes retrying a failed provisioning run safe.

Chart values arrive as a flat map with helm dotted keys and are rendered to
a nested YAML temp file passed with -f. Boolean and integer strings are
coerced to typed scalars the way helm --set would.
*/
package helm
