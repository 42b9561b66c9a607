/*
Package reconciler converges persisted store lifecycle state with cluster
reality at process start.

A store found in queued or provisioning was abandoned by a process that died
mid-workflow. The reconciler checks whether its namespace actually became
ready: if so the record is marked ready with the engine-computed URLs, if
not it is marked failed with a message telling the operator to retry. The
reconciler never resumes provisioning itself; converging the record and
re-running the workflow are deliberately separate decisions.
*/
package reconciler
