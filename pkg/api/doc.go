/*
Package api exposes the REST surface of the control plane under /api.

Every mutating endpoint follows the same contract: validate the input,
enforce the state-machine guard, mutate the registry, schedule the
background workflow, and return 201/202 before the workflow finishes.
Workflow outcomes never travel through an HTTP response; they are read back
from the store record.

Errors use one envelope with stable codes:

	{"error": {"code": "QUOTA_EXCEEDED", "message": "..."}}

Rate limiting is per client IP with separate budgets for the general API
and store creation. Failed requests are refunded: only responses below 400
consume a token.
*/
package api
