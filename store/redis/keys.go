package redis

// Redis key naming conventions for claimflow data.
// All keys are prefixed with "claimflow:" to avoid collisions.

const keyPrefix = "claimflow:"

// workflowKey returns the key for a workflow state: claimflow:workflow:{id}
func workflowKey(id string) string { return keyPrefix + "workflow:" + id }

// workflowIDsKey is the Set tracking all workflow IDs for enumeration.
const workflowIDsKey = keyPrefix + "workflow_ids"

// stepResultsKey returns the List key holding a workflow's step attempt
// history in append order: claimflow:steps:{id}
func stepResultsKey(id string) string { return keyPrefix + "steps:" + id }
