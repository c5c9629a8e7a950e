// Package singleton deploys contracts to deterministic CREATE2 addresses through a singleton
// factory.
//
// A run first makes sure a factory exists on the chain, either by replaying the presigned
// Safe singleton factory transaction or by deploying the minimal CREATE2 proxy directly, and
// then deploys each target through it. Targets whose address already holds code are skipped, so
// running twice against the same chain sends no transaction the second time.
package singleton
