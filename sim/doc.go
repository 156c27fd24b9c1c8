// Package sim provides the discrete-event simulation kernel for SimLIR,
// a model of hierarchical address-space delegation (IANA -> RIR -> LIR).
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - prefix.go: the Prefix value type and alignment rules
//   - tree.go: the per-entity binary trie (insert, remove, gap search)
//   - timeline.go: the (time, sequence)-ordered event store
//   - entity.go: entities and the request/fulfillment protocol
//   - simulator.go: hierarchy construction and the event loop
//
// # Architecture
//
// Each entity owns an AddressTree and a Behaviour. Behaviours decide when
// and how much address space an entity requests; the simulator resolves
// each request synchronously against the supplier's tree and records the
// outcome. "Waiting" is always a future Timeline entry, never a blocked
// goroutine: the whole run is single-threaded and strictly time-ordered.
//
// Sub-packages:
//   - sim/report: pure-data resolution records and run summaries
//   - sim/registry: delegated-registry file parsing into build records
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Behaviour: request sizing/timing policy per entity
//   - Event: anything the Timeline can fire
package sim
