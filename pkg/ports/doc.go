/*
Package ports defines the driven ports (interfaces) for the signaltree engine.

These interfaces decouple the engine from the host store and from the
persistence used to resume runs.

# Key Interfaces

  - Store: the host mutable store (read side for every step, mutate side for synchronous steps).
  - ReplayStore: persists async results keyed by a run key for later replay.
  - DistributedLocker: serializes runs that share a run key across instances.
*/
package ports
