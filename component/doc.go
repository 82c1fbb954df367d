// Package component implements the reactive component runtime for CycleKit:
// declarative units that turn source streams into named sink streams through
// an action bus, a reducer model, request/response correlation, child
// composition, and a coalescing view scheduler.
//
// # Overview
//
// A component is declared once as a Config and wired once with New. The
// wiring order is fixed:
//
//  1. Intent maps raw source events to typed Actions on the bus.
//  2. Model maps Actions to reducers: state reducers fold into the state
//     stream, sink reducers emit effects on named sinks.
//  3. Request subscribes driver routes, injects request-derived actions,
//     and correlates responses by request id.
//  4. Response selects correlated responses and stamps them for delivery.
//  5. Children mount nested components with scoped state and contribute
//     their sinks to the parent's.
//  6. View recomputes a render from the latest state and child renders,
//     at most once per scheduler turn.
//
// Every component tree shares one stream.Loop; all delivery is
// single-threaded and turn-ordered, so reducers and views never need
// their own locking.
//
// # Lifecycle Actions
//
// Three actions are synthesized by the runtime itself: INITIALIZE seeds the
// initial state before any other traffic, BOOTSTRAP fires once after the
// initial turns drain so components can trigger startup work, and HYDRATE
// carries driver-provided snapshots for state restoration.
//
// # Abort
//
// A reducer that returns Abort cancels its emission: state reducers leave
// the state sequence untouched, and the sentinel never appears on any sink.
// Abort is a process-unique pointer, so no data value can collide with it.
//
// # Registration Pattern
//
// Child components use EXPLICIT factory registration rather than init()
// self-registration: the parent's Children map names each child's Factory,
// the factory receives the scoped sources and the shared loop, and the
// parent controls the full mount/teardown lifecycle. Nothing registers
// itself as a package side effect.
package component
