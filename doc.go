// Package cyclekit provides a reactive component runtime: declarative
// components that transform driver-fed source streams into named sink
// streams through actions, reducers, request/response correlation, child
// composition, and coalesced view recomputation.
//
// # Architecture
//
// CycleKit is organized in three layers:
//
//	┌─────────────────────────────────────┐
//	│          Components                 │  intent, model, request,
//	│   (component.Config → Component)    │  response, children, view
//	└─────────────────────────────────────┘
//	           ↓ consume / produce
//	┌─────────────────────────────────────┐
//	│           Streams                   │  push-based multicast
//	│   (stream.Stream, stream.Loop)      │  streams on one scheduler
//	└─────────────────────────────────────┘
//	           ↓ fed by
//	┌─────────────────────────────────────┐
//	│           Drivers                   │  HTTP, NATS, in-memory
//	│  (driver capability interfaces)     │  sources and sinks
//	└─────────────────────────────────────┘
//
// Everything a component does happens on one stream.Loop: delivery is
// single-threaded and turn-ordered, so user code never locks. Drivers live
// at the edge, translating transports into request and event streams and
// consuming the component's sinks.
//
// The component package is the entry point; see its documentation for the
// wiring model. The cmd/cyclekit-demo command shows a complete HTTP-served
// component with metrics, snapshots, and NATS diagnostics.
package cyclekit
