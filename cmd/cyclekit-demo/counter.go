package main

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/c360/cyclekit/component"
	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// counterOptions carries the runtime wiring the counter factory closes
// over: ambient services plus the scheduling knobs loaded from
// configuration.
type counterOptions struct {
	Logger         *slog.Logger
	Metrics        *metric.Runtime
	Diagnostics    *nats.Conn
	Verbose        bool
	DispatchTurns  int
	BootstrapTurns int
}

// counterRegistration declares the demo component: a counter served over
// HTTP. GET /count reads the state directly through a function route,
// POST /increment goes through the action bus and answers with the updated
// value, and GET / renders the counter as HTML.
func counterRegistration(opts counterOptions) component.Registration {
	return component.Registration{
		Name:        "counter",
		Description: "HTTP-served incrementing counter",
		Version:     Version,
		Factory: func(src component.Sources, loop *stream.Loop) (*component.Component, error) {
			return component.New(component.Config{
				Name:         "counter",
				Loop:         loop,
				Sources:      src,
				InitialState: map[string]any{"count": 0},
				Model: component.Model{
					"INCREMENT": component.SinkReducers{
						component.DefaultStateSource: func(state, _ any, _ component.DispatchFunc, _ *driver.RequestRef) any {
							s := state.(map[string]any)
							return map[string]any{"count": toInt(s["count"]) + 1}
						},
						// Runs after the state reducer for the same action,
						// so the cached state already carries the new count.
						component.DefaultRequestSource: func(state, _ any, _ component.DispatchFunc, _ *driver.RequestRef) any {
							s := state.(map[string]any)
							return map[string]any{"count": toInt(s["count"])}
						},
					},
					component.ActionHydrate: component.ReducerFunc(
						func(state, data any, _ component.DispatchFunc, _ *driver.RequestRef) any {
							if snapshot, ok := data.(map[string]any); ok {
								return snapshot
							}
							return component.Abort
						}),
				},
				Request: component.RequestMap{
					"GET": {
						"/count": component.RouteFunc(func(state any, _ *driver.RequestRef) any {
							return state
						}),
						"/": component.RouteFunc(func(state any, _ *driver.RequestRef) any {
							s := state.(map[string]any)
							return renderPage(toInt(s["count"]))
						}),
					},
					"POST": {
						"/increment": "INCREMENT",
					},
				},
				Response: func(sel *component.ResponseSelector) map[string]*stream.Stream[component.Response] {
					return map[string]*stream.Stream[component.Response]{
						"json": sel.Select("INCREMENT"),
					}
				},
				View: func(in component.ViewInput) any {
					s := in.State.(map[string]any)
					return renderPage(toInt(s["count"]))
				},
				Logger:         opts.Logger,
				Metrics:        opts.Metrics,
				Diagnostics:    opts.Diagnostics,
				Verbose:        opts.Verbose,
				DispatchTurns:  opts.DispatchTurns,
				BootstrapTurns: opts.BootstrapTurns,
			})
		},
	}
}

func renderPage(count int) string {
	return fmt.Sprintf(
		"<html><body><h1>Counter</h1><p>count: %d</p>"+
			"<form method=\"post\" action=\"/increment\"><button>+1</button></form>"+
			"</body></html>", count)
}

// toInt normalizes counter values that round-tripped through JSON or
// msgpack snapshots.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
