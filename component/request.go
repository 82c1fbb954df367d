package component

import (
	"fmt"

	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// Response is a request-correlated emission travelling from the router to
// the response collector. FUNCTION-tagged responses originate from function
// routes and are not name-filterable.
type Response struct {
	RequestID  string
	ActionType string
	Data       any
}

// requestRouter registers method+route handlers against the request source,
// deduplicates repeated requests by id, and converts matched requests into
// either bus actions or direct computed responses.
type requestRouter struct {
	name          string
	bus           *actionBus
	readState     func() any
	responses     *stream.Stream[Response]
	correlatables []driver.Correlatable
	logger        *Logger
	metrics       *metric.Runtime
}

// wireRequests validates the request map against the request source and
// subscribes every declared route. All validation errors here are
// configuration errors raised at wiring time.
func wireRequests(
	cfg Config, bus *actionBus, readState func() any,
	effects map[string]*stream.Stream[any],
	logger *Logger, metrics *metric.Runtime,
) (*stream.Stream[Response], error) {
	if cfg.Request == nil {
		return nil, nil
	}

	src, ok := cfg.Sources[cfg.RequestSourceName]
	if !ok || src == nil {
		return nil, errors.WrapConfig(errors.ErrMissingSource,
			"RequestRouter", "wireRequests", "request source lookup")
	}
	selector, ok := src.(driver.MethodSelector)
	if !ok {
		return nil, errors.WrapConfig(errors.ErrUnknownMethod,
			"RequestRouter", "wireRequests", "method capability check")
	}

	router := &requestRouter{
		name:      cfg.Name,
		bus:       bus,
		readState: readState,
		responses: stream.New[Response](bus.loop),
		logger:    logger,
		metrics:   metrics,
	}

	// Every source exposing request-selection capability contributes to
	// response correlation, not only the request source itself.
	for _, s := range cfg.Sources {
		if c, ok := s.(driver.Correlatable); ok {
			router.correlatables = append(router.correlatables, c)
		}
	}

	// The component's own sink effects are correlated too: any stamped
	// effect carrying a request id answers that request directly, without
	// a driver round-trip.
	for _, eff := range effects {
		sub := eff.Subscribe(func(v any) {
			ev, ok := v.(SinkEvent)
			if !ok || ev.RequestID == "" {
				return
			}
			router.responses.Next(Response{
				RequestID:  ev.RequestID,
				ActionType: ev.ActionType,
				Data:       ev.Data,
			})
		})
		router.responses.OnDone(sub.Unsubscribe)
	}

	for method, routes := range cfg.Request {
		if len(routes) == 0 {
			return nil, errors.WrapConfig(
				fmt.Errorf("method %q: %w", method, errors.ErrInvalidRequest),
				"RequestRouter", "wireRequests", "route map validation")
		}
		for route, target := range routes {
			if err := validateTarget(method, route, target); err != nil {
				return nil, err
			}

			matched, err := selector.Method(method, route)
			if err != nil {
				return nil, errors.WrapConfig(err,
					"RequestRouter", "wireRequests",
					fmt.Sprintf("register %s %s", method, route))
			}

			logger.TraceRoute(method, route, target)
			router.subscribe(matched, target)
		}
	}

	return router.responses, nil
}

func validateTarget(method, route string, target any) error {
	switch t := target.(type) {
	case string:
		if t == "" {
			return errors.WrapConfig(
				fmt.Errorf("%s %s: %w", method, route, errors.ErrInvalidRequest),
				"RequestRouter", "validateTarget", "empty action name")
		}
	case RouteFunc:
	case func(state any, req *driver.RequestRef) any:
	default:
		return errors.WrapConfig(
			fmt.Errorf("%s %s: target %T: %w", method, route, target, errors.ErrInvalidRequest),
			"RequestRouter", "validateTarget", "target type validation")
	}
	return nil
}

// subscribe attaches one route's request stream, with consecutive-id
// de-duplication so a request object re-emitted unchanged by the driver is
// processed exactly once.
func (r *requestRouter) subscribe(matched *stream.Stream[*driver.RequestRef], target any) {
	var (
		lastID string
		seen   bool
	)
	sub := matched.Subscribe(func(req *driver.RequestRef) {
		if req == nil {
			return
		}
		if req.ID == "" {
			r.logger.Error("request event missing id", errors.ErrMissingRequestID,
				"method", req.Method, "url", req.URL)
			r.metrics.RecordDrop(r.name, "missing_request_id")
			return
		}
		if seen && lastID == req.ID {
			r.metrics.RecordDedup(r.name)
			return
		}
		seen = true
		lastID = req.ID

		r.handle(req, target)
	})
	r.responses.OnDone(sub.Unsubscribe)
}

// handle processes one distinct request. A panicking route handler is
// caught and logged; the offending event is dropped and the stream keeps
// processing subsequent events.
func (r *requestRouter) handle(req *driver.RequestRef, target any) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("route handler panicked",
				errors.WrapData(fmt.Errorf("%w: %v", errors.ErrHandlerPanic, p),
					"RequestRouter", "handle", "route handler execution"),
				"request_id", req.ID)
			r.metrics.RecordDrop(r.name, "handler_panic")
		}
	}()

	switch t := target.(type) {
	case RouteFunc:
		r.respondFunction(req, t)
	case func(state any, req *driver.RequestRef) any:
		r.respondFunction(req, t)
	case string:
		// Collection must be attached before injection so effects the
		// action produces synchronously are not missed.
		r.collect(req, t)
		r.bus.Inject(Action{Type: t, Data: req.Body, RequestID: req.ID, Req: req})
	}
}

// respondFunction invokes a function target synchronously with the cached
// state and emits its return value as a ready-made FUNCTION response.
func (r *requestRouter) respondFunction(req *driver.RequestRef, fn RouteFunc) {
	result := fn(r.readState(), req)
	r.responses.Next(Response{RequestID: req.ID, ActionType: ActionFunction, Data: result})
}

// collect merges every correlatable source's emissions for this request id
// into the response stream. Multiple responses per request are allowed and
// all are delivered.
func (r *requestRouter) collect(req *driver.RequestRef, actionType string) {
	for _, c := range r.correlatables {
		effects := c.Request(req.ID)
		sub := effects.Subscribe(func(v any) {
			switch ev := v.(type) {
			case SinkEvent:
				r.responses.Next(Response{RequestID: req.ID, ActionType: ev.ActionType, Data: ev.Data})
			case driver.ResponseEvent:
				r.responses.Next(Response{RequestID: ev.RequestID, ActionType: ev.ActionType, Data: ev.Data})
			default:
				r.responses.Next(Response{RequestID: req.ID, ActionType: actionType, Data: v})
			}
		})
		r.responses.OnDone(sub.Unsubscribe)
	}
}
