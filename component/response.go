package component

import (
	"fmt"

	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// ResponseSelector exposes selection over the merged response stream by
// originating action name.
type ResponseSelector struct {
	responses *stream.Stream[Response]
}

// Select returns the responses whose originating action is one of the given
// names. Selecting zero names means "all". A FUNCTION-tagged response
// always passes a non-empty selection: function-originated responses are
// not name-filterable.
func (s *ResponseSelector) Select(actionTypes ...string) *stream.Stream[Response] {
	if len(actionTypes) == 0 {
		return stream.Filter(s.responses, func(Response) bool { return true })
	}

	wanted := make(map[string]struct{}, len(actionTypes))
	for _, t := range actionTypes {
		wanted[t] = struct{}{}
	}
	return stream.Filter(s.responses, func(r Response) bool {
		if r.ActionType == ActionFunction {
			return true
		}
		_, ok := wanted[r.ActionType]
		return ok
	})
}

// wireResponses applies the response-construction function to the merged
// response stream and stamps each selected event into the outbound
// request/response delivery shape. Without a response function, unhandled
// responses are logged (non-fatal) and no outbound stream exists.
func wireResponses(
	cfg Config, raw *stream.Stream[Response], loop *stream.Loop,
	logger *Logger, metrics *metric.Runtime,
) (*stream.Stream[any], error) {
	if cfg.Response == nil {
		if raw == nil {
			return nil, nil
		}
		// Function routes are ready-made responses: they are delivered
		// even without a response function. Everything else is
		// unhandled.
		out := stream.New[any](loop)
		sub := raw.Subscribe(func(r Response) {
			if r.ActionType != ActionFunction {
				logger.Warn("unhandled response",
					"request_id", r.RequestID, "action", r.ActionType)
				metrics.RecordDrop(cfg.Name, "unhandled_response")
				return
			}
			ev := driver.ResponseEvent{
				RequestID:  r.RequestID,
				ActionType: r.ActionType,
				Command:    "function",
				Data:       r.Data,
			}
			metrics.RecordResponse(cfg.Name, "function")
			logger.TraceResponse(ev)
			out.Next(ev)
		})
		out.OnDone(sub.Unsubscribe)
		return out, nil
	}

	if cfg.Request == nil {
		return nil, errors.WrapConfig(errors.ErrInvalidResponse,
			"ResponseCollector", "wireResponses", "request map check")
	}

	commands := cfg.Response(&ResponseSelector{responses: raw})
	if commands == nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("response function returned nil: %w", errors.ErrInvalidResponse),
			"ResponseCollector", "wireResponses", "command map validation")
	}

	out := stream.New[any](loop)
	for command, selected := range commands {
		if selected == nil {
			return nil, errors.WrapConfig(
				fmt.Errorf("command %q has nil stream: %w", command, errors.ErrInvalidResponse),
				"ResponseCollector", "wireResponses", "command stream validation")
		}
		sub := selected.Subscribe(func(r Response) {
			if r.RequestID == "" {
				logger.Error("response event missing correlation id",
					errors.ErrMissingRequestID, "command", command, "action", r.ActionType)
				metrics.RecordDrop(cfg.Name, "missing_response_id")
				return
			}
			ev := driver.ResponseEvent{
				RequestID:  r.RequestID,
				ActionType: r.ActionType,
				Command:    command,
				Data:       r.Data,
			}
			metrics.RecordResponse(cfg.Name, command)
			logger.TraceResponse(ev)
			out.Next(ev)
		})
		out.OnDone(sub.Unsubscribe)
	}

	return out, nil
}
