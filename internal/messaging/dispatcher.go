// Package messaging routes typed messages from extension contexts to their
// handlers and wraps every outcome in a {success, data, error} envelope.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/telemetry"
)

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Sender identifies the extension context a message came from.
type Sender struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url,omitempty"`
	Origin string `json:"origin,omitempty"`
	TabID  int    `json:"tabId,omitempty"`
}

// PageOrigin is the origin of the sending page, or "" when unknown.
func (s Sender) PageOrigin() string {
	if s.Origin != "" && s.Origin != "null" {
		return s.Origin
	}
	parsed, err := url.Parse(s.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

type Response struct {
	Success bool             `json:"success"`
	Data    any              `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
	Code    domain.ErrorCode `json:"code,omitempty"`
}

func Success(data any) Response {
	return Response{Success: true, Data: data}
}

func Failure(err error) Response {
	return Response{Success: false, Error: err.Error(), Code: domain.CodeOf(err)}
}

type HandlerFunc func(ctx context.Context, msg Message, sender Sender) (any, error)

// SendFunc delivers a response back over the channel a message arrived on.
type SendFunc func(Response) error

// ListenerFunc reports whether it will answer msg. When it returns true the
// response is delivered later through send.
type ListenerFunc func(ctx context.Context, msg Message, sender Sender, send SendFunc) bool

type HandlerInfo struct {
	Type        string
	Description string
}

type handlerEntry struct {
	handler     HandlerFunc
	description string
}

type Dispatcher struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]handlerEntry
	wg       sync.WaitGroup
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, handlers: make(map[string]handlerEntry)}
}

// Register stores handler for messageType. Registering a type twice replaces
// the earlier handler and logs a warning.
func (d *Dispatcher) Register(messageType string, handler HandlerFunc, description string) {
	d.mu.Lock()
	_, exists := d.handlers[messageType]
	d.handlers[messageType] = handlerEntry{handler: handler, description: description}
	d.mu.Unlock()

	if exists {
		d.logger.Warn("message handler overwritten", "type", messageType)
	}
}

// Dispatch runs the handler for msg.Type. The second result is false when no
// handler is registered, so another listener may take the message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, sender Sender) (Response, bool) {
	d.mu.RLock()
	entry, ok := d.handlers[msg.Type]
	d.mu.RUnlock()
	if !ok {
		return Response{}, false
	}

	data, err := d.invoke(ctx, entry.handler, msg, sender)
	if err != nil {
		d.logger.Debug("message handler failed", "type", msg.Type, "error", err)
		telemetry.RecordMessage(ctx, msg.Type, "error")
		return Failure(err), true
	}

	telemetry.RecordMessage(ctx, msg.Type, "success")
	return Success(data), true
}

// Listener adapts the dispatcher to a callback-style channel. Handlers run on
// their own goroutine; a failing send is logged and dropped.
func (d *Dispatcher) Listener() ListenerFunc {
	return func(ctx context.Context, msg Message, sender Sender, send SendFunc) bool {
		if !d.Has(msg.Type) {
			return false
		}

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()

			response, handled := d.Dispatch(ctx, msg, sender)
			if !handled {
				response = Failure(fmt.Errorf("no handler for message type %q", msg.Type))
			}
			if err := send(response); err != nil {
				d.logger.Debug("response channel closed", "type", msg.Type, "error", err)
			}
		}()
		return true
	}
}

// Wait blocks until every handler started by a listener has delivered its response.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Has(messageType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[messageType]
	return ok
}

func (d *Dispatcher) Types() []HandlerInfo {
	d.mu.RLock()
	infos := make([]HandlerInfo, 0, len(d.handlers))
	for messageType, entry := range d.handlers {
		infos = append(infos, HandlerInfo{Type: messageType, Description: entry.description})
	}
	d.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}

func (d *Dispatcher) invoke(ctx context.Context, handler HandlerFunc, msg Message, sender Sender) (data any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("message handler panicked", "type", msg.Type, "panic", recovered, "stack", string(debug.Stack()))
			data = nil
			err = fmt.Errorf("handler for %q panicked: %v", msg.Type, recovered)
		}
	}()
	return handler(ctx, msg, sender)
}

// Decode unmarshals the message payload into T. An empty payload yields the
// zero value.
func Decode[T any](msg Message) (T, error) {
	var payload T
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return payload, nil
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return payload, fmt.Errorf("%w: malformed %s payload at offset %d", domain.ErrValidation, msg.Type, syntaxErr.Offset)
		}
		return payload, fmt.Errorf("%w: decode %s payload: %v", domain.ErrValidation, msg.Type, err)
	}
	return payload, nil
}
