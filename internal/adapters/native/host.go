// Package native speaks the browser's native messaging protocol on a pair of
// streams: each frame is a 4-byte little-endian length followed by UTF-8 JSON.
package native

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/messaging"
)

const (
	MaxInboundFrame  = 64 << 20
	MaxOutboundFrame = 1 << 20
)

// CodeUnhandled answers a message no listener accepted.
const CodeUnhandled domain.ErrorCode = "unhandled"

var ErrFrameTooLarge = errors.New("native message frame too large")

type inboundFrame struct {
	ID     json.RawMessage   `json:"id,omitempty"`
	Type   string            `json:"type"`
	Data   json.RawMessage   `json:"data,omitempty"`
	Sender *messaging.Sender `json:"sender,omitempty"`
}

type outboundFrame struct {
	ID json.RawMessage `json:"id,omitempty"`
	messaging.Response
}

type Host struct {
	in        io.Reader
	out       io.Writer
	listeners []messaging.ListenerFunc
	logger    *slog.Logger

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func NewHost(in io.Reader, out io.Writer, logger *slog.Logger, listeners ...messaging.ListenerFunc) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{in: in, out: out, listeners: listeners, logger: logger}
}

// Serve reads frames until the input closes or ctx is done, then waits for
// pending responses. A clean end of input returns nil.
func (h *Host) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(frames)
		for {
			payload, err := ReadFrame(h.in)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case payload, ok := <-frames:
			if !ok {
				err = <-readErr
				break loop
			}
			h.handle(ctx, payload)
		}
	}

	h.wg.Wait()
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Host) handle(ctx context.Context, payload []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		h.logger.Warn("discarding malformed native message", "error", err)
		h.write(outboundFrame{Response: messaging.Failure(fmt.Errorf("%w: malformed message: %v", domain.ErrValidation, err))})
		return
	}

	msg := messaging.Message{Type: frame.Type, Data: frame.Data}
	sender := messaging.Sender{}
	if frame.Sender != nil {
		sender = *frame.Sender
	}

	h.wg.Add(1)
	var once sync.Once
	send := func(response messaging.Response) error {
		err := errors.New("response already sent")
		once.Do(func() {
			defer h.wg.Done()
			err = h.write(outboundFrame{ID: frame.ID, Response: response})
		})
		return err
	}

	for _, listener := range h.listeners {
		if listener(ctx, msg, sender, send) {
			return
		}
	}

	h.logger.Debug("unhandled native message", "type", frame.Type)
	_ = send(messaging.Response{
		Success: false,
		Error:   fmt.Sprintf("no handler for message type %q", frame.Type),
		Code:    CodeUnhandled,
	})
}

func (h *Host) write(frame outboundFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("encode native response", "error", err)
		payload, err = json.Marshal(outboundFrame{ID: frame.ID, Response: messaging.Failure(fmt.Errorf("encode response: %w", err))})
		if err != nil {
			return err
		}
	}
	if len(payload) > MaxOutboundFrame {
		h.logger.Warn("native response too large", "bytes", len(payload))
		payload, err = json.Marshal(outboundFrame{ID: frame.ID, Response: messaging.Failure(&domain.UpstreamError{
			Service: "native host",
			Message: fmt.Sprintf("response of %d bytes exceeds the %d byte limit", len(payload), MaxOutboundFrame),
		})})
		if err != nil {
			return err
		}
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return WriteFrame(h.out, payload)
}

func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read frame header: %w", err)
		}
		return nil, err
	}

	size := binary.LittleEndian.Uint32(header[:])
	if size > MaxInboundFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return payload, nil
}

func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxInboundFrame {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}
