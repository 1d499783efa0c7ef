package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"
)

// ============================================================================
// Session Loop - Unix Domain Socket Control Channel
// ============================================================================
// One connection at a time, start to finish:
//
//   Idle --bind--> AwaitingConnection --accept--> HandlingConnection
//                        ^                               |
//                        +-------------------------------+
//   AwaitingConnection --accept error--> Failed
//
// Handling a connection means: read the payload until the peer closes its
// write side, read the mixer, parse, write the new level, refresh the
// notification. A failure in any of those steps fails that connection only;
// the loop keeps serving. A stuck client is cut off by the read deadline.
//
// The mixer and the notification handle are owned by the loop goroutine.
// ============================================================================

// SessionState is the control-channel state.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateAwaitingConnection
	StateHandlingConnection
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingConnection:
		return "awaiting_connection"
	case StateHandlingConnection:
		return "handling_connection"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

// StatusPublisher receives the level after every handled connection.
// Implementations must not block.
type StatusPublisher interface {
	PublishVolume(v VolumeStatus)
}

// VolumeStatus is one observation of the mirrored control.
type VolumeStatus struct {
	Percent float64
	Raw     int64
	Max     int64
	Command string
	At      time.Time
}

// SessionConfig configures the control channel.
type SessionConfig struct {
	SocketPath  string
	ReadTimeout time.Duration // zero disables the deadline
	MaxPayload  int64
	Summary     string
}

// Session serves the control channel.
type Session struct {
	cfg      SessionConfig
	mixer    Mixer
	notifier Notifier
	status   StatusPublisher
	logger   *slog.Logger

	state atomic.Int32

	// At most one notification is on screen; it is updated in place.
	notification *NotificationHandle
}

// NewSession wires a session. status may be nil.
func NewSession(cfg SessionConfig, mixer Mixer, notifier Notifier, status StatusPublisher, logger *slog.Logger) *Session {
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = defaultMaxPayloadBytes
	}
	if cfg.Summary == "" {
		cfg.Summary = defaultSummary
	}
	return &Session{
		cfg:      cfg,
		mixer:    mixer,
		notifier: notifier,
		status:   status,
		logger:   logger,
	}
}

// State reports the current state. Safe from any goroutine.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(st SessionState) {
	prev := SessionState(s.state.Swap(int32(st)))
	if prev != st {
		s.logger.Debug("session state", "from", prev, "to", st)
	}
}

// Listen removes a stale socket left by a previous run and binds the
// control channel.
func (s *Session) Listen() (net.Listener, error) {
	path := s.cfg.SocketPath

	switch err := os.Remove(path); {
	case err == nil:
		s.logger.Info("removed stale socket", "socket", path)
	case errors.Is(err, os.ErrNotExist):
		s.logger.Debug("no stale socket to remove", "socket", path)
	default:
		s.logger.Warn("could not remove stale socket", "socket", path, "error", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}

	// The runtime dir is per-user; keep the socket that way too.
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	s.logger.Info("control socket listening", "socket", path)
	return listener, nil
}

// Run binds the control channel and serves it until ctx is canceled or
// accepting fails.
func (s *Session) Run(ctx context.Context) error {
	listener, err := s.Listen()
	if err != nil {
		s.setState(StateFailed)
		return err
	}
	defer os.Remove(s.cfg.SocketPath)
	return s.Serve(ctx, listener)
}

// Serve accepts and handles connections sequentially. It closes listener
// before returning. It returns nil on shutdown and the accept error otherwise.
func (s *Session) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()

	// Close the listener on shutdown. This unblocks Accept().
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = listener.Close()
		case <-stop:
		}
	}()

	for {
		s.setState(StateAwaitingConnection)

		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Debug("control listener closed (shutdown)")
				return nil
			}
			s.setState(StateFailed)
			return fmt.Errorf("accept: %w", err)
		}

		s.setState(StateHandlingConnection)
		if err := s.handleConn(ctx, conn); err != nil {
			s.logger.Error("control request failed", "error", err)
		}
	}
}

// handleConn processes one client start to finish.
func (s *Session) handleConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	if s.cfg.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}

	payload, err := io.ReadAll(io.LimitReader(conn, s.cfg.MaxPayload))
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return fmt.Errorf("read payload: client did not finish within %s", s.cfg.ReadTimeout)
		}
		return fmt.Errorf("read payload: %w", err)
	}
	s.logger.Debug("control message", "bytes", len(payload))

	st, err := s.apply(ParseCommand(string(payload)))
	if err != nil {
		return err
	}

	s.showVolume(ctx, st.Percent)
	if s.status != nil {
		s.status.PublishVolume(st)
	}
	return nil
}

// apply reads the current level, applies cmd and writes the result.
func (s *Session) apply(cmd Command) (VolumeStatus, error) {
	avg, max, err := readMixerLevel(s.mixer)
	if err != nil {
		return VolumeStatus{}, err
	}
	current, err := RawToPercent(avg, max)
	if err != nil {
		return VolumeStatus{}, err
	}

	st := VolumeStatus{
		Percent: current,
		Raw:     avg,
		Max:     max,
		Command: cmd.String(),
		At:      time.Now(),
	}

	if _, ok := cmd.(NoOp); ok {
		s.logger.Debug("volume unchanged", "percent", current, "raw", avg)
		return st, nil
	}

	target := roundPercent(clampPercent(cmd.Apply(current)))
	raw, err := PercentToRaw(target, max)
	if err != nil {
		return VolumeStatus{}, err
	}
	if err := s.mixer.SetAll(raw); err != nil {
		return VolumeStatus{}, err
	}

	s.logger.Info("volume set", "command", cmd.String(), "from_percent", current, "to_percent", target, "raw", raw)
	st.Percent = target
	st.Raw = raw
	return st, nil
}

// showVolume creates the notification on first use and updates it after.
// Failures are logged; the volume itself is already applied.
func (s *Session) showVolume(ctx context.Context, percent float64) {
	if s.notifier == nil {
		return
	}
	msg := volumeNotification(s.cfg.Summary, percent)

	if s.notification == nil {
		h, err := s.notifier.Show(ctx, msg)
		if err != nil {
			s.logger.Warn("could not show notification", "error", err)
			return
		}
		s.notification = &h
		return
	}

	h, err := s.notifier.Update(ctx, *s.notification, msg)
	if err != nil {
		s.logger.Warn("could not update notification", "error", err, "id", s.notification.ID)
		return
	}
	*s.notification = h
}
