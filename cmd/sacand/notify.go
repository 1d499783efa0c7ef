package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

// Notifier shows the volume as a desktop notification.
type Notifier interface {
	// Show creates a new notification.
	Show(ctx context.Context, msg Notification) (NotificationHandle, error)

	// Update replaces the text of an existing notification in place and
	// returns the handle to use next time (servers may assign a new id if
	// the old bubble already expired).
	Update(ctx context.Context, h NotificationHandle, msg Notification) (NotificationHandle, error)
}

// Notification is the content of one volume bubble.
type Notification struct {
	Summary string
	Body    string

	// Percent feeds the "value" hint some servers draw as a progress bar.
	Percent float64
}

// volumeNotification builds the bubble for a perceptual percentage.
func volumeNotification(summary string, percent float64) Notification {
	return Notification{
		Summary: summary,
		Body:    formatPercent(percent),
		Percent: percent,
	}
}

// NotificationHandle identifies a notification shown by the server.
type NotificationHandle struct {
	ID uint32
}

// NotificationError wraps a failed notification call.
type NotificationError struct {
	Op  string
	Err error
}

func (e *NotificationError) Error() string { return "notification " + e.Op + ": " + e.Err.Error() }
func (e *NotificationError) Unwrap() error { return e.Err }

const (
	notifyDest      = "org.freedesktop.Notifications"
	notifyPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod    = notifyDest + ".Notify"
	notifyCallLimit = 2 * time.Second
)

// DBusNotifier talks to the freedesktop notification service on the
// session bus.
type DBusNotifier struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	cfg  NotifyConfig
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier(cfg NotifyConfig) (*DBusNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, &NotificationError{Op: "connect", Err: err}
	}
	return &DBusNotifier{
		conn: conn,
		obj:  conn.Object(notifyDest, notifyPath),
		cfg:  cfg,
	}, nil
}

func (n *DBusNotifier) Show(ctx context.Context, msg Notification) (NotificationHandle, error) {
	id, err := n.notify(ctx, 0, msg)
	if err != nil {
		return NotificationHandle{}, &NotificationError{Op: "show", Err: err}
	}
	return NotificationHandle{ID: id}, nil
}

func (n *DBusNotifier) Update(ctx context.Context, h NotificationHandle, msg Notification) (NotificationHandle, error) {
	id, err := n.notify(ctx, h.ID, msg)
	if err != nil {
		return h, &NotificationError{Op: "update", Err: err}
	}
	return NotificationHandle{ID: id}, nil
}

func (n *DBusNotifier) notify(ctx context.Context, replaces uint32, msg Notification) (uint32, error) {
	timeout := time.Duration(n.cfg.CallTimeMS) * time.Millisecond
	if timeout <= 0 {
		timeout = notifyCallLimit
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hints := map[string]dbus.Variant{}
	if n.cfg.ProgressHint {
		hints["value"] = dbus.MakeVariant(int32(clampPercent(msg.Percent)))
	}

	call := n.obj.CallWithContext(ctx, notifyMethod, 0,
		n.cfg.AppName,
		replaces,
		n.cfg.Icon,
		msg.Summary,
		msg.Body,
		[]string{},
		hints,
		int32(n.cfg.TimeoutMS),
	)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("decode notification id: %w", err)
	}
	return id, nil
}

func (n *DBusNotifier) Close() error {
	return n.conn.Close()
}

// logNotifier stands in when the session bus is unreachable: the level still
// shows up in the log.
type logNotifier struct {
	logger *slog.Logger
	nextID uint32
}

func (n *logNotifier) Show(_ context.Context, msg Notification) (NotificationHandle, error) {
	n.nextID++
	n.logger.Info("notification", "summary", msg.Summary, "body", msg.Body)
	return NotificationHandle{ID: n.nextID}, nil
}

func (n *logNotifier) Update(_ context.Context, h NotificationHandle, msg Notification) (NotificationHandle, error) {
	n.logger.Info("notification", "summary", msg.Summary, "body", msg.Body, "id", h.ID)
	return h, nil
}
