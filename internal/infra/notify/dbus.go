//go:build linux

package notify

import (
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"
)

// dbusNotifier sends notifications via D-Bus and listens for action
// clicks on the ones sent through Ask.
type dbusNotifier struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	signals chan *dbus.Signal

	mu      sync.Mutex
	pending map[uint32]func(key string)
	done    chan struct{}
}

// New creates a Notifier that sends desktop notifications via D-Bus.
// Returns a no-op notifier if D-Bus is unavailable.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		// Graceful fallback when no session bus is running.
		return &stubNotifier{}, nil //nolint:nilerr
	}

	n := &dbusNotifier{
		conn:    conn,
		obj:     conn.Object(dbusNotifyDest, dbusNotifyPath),
		signals: make(chan *dbus.Signal, 16),
		pending: make(map[uint32]func(key string)),
		done:    make(chan struct{}),
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(dbusNotifyPath),
		dbus.WithMatchInterface(dbusNotifyInterface),
	); err != nil {
		return &stubNotifier{}, nil //nolint:nilerr
	}
	conn.Signal(n.signals)
	go n.watchSignals()

	return n, nil
}

// Notify sends a notification via D-Bus.
func (n *dbusNotifier) Notify(notif Notification) (uint32, error) {
	return n.send(notif)
}

// Ask sends a notification with actions and registers onResult for its
// outcome.
func (n *dbusNotifier) Ask(notif Notification, onResult func(key string)) (uint32, error) {
	id, err := n.send(notif)
	if err != nil {
		return 0, err
	}

	n.mu.Lock()
	n.pending[id] = onResult
	n.mu.Unlock()

	return id, nil
}

func (n *dbusNotifier) send(notif Notification) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(notif.Urgency)),
		"desktop-entry": dbus.MakeVariant("scrobd"),
	}

	// Actions are flattened to [key1, label1, key2, label2, ...].
	actions := make([]string, 0, len(notif.Actions)*2)
	for _, a := range notif.Actions {
		actions = append(actions, a.Key, a.Label)
	}

	// D-Bus Notify method signature:
	// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout) -> id
	call := n.obj.Call(
		dbusNotifyInterface+".Notify",
		0,
		"scrobd",
		notif.ReplacesID,
		notif.Icon,
		notif.Title,
		notif.Body,
		actions,
		hints,
		notif.Timeout,
	)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}

	return id, nil
}

// Close closes a notification by ID.
func (n *dbusNotifier) Close(id uint32) error {
	call := n.obj.Call(dbusNotifyInterface+".CloseNotification", 0, id)
	return call.Err
}

// Shutdown stops the signal watcher.
func (n *dbusNotifier) Shutdown() error {
	close(n.done)
	n.conn.RemoveSignal(n.signals)
	return nil
}

// watchSignals dispatches ActionInvoked and NotificationClosed signals
// to the pending handlers. A close without a prior action click reports
// an empty key.
func (n *dbusNotifier) watchSignals() {
	for {
		select {
		case <-n.done:
			return
		case sig, ok := <-n.signals:
			if !ok {
				return
			}
			switch sig.Name {
			case dbusNotifyInterface + ".ActionInvoked":
				if len(sig.Body) < 2 {
					continue
				}
				id, _ := sig.Body[0].(uint32)
				key, _ := sig.Body[1].(string)
				n.resolve(id, key)
			case dbusNotifyInterface + ".NotificationClosed":
				if len(sig.Body) < 1 {
					continue
				}
				id, _ := sig.Body[0].(uint32)
				n.resolve(id, "")
			}
		}
	}
}

// resolve fires and removes the handler for id, if one is registered.
func (n *dbusNotifier) resolve(id uint32, key string) {
	n.mu.Lock()
	fn, ok := n.pending[id]
	if ok {
		delete(n.pending, id)
	}
	n.mu.Unlock()

	if ok {
		fn(key)
	}
}
