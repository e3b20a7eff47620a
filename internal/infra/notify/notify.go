// Package notify provides desktop notifications via D-Bus, including
// actionable prompts for deciding on unknown player apps.
package notify

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Action is a clickable button on a notification.
type Action struct {
	Key   string
	Label string
}

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Path to image file or icon name (optional)
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
	Actions    []Action
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are unavailable.
	Notify(n Notification) (uint32, error)
	// Ask sends a notification with actions and calls onResult once with
	// the clicked action key, or with an empty key when the notification
	// is dismissed. An ID of 0 means notifications are unavailable and
	// onResult will never be called.
	Ask(n Notification, onResult func(key string)) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
	// Shutdown releases signal subscriptions.
	Shutdown() error
}
