// Package appfilter decides whether playback from a given source
// application should be scrobbled, ignored, or put to the user.
package appfilter

// Action represents the filtering decision for a source application.
type Action int

const (
	ActionAllow   Action = iota // Scrobble playback from this app
	ActionIgnore                // Silently drop playback from this app
	ActionAskUser               // Defer until the user has decided
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionIgnore:
		return "ignore"
	case ActionAskUser:
		return "ask_user"
	default:
		return "unknown"
	}
}

// Rules represents the filtering configuration the classification runs
// against. Allowed and Ignored must be disjoint; config loading enforces
// this before a Rules value is ever built.
type Rules struct {
	PromptForNewApps bool
	ScrobbleUnknown  bool
	Allowed          map[string]struct{}
	Ignored          map[string]struct{}
}

// Classify maps a source application identifier to an action.
//
// Rules, evaluated in order: an absent or empty identifier falls back to
// ScrobbleUnknown; a listed identifier follows its list; anything else is
// prompted for when PromptForNewApps is set and allowed otherwise.
func Classify(appID string, rules Rules) Action {
	if appID == "" {
		if rules.ScrobbleUnknown {
			return ActionAllow
		}
		return ActionIgnore
	}

	if _, ok := rules.Allowed[appID]; ok {
		return ActionAllow
	}
	if _, ok := rules.Ignored[appID]; ok {
		return ActionIgnore
	}

	if rules.PromptForNewApps {
		return ActionAskUser
	}
	return ActionAllow
}
