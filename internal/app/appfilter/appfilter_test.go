package appfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func set(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		appID    string
		rules    Rules
		expected Action
	}{
		{
			name:     "empty id with scrobble_unknown",
			appID:    "",
			rules:    Rules{ScrobbleUnknown: true},
			expected: ActionAllow,
		},
		{
			name:     "empty id without scrobble_unknown",
			appID:    "",
			rules:    Rules{ScrobbleUnknown: false},
			expected: ActionIgnore,
		},
		{
			name:     "allowed app",
			appID:    "com.apple.Music",
			rules:    Rules{Allowed: set("com.apple.Music"), PromptForNewApps: true},
			expected: ActionAllow,
		},
		{
			name:     "ignored app",
			appID:    "com.google.Chrome",
			rules:    Rules{Ignored: set("com.google.Chrome"), PromptForNewApps: true},
			expected: ActionIgnore,
		},
		{
			name:     "unknown app with prompting",
			appID:    "org.videolan.vlc",
			rules:    Rules{PromptForNewApps: true},
			expected: ActionAskUser,
		},
		{
			name:     "unknown app without prompting defaults to allow",
			appID:    "org.videolan.vlc",
			rules:    Rules{PromptForNewApps: false},
			expected: ActionAllow,
		},
		{
			name:  "allow list wins over prompting",
			appID: "com.spotify.Client",
			rules: Rules{
				PromptForNewApps: true,
				Allowed:          set("com.spotify.Client"),
				Ignored:          set("com.google.Chrome"),
			},
			expected: ActionAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.appID, tt.rules))
		})
	}
}

func TestStore_Remember(t *testing.T) {
	var persistedAllowed, persistedIgnored []string
	persist := func(allowed, ignored []string) error {
		persistedAllowed = allowed
		persistedIgnored = ignored
		return nil
	}

	store := NewStore(true, true, nil, nil, persist)
	assert.Equal(t, ActionAskUser, store.Classify("org.videolan.vlc"))

	store.Remember("org.videolan.vlc", true)
	assert.Equal(t, ActionAllow, store.Classify("org.videolan.vlc"))
	assert.Equal(t, []string{"org.videolan.vlc"}, persistedAllowed)
	assert.Empty(t, persistedIgnored)

	// Changing one's mind moves the app between lists.
	store.Remember("org.videolan.vlc", false)
	assert.Equal(t, ActionIgnore, store.Classify("org.videolan.vlc"))
	assert.Empty(t, persistedAllowed)
	assert.Equal(t, []string{"org.videolan.vlc"}, persistedIgnored)
}

func TestStore_Lists(t *testing.T) {
	store := NewStore(true, true, []string{"b.app", "a.app"}, []string{"c.app"}, nil)

	allowed, ignored := store.Lists()
	assert.Equal(t, []string{"a.app", "b.app"}, allowed)
	assert.Equal(t, []string{"c.app"}, ignored)
}

func TestStore_RememberEmptyID(t *testing.T) {
	called := false
	store := NewStore(true, true, nil, nil, func(_, _ []string) error {
		called = true
		return nil
	})

	store.Remember("", true)
	assert.False(t, called)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "allow", ActionAllow.String())
	assert.Equal(t, "ignore", ActionIgnore.String())
	assert.Equal(t, "ask_user", ActionAskUser.String())
}
