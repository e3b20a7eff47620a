package lastfm

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/shkh/lastfm-go/lastfm"
)

// Authenticator drives the Last.fm desktop authorization flow: request a
// token, have the user approve it in a browser, then exchange it for the
// session key the daemon scrobbles with.
type Authenticator struct {
	api    *lastfm.Api
	apiKey string
}

// NewAuthenticator creates an authenticator with the given API credentials.
func NewAuthenticator(apiKey, apiSecret string) *Authenticator {
	return &Authenticator{
		api:    lastfm.New(apiKey, apiSecret),
		apiKey: apiKey,
	}
}

// GetToken requests an authentication token from Last.fm.
func (a *Authenticator) GetToken() (string, error) {
	token, err := a.api.GetToken()
	if err != nil {
		return "", errors.Wrap(err, "get token")
	}
	return token, nil
}

// AuthURL returns the URL the user must visit to authorize the token.
func (a *Authenticator) AuthURL(token string) string {
	return fmt.Sprintf("https://www.last.fm/api/auth/?api_key=%s&token=%s", a.apiKey, token)
}

// Session exchanges an authorized token for a session key.
func (a *Authenticator) Session(token string) (string, error) {
	if err := a.api.LoginWithToken(token); err != nil {
		return "", errors.Wrap(err, "exchange token for session")
	}
	return a.api.GetSessionKey(), nil
}

// OpenBrowser opens the given URL in the default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return errors.Newf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
