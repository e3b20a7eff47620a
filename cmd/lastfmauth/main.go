// Package main provides the Last.fm authorization tool.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/osa030/scrobd/internal/infra/lastfm"
)

var (
	app       = kingpin.New("lastfmauth", "Last.fm authorization tool for scrobd")
	apiKey    = app.Flag("api-key", "Last.fm API key").Envar("LASTFM_API_KEY").Required().String()
	apiSecret = app.Flag("api-secret", "Last.fm API secret").Envar("LASTFM_API_SECRET").Required().String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	auth := lastfm.NewAuthenticator(*apiKey, *apiSecret)

	token, err := auth.GetToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to request token: %v\n", err)
		os.Exit(1)
	}

	url := auth.AuthURL(token)
	fmt.Println("Please visit the following URL to authorize scrobd:")
	fmt.Println("")
	fmt.Println(url)
	fmt.Println("")

	if err := lastfm.OpenBrowser(url); err != nil {
		fmt.Println("(could not open a browser, visit the URL manually)")
	}

	fmt.Print("Press Enter once you have approved access... ")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

	sessionKey, err := auth.Session(token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get session key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")
	fmt.Println("Session Key:")
	fmt.Println(sessionKey)
	fmt.Println("")
	fmt.Println("Add this to your config.yaml:")
	fmt.Println("")
	fmt.Println("services:")
	fmt.Println("  - type: lastfm")
	fmt.Println("    enabled: true")
	fmt.Println("    settings:")
	fmt.Printf("      api_key: \"%s\"\n", *apiKey)
	fmt.Printf("      api_secret: \"%s\"\n", *apiSecret)
	fmt.Printf("      session_key: \"%s\"\n", sessionKey)
}
