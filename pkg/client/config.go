package client

import (
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/solixsync/solixsync/pkg/cache"
	"github.com/solixsync/solixsync/pkg/poll"
	"github.com/solixsync/solixsync/pkg/session"
	"github.com/solixsync/solixsync/pkg/tokenstore"
)

// Configured sets up a Client from flags. Fields are populated once
// lflag.Configure runs.
func Configured() *Client {
	email := lflag.RequiredString("solix-email", "Account email for the Solix cloud API")
	password := lflag.RequiredString("solix-password", "Account password")
	country := lflag.String("solix-country", "DE", "Two-letter account country code")
	region := lflag.String("solix-region", "", "API region override (com or eu, default derived from country)")
	tokenDir := lflag.String("token-dir", "", "Directory for cached login tokens (default: system temp)")
	testDir := lflag.String("test-dir", "", "Fixture directory enabling file-replay mode")
	delay := lflag.Duration("request-delay", 0, "Minimum delay between API requests, clamped to 100ms-5s")

	c := &Client{}
	lflag.Do(func() {
		store, err := tokenstore.NewFileStore(*tokenDir)
		if err != nil {
			panic(fmt.Sprintf("token store setup failed: %v", err))
		}
		s, err := session.New(session.Config{
			Email:        *email,
			Password:     *password,
			Country:      *country,
			Region:       *region,
			Store:        store,
			TestDir:      *testDir,
			RequestDelay: *delay,
		})
		if err != nil {
			panic(fmt.Sprintf("session setup failed: %v", err))
		}
		c.session = s
		c.cache = cache.New()
		c.poller = poll.New(s, c.cache, *country)
	})
	return c
}
