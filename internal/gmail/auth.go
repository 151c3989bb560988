// Package gmail creates report delivery drafts through the Gmail API.
package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/Jasperb3/TransitReader/internal/config"
)

// Authenticator manages the OAuth credential pair on disk: the app's client
// secret and the user's token. A token that can refresh is refreshed and
// persisted; a dead token requires re-running the interactive flow.
type Authenticator struct {
	cfg config.GmailConfig
}

func NewAuthenticator(cfg config.GmailConfig) *Authenticator {
	return &Authenticator{cfg: cfg}
}

func (a *Authenticator) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(a.cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read %s (download OAuth client credentials from the cloud console): %w",
			a.cfg.CredentialsPath, err)
	}
	oc, err := google.ConfigFromJSON(data, gmailapi.GmailComposeScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return oc, nil
}

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.cfg.TokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tok, nil
}

func (a *Authenticator) saveToken(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(a.cfg.TokenPath, data, 0o600)
}

// Service returns an authorized Gmail service. The stored token is refreshed
// and re-persisted when the provider rotates it.
func (a *Authenticator) Service(ctx context.Context) (*gmailapi.Service, error) {
	oc, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	tok, err := a.loadToken()
	if err != nil {
		return nil, fmt.Errorf("no usable token at %s, run the auth command first: %w", a.cfg.TokenPath, err)
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token at %s expired %s and cannot refresh, run the auth command again",
			a.cfg.TokenPath, tok.Expiry.Format(time.RFC3339))
	}

	source := oc.TokenSource(ctx, tok)
	fresh, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if fresh.AccessToken != tok.AccessToken {
		if err := a.saveToken(fresh); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(fresh)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

// Authorize runs the interactive consent flow: it prints the authorization
// URL, reads the code from input, and stores the resulting token.
func (a *Authenticator) Authorize(ctx context.Context, in io.Reader, out io.Writer) error {
	oc, err := a.oauthConfig()
	if err != nil {
		return err
	}

	url := oc.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open this link in your browser, approve access, then paste the code:\n%s\n\nCode: ", url)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("no authorization code provided")
	}
	code := scanner.Text()

	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := a.saveToken(tok); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(out, "Token saved to %s\n", a.cfg.TokenPath)
	return nil
}
