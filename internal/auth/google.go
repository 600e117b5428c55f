// Package auth signs a user in with Google using the installed-app
// loopback flow and returns the identity record for the session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/nhle/mailterm/internal/model"
)

// redirectTimeout bounds how long Login waits for the browser.
const redirectTimeout = 3 * time.Minute

// Flow runs the Google sign-in.
type Flow struct {
	cfg *oauth2.Config
	out io.Writer
}

// NewFlow reads the OAuth client JSON at clientSecretPath. Instructions are
// printed to out.
func NewFlow(clientSecretPath string, out io.Writer) (*Flow, error) {
	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w", clientSecretPath, err)
	}

	cfg, err := google.ConfigFromJSON(b,
		oauth2v2.OpenIDScope,
		oauth2v2.UserinfoEmailScope,
		oauth2v2.UserinfoProfileScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}
	return &Flow{cfg: cfg, out: out}, nil
}

// Login sends the user to Google, waits for the redirect on a loopback
// port, exchanges the code, and looks up the user's profile.
func (f *Flow) Login(ctx context.Context) (*oauth2.Token, model.User, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, model.User{}, fmt.Errorf("listen on loopback: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	cfg := *f.cfg
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

	state := uuid.NewString()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintln(f.out, "Open this URL in your browser to sign in:")
	fmt.Fprintln(f.out, authURL)
	fmt.Fprintf(f.out, "Waiting for redirect on %s\n", cfg.RedirectURL)

	waitCtx, cancel := context.WithTimeout(ctx, redirectTimeout)
	defer cancel()

	code, err := receiveCode(waitCtx, ln, state)
	if err != nil {
		return nil, model.User{}, err
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, model.User{}, fmt.Errorf("token exchange: %w", err)
	}

	user, err := fetchUser(ctx, cfg.TokenSource(ctx, tok))
	if err != nil {
		return nil, model.User{}, err
	}
	return tok, user, nil
}

// receiveCode serves the loopback redirect on ln until a code with the
// expected state arrives or ctx ends.
func receiveCode(ctx context.Context, ln net.Listener, state string) (string, error) {
	type result struct {
		code string
		err  error
	}
	resCh := make(chan result, 1)

	mux := http.NewServeMux()
	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code, err := codeFromQuery(r.URL.Query(), state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Signed in. You can close this window.")
		}
		select {
		case resCh <- result{code: code, err: err}:
		default:
		}
	})
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for sign-in redirect: %w", ctx.Err())
	case r := <-resCh:
		return r.code, r.err
	}
}

func codeFromQuery(q url.Values, state string) (string, error) {
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("sign-in denied: %s", e)
	}
	if q.Get("state") != state {
		return "", errors.New("state mismatch in redirect")
	}
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		return "", errors.New("missing 'code' parameter")
	}
	return code, nil
}

func fetchUser(ctx context.Context, ts oauth2.TokenSource) (model.User, error) {
	svc, err := oauth2v2.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return model.User{}, fmt.Errorf("create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return model.User{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	return userFromInfo(info), nil
}

func userFromInfo(info *oauth2v2.Userinfo) model.User {
	return model.User{
		Name:    info.Name,
		Email:   info.Email,
		Picture: info.Picture,
		Subject: info.Id,
	}
}
