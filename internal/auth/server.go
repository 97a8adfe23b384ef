package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the port Strava redirects back to
	CallbackPort = 8089
	// AuthTimeout bounds how long the user has to approve access
	AuthTimeout = 5 * time.Minute
)

// ErrScopeDenied is returned when the user unticks activity access on the
// Strava consent page
var ErrScopeDenied = errors.New("strava access to activities was not granted")

const successPage = `<!DOCTYPE html>
<html><head><title>velolab</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>velolab can now read your rides</h1>
<p>Return to the terminal to sync them.</p>
</body></html>`

// grant is what the redirect carried back
type grant struct {
	code  string
	scope string
	err   error
}

// callback accepts exactly one redirect carrying the expected state
type callback struct {
	state  string
	grants chan grant
}

func newCallback(state string) *callback {
	return &callback{state: state, grants: make(chan grant, 1)}
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g := grant{code: q.Get("code"), scope: q.Get("scope")}
	switch {
	case q.Get("state") != c.state:
		http.Error(w, "unexpected state", http.StatusBadRequest)
		return
	case q.Get("error") != "":
		g.err = fmt.Errorf("strava refused authorisation: %s", q.Get("error"))
	case g.code == "":
		g.err = errors.New("callback carried no authorisation code")
	case !hasActivityScope(g.scope):
		g.err = ErrScopeDenied
	}

	if g.err != nil {
		http.Error(w, g.err.Error(), http.StatusBadRequest)
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, successPage)
	}
	select {
	case c.grants <- g:
	default:
	}
}

// hasActivityScope reports whether the granted scopes let velolab read
// activity streams, including private rides
func hasActivityScope(scope string) bool {
	for _, s := range strings.Split(scope, ",") {
		if strings.TrimSpace(s) == "activity:read_all" {
			return true
		}
	}
	return false
}

// Authenticate runs the authorisation code flow against a callback server on
// CallbackPort. Prompts are written to out.
func Authenticate(ctx context.Context, cfg *oauth2.Config, out io.Writer, logger *zap.Logger) (*AuthResult, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", CallbackPort))
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, AuthTimeout)
	defer cancel()
	return authorize(ctx, cfg, ln, out, logger)
}

// authorize serves the callback on ln until one redirect arrives or ctx ends,
// then exchanges the code. ln is closed on return.
func authorize(ctx context.Context, cfg *oauth2.Config, ln net.Listener, out io.Writer, logger *zap.Logger) (*AuthResult, error) {
	state := uuid.NewString()
	cb := newCallback(state)

	mux := http.NewServeMux()
	mux.Handle("GET /callback", cb)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	served := make(chan error, 1)
	go func() { served <- server.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(out, "\nTo let velolab read your Strava rides, open this URL in your browser:\n\n  %s\n\nWaiting for authorisation...\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("approval_prompt", "auto")))
	logger.Debug("oauth callback listening", zap.String("addr", ln.Addr().String()))

	var g grant
	select {
	case g = <-cb.grants:
	case err := <-served:
		return nil, fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("no authorisation within %v", AuthTimeout)
		}
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}

	token, err := cfg.Exchange(ctx, g.code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	res := &AuthResult{Token: token, AthleteID: ExtractAthleteID(token), Scope: g.scope}
	logger.Info("strava authorisation complete",
		zap.Int64("strava_athlete_id", res.AthleteID),
		zap.String("scope", res.Scope),
	)
	return res, nil
}
