package client

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"
)

const (
	defaultAuthPrefix = "/auth/"
	refreshKey        = "refresh"
)

type (
	noAuthKey  struct{}
	retriedKey struct{}
)

// WithoutAuth marks requests that must go out without a bearer token and
// must never trigger a refresh.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, noAuthKey{}, true)
}

func isWithoutAuth(ctx context.Context) bool {
	v, _ := ctx.Value(noAuthKey{}).(bool)
	return v
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// RefreshFunc obtains a new access token. It is expected to store the token
// in the session itself.
type RefreshFunc func(ctx context.Context) (string, error)

// Transport attaches the session's access token to outgoing requests. On a
// 401 it refreshes the token once, shared by every request that failed
// concurrently, and replays the request a single time.
type Transport struct {
	Base       http.RoundTripper
	Session    *Session
	Refresh    RefreshFunc
	AuthPrefix string

	group singleflight.Group
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.skip(req) {
		return t.base().RoundTrip(req)
	}

	sent := t.Session.AccessToken()

	resp, err := t.base().RoundTrip(withToken(req.Context(), req, sent))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || isRetried(req.Context()) || !replayable(req) {
		return resp, nil
	}

	token := t.Session.AccessToken()
	if token == "" || token == sent {
		token, err = t.refresh(req.Context())
		if err != nil {
			t.Session.Clear()
			return resp, nil
		}
	}

	retry := withToken(context.WithValue(req.Context(), retriedKey{}, true), req, token)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return t.base().RoundTrip(retry)
}

// refresh runs at most one refresh at a time. The caller's cancellation does
// not abort a refresh other requests may be waiting on.
func (t *Transport) refresh(ctx context.Context) (string, error) {
	ctx = WithoutAuth(context.WithoutCancel(ctx))

	v, err, _ := t.group.Do(refreshKey, func() (any, error) {
		return t.Refresh(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (t *Transport) skip(req *http.Request) bool {
	if isWithoutAuth(req.Context()) {
		return true
	}

	prefix := t.AuthPrefix
	if prefix == "" {
		prefix = defaultAuthPrefix
	}

	return strings.HasPrefix(req.URL.Path, prefix)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}

	return http.DefaultTransport
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func withToken(ctx context.Context, req *http.Request, token string) *http.Request {
	out := req.Clone(ctx)
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	return out
}
