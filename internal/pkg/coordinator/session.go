package coordinator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/melcloud"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/metrics"
)

// ensureSession returns the current context key, logging in if there is
// none. sessionMu serializes logins so concurrent callers never race a
// second one; the session is re-checked under the lock.
func (c *Coordinator) ensureSession(ctx context.Context) (string, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.session != "" {
		return c.session, nil
	}
	token, err := c.client.Login(ctx, c.username, c.password)
	if err != nil {
		return "", err
	}
	c.session = token
	c.logger.Info("authenticated with melcloud")
	return token, nil
}

// renewSession replaces a rejected context key. If another caller already
// renewed while we waited on the lock, its session is reused instead of
// logging in again.
func (c *Coordinator) renewSession(ctx context.Context, stale string) (string, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.session != "" && c.session != stale {
		return c.session, nil
	}
	c.session = ""
	token, err := c.client.Login(ctx, c.username, c.password)
	if err != nil {
		return "", err
	}
	c.session = token
	c.logger.Info("session renewed")
	return token, nil
}

// withSession runs fn with a valid session, transparently re-authenticating
// and retrying exactly once when the cloud rejects the session mid-call.
// A failed renewal, or a second rejection of the retried call, is surfaced
// as-is and never retried further.
func (c *Coordinator) withSession(ctx context.Context, fn func(token string) error) error {
	token, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	err = fn(token)
	var authErr *melcloud.AuthenticationError
	if err == nil || !errors.As(err, &authErr) {
		return err
	}

	c.logger.Warn("session rejected, reauthenticating", zap.Error(err))
	metrics.Reauthentications.Inc()
	token, err = c.renewSession(ctx, token)
	if err != nil {
		return err
	}
	return fn(token)
}
