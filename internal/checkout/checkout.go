// Package checkout implements the builtin checkout step: clone a repository
// into the job workspace with branch selection, shallow depth, auth and a
// retry policy for transient failures.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/conveyor/internal/config"
	cverrors "git.home.luguber.info/inful/conveyor/internal/errors"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/retry"
)

// Client performs source checkouts.
type Client struct {
	cfg    config.CheckoutConfig
	policy retry.Policy
}

// NewClient creates a checkout client with the given defaults.
func NewClient(cfg config.CheckoutConfig) *Client {
	return &Client{cfg: cfg, policy: retry.FromConfig(cfg.Retry)}
}

// Request describes one checkout.
type Request struct {
	URL    string
	Branch string
	Dest   string
}

// Checkout clones the repository into req.Dest, retrying transient failures
// per the configured policy.
func (c *Client) Checkout(ctx context.Context, req Request) error {
	if req.URL == "" {
		return fmt.Errorf("checkout requires a repository url")
	}
	err := c.policy.Do(ctx, func() error {
		return c.cloneOnce(ctx, req)
	}, func(err error) bool { return !isPermanent(err) })
	if err != nil {
		return cverrors.Wrap(err, cverrors.CategoryGit, cverrors.SeverityError, "checkout failed").
			WithContext("url", req.URL)
	}
	return nil
}

func (c *Client) cloneOnce(ctx context.Context, req Request) error {
	slog.Debug("cloning repository", "url", req.URL, logfields.Branch(req.Branch), logfields.Path(req.Dest))
	if err := os.RemoveAll(req.Dest); err != nil {
		return fmt.Errorf("failed to remove existing directory: %w", err)
	}

	cloneOptions := &git.CloneOptions{URL: req.URL}
	if req.Branch != "" {
		cloneOptions.ReferenceName = plumbing.ReferenceName("refs/heads/" + req.Branch)
		cloneOptions.SingleBranch = true
	}
	if c.cfg.ShallowDepth > 0 {
		cloneOptions.Depth = c.cfg.ShallowDepth
	}
	if c.cfg.Auth != nil {
		auth, err := buildAuth(c.cfg.Auth)
		if err != nil {
			return fmt.Errorf("failed to setup authentication: %w", err)
		}
		cloneOptions.Auth = auth
	}

	repository, err := git.PlainCloneContext(ctx, req.Dest, false, cloneOptions)
	if err != nil {
		return classifyCloneError(req.URL, err)
	}
	if ref, herr := repository.Head(); herr == nil {
		slog.Info("repository cloned", "url", req.URL, "commit", ref.Hash().String()[:8], logfields.Path(req.Dest))
	} else {
		slog.Info("repository cloned", "url", req.URL, logfields.Path(req.Dest))
	}
	return nil
}
