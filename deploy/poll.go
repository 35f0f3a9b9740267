package deploy

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrPollTimeout reports that the deadline passed before the probe
// succeeded. The deployment may still complete on its own afterwards.
var ErrPollTimeout = errors.New("timed out waiting for deployment")

// PollOptions shapes one polling run.
type PollOptions struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// Poll invokes probe every Interval, starting after the first interval
// elapses, until the probe reports done, returns a terminal error, the
// deadline passes, or ctx is canceled. Transient conditions are expressed as
// (false, nil) so the loop keeps going.
func Poll(ctx context.Context, opts PollOptions, probe func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(opts.MaxWait)
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		done, err := probe(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrPollTimeout
		}
	}
}

// PagesURL is the address GitHub Pages serves a repository at. The special
// <owner>.github.io repository serves at the domain root.
func PagesURL(owner, repo string) string {
	if repo == owner+".github.io" {
		return "https://" + owner + ".github.io"
	}
	return "https://" + owner + ".github.io/" + repo
}

// SiteUp probes url with a HEAD request and reports a 200.
func SiteUp(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
