package evaluate

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"
)

const VersionCheckURL = "https://api.wordpress.org/core/version-check/1.7/"

var ErrNoOffer = errors.Base("version check returned no offers")

// WordPressVersions fetches the latest WordPress release once and remembers it.
// Failed fetches are not cached.
type WordPressVersions struct {
	URL    string
	Client *http.Client

	mu     sync.Mutex
	latest string
}

func NewWordPressVersions(client *http.Client) *WordPressVersions {
	if client == nil {
		client = http.DefaultClient
	}
	return &WordPressVersions{URL: VersionCheckURL, Client: client}
}

func (w *WordPressVersions) Latest(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest != "" {
		return w.latest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL, nil)
	if err != nil {
		return "", errors.Errorf("creating version check request: %w", err)
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return "", errors.Errorf("fetching latest WordPress version: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("fetching latest WordPress version: HTTP %d", resp.StatusCode)
	}

	var body struct {
		Offers []struct {
			Current string `json:"current"`
		} `json:"offers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Errorf("decoding version check: %w", err)
	}
	if len(body.Offers) == 0 || body.Offers[0].Current == "" {
		return "", errors.WithStack(ErrNoOffer)
	}

	w.latest = body.Offers[0].Current
	log.Debugf("latest WordPress version is %s", w.latest)
	return w.latest, nil
}

func (e *Evaluator) version(ctx context.Context, b Binding, _ string) Status {
	current := strings.TrimSpace(b.Field.Text())
	if current == "" {
		return Status{State: Empty}
	}
	if e.versions == nil {
		return Status{State: Unknown, Detail: "no version source"}
	}
	latest, err := e.versions.Latest(ctx)
	if err != nil {
		log.Warnf("WordPress version check failed: %v", err)
		return Status{State: Unknown, Detail: "version check failed"}
	}
	if current == latest {
		return Status{State: Updated, Detail: current}
	}
	return Status{State: Outdated, Detail: current + ", latest " + latest}
}
