package evaluate

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/publicsuffix"
)

var (
	ErrNoWebsite    = errors.Base("task has no website URL")
	ErrNoExpiration = errors.Base("whois returned no expiration date")
)

// Domain returns the registrable domain of a website URL. The scheme is
// optional.
func Domain(website string) (string, error) {
	website = strings.TrimSpace(website)
	if website == "" {
		return "", errors.WithStack(ErrNoWebsite)
	}
	if !strings.Contains(website, "://") {
		website = "http://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return "", errors.Errorf("parsing website %q: %w", website, err)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", errors.Errorf("website %q has no host", website)
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", errors.Errorf("finding registrable domain of %q: %w", host, err)
	}
	return d, nil
}

// Whois looks up registrar expiration dates.
type Whois struct {
	client *whois.Client
}

func NewWhois(timeout time.Duration) *Whois {
	return &Whois{client: whois.NewClient().SetTimeout(timeout)}
}

var whoisLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func (w *Whois) Expiration(ctx context.Context, domain string) (time.Time, error) {
	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := w.client.Whois(domain)
		done <- result{raw, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return time.Time{}, errors.WithStack(ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return time.Time{}, errors.Errorf("whois %s: %w", domain, res.err)
	}

	info, err := whoisparser.Parse(res.raw)
	if err != nil {
		return time.Time{}, errors.Errorf("parsing whois for %s: %w", domain, err)
	}
	if info.Domain == nil {
		return time.Time{}, errors.WithStack(ErrNoExpiration)
	}
	if info.Domain.ExpirationDateInTime != nil {
		return *info.Domain.ExpirationDateInTime, nil
	}
	for _, layout := range whoisLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(info.Domain.ExpirationDate)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.WithStack(ErrNoExpiration)
}

// WhoisExpiry resolves the domain of website and returns its registrar
// expiration date.
func (e *Evaluator) WhoisExpiry(ctx context.Context, website string) (time.Time, error) {
	if e.whois == nil {
		return time.Time{}, errors.New("no whois lookup configured")
	}
	domain, err := Domain(website)
	if err != nil {
		return time.Time{}, err
	}
	return e.whois.Expiration(ctx, domain)
}

// Dates are compared by calendar day; WHOIS dates are read in UTC.
func (e *Evaluator) domainExpiration(ctx context.Context, b Binding, website string) Status {
	expiry, err := e.WhoisExpiry(ctx, website)
	if err != nil {
		log.Debugf("domain expiration lookup for %q failed: %v", website, err)
		return Status{State: Failed, Detail: err.Error()}
	}
	whoisDate := expiry.UTC().Format(time.DateOnly)

	stored, ok := b.Field.Time()
	if !ok {
		return Status{State: Outdated, Detail: "not set, whois " + whoisDate}
	}
	storedDate := stored.In(e.Location).Format(time.DateOnly)
	if storedDate == whoisDate {
		return Status{State: Updated, Detail: storedDate}
	}
	return Status{State: Outdated, Detail: "task " + storedDate + ", whois " + whoisDate}
}
