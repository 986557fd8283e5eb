package domaininfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/nao1215/phishguard/internal/model"
)

// Lookup errors.
var (
	// ErrNoHost is returned when no host can be extracted from the URL.
	ErrNoHost = errors.New("url has no host")

	// ErrNotADomain is returned when the host is an IP address.
	ErrNotADomain = errors.New("host is an IP address, not a domain")

	// ErrNoRecord is returned when neither the host nor its parents have a WHOIS record.
	ErrNoRecord = errors.New("no whois record found")
)

// DefaultTimeout bounds a single WHOIS query.
const DefaultTimeout = 10 * time.Second

// dateLayouts are the date formats seen in WHOIS output, most common first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"2006/01/02",
}

// QueryFunc fetches the raw WHOIS text for domain.
type QueryFunc func(domain string) (string, error)

// Resolver performs WHOIS lookups.
type Resolver struct {
	query  QueryFunc
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the timeout of the default WHOIS client.
// It has no effect when WithQueryFunc is also used.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		r.query = whoisQuery(timeout)
	}
}

// WithQueryFunc replaces the WHOIS client. Tests use it to avoid the network.
func WithQueryFunc(query QueryFunc) Option {
	return func(r *Resolver) {
		r.query = query
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// whoisQuery returns a QueryFunc backed by a WHOIS client with the given timeout.
func whoisQuery(timeout time.Duration) QueryFunc {
	client := whois.NewClient().SetTimeout(timeout)
	return func(domain string) (string, error) {
		return client.Whois(domain)
	}
}

// withClock overrides the current time for age calculation.
func withClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		query:  whoisQuery(DefaultTimeout),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns registration data for the domain of rawURL.
//
// The host is tried first, then each parent domain down to two labels.
// The first candidate whose WHOIS record has a parseable creation date wins.
func (r *Resolver) Lookup(ctx context.Context, rawURL string) (*model.DomainInfo, error) {
	host := Host(rawURL)
	if host == "" {
		return nil, ErrNoHost
	}
	if net.ParseIP(host) != nil {
		return nil, ErrNotADomain
	}

	var lastErr error
	for _, candidate := range candidates(host) {
		info, err := r.lookupDomain(ctx, candidate)
		if err == nil {
			return info, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Debug("whois lookup failed", "domain", candidate, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w for %s: %w", ErrNoRecord, host, lastErr)
}

func (r *Resolver) lookupDomain(ctx context.Context, domain string) (*model.DomainInfo, error) {
	raw, err := r.queryContext(ctx, domain)
	if err != nil {
		return nil, err
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse whois record: %w", err)
	}
	if parsed.Domain == nil {
		return nil, errors.New("whois record has no domain section")
	}

	created := parseDate(parsed.Domain.CreatedDate)
	if created.IsZero() {
		return nil, fmt.Errorf("unparseable creation date %q", parsed.Domain.CreatedDate)
	}

	info := &model.DomainInfo{
		Domain:    domain,
		CreatedOn: created,
		ExpiresOn: parseDate(parsed.Domain.ExpirationDate),
		AgeDays:   ageDays(created, r.now()),
	}
	if parsed.Registrar != nil {
		info.Registrar = strings.TrimSpace(parsed.Registrar.Name)
	}
	return info, nil
}

// queryContext runs the blocking WHOIS query so that ctx cancellation
// returns promptly. The query itself is bounded by the client timeout.
func (r *Resolver) queryContext(ctx context.Context, domain string) (string, error) {
	type queryResult struct {
		raw string
		err error
	}
	resultCh := make(chan queryResult, 1)

	go func() {
		raw, err := r.query(domain)
		resultCh <- queryResult{raw, err}
	}()

	select {
	case result := <-resultCh:
		return result.raw, result.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Host extracts the lowercase host name from rawURL.
// It accepts URLs with or without a scheme and ignores userinfo and port,
// so "http://google.com@evil.example:8080/x" yields "evil.example".
func Host(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if _, rest, ok := strings.Cut(s, "://"); ok {
		s = rest
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}

	if strings.HasPrefix(s, "[") {
		// IPv6 literal: [::1]:8080
		if end := strings.Index(s, "]"); end > 0 {
			return strings.ToLower(s[1:end])
		}
		return ""
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(strings.ToLower(s), ".")
}

// candidates returns host followed by its parent domains with at least two labels.
func candidates(host string) []string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return []string{host}
	}

	result := make([]string, 0, len(labels)-1)
	for i := 0; i+2 <= len(labels); i++ {
		result = append(result, strings.Join(labels[i:], "."))
	}
	return result
}

// parseDate parses a WHOIS date, returning the zero time when no layout matches.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func ageDays(created, now time.Time) int {
	if now.Before(created) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}
