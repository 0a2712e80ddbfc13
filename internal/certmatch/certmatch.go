// Package certmatch selects a certificate id for a set of requested
// domains, caching the certificate list briefly to avoid a round trip per
// reconcile.
package certmatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// CacheTTL is how long the certificate list is considered fresh.
const CacheTTL = 5 * time.Minute

// Matcher selects certificates by exact, primary, or wildcard domain match.
type Matcher struct {
	client out.ProxyManagerClient

	mu        sync.Mutex
	certs     []*domain.RemoteResource
	fetchedAt time.Time
}

// New constructs a Matcher over the given proxy-manager client.
func New(client out.ProxyManagerClient) *Matcher {
	return &Matcher{client: client}
}

// Match returns the id of the best matching certificate for the given
// requested domains, or 0 if none match.
func (m *Matcher) Match(ctx context.Context, domains []string) (int, error) {
	if len(domains) == 0 {
		return 0, nil
	}
	certs, err := m.certificates(ctx)
	if err != nil {
		return 0, err
	}

	if id := matchExact(certs, domains); id != 0 {
		return id, nil
	}
	if id := matchPrimary(certs, domains[0]); id != 0 {
		return id, nil
	}
	if id := matchWildcard(certs, domains[0]); id != 0 {
		return id, nil
	}
	return 0, nil
}

func (m *Matcher) certificates(ctx context.Context) ([]*domain.RemoteResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.fetchedAt) < CacheTTL && m.certs != nil {
		return m.certs, nil
	}

	ctx = logging.Component(ctx, "certmatch")
	all, err := m.client.List(ctx, out.ResourceCertificates)
	if err != nil {
		return nil, err
	}

	certs := make([]*domain.RemoteResource, 0, len(all))
	for _, c := range all {
		if c.Enabled && !c.IsDeleted {
			certs = append(certs, c)
		}
	}

	m.certs = certs
	m.fetchedAt = time.Now()
	return certs, nil
}

func matchExact(certs []*domain.RemoteResource, requested []string) int {
	for _, c := range certs {
		set := domainSet(c.DomainNames)
		all := true
		for _, d := range requested {
			if _, ok := set[strings.ToLower(d)]; !ok {
				all = false
				break
			}
		}
		if all {
			return c.ID
		}
	}
	return 0
}

func matchPrimary(certs []*domain.RemoteResource, primary string) int {
	primary = strings.ToLower(primary)
	for _, c := range certs {
		if _, ok := domainSet(c.DomainNames)[primary]; ok {
			return c.ID
		}
	}
	return 0
}

func matchWildcard(certs []*domain.RemoteResource, primary string) int {
	primary = strings.ToLower(primary)
	for _, c := range certs {
		for _, d := range c.DomainNames {
			d = strings.ToLower(d)
			root, ok := strings.CutPrefix(d, "*.")
			if !ok {
				continue
			}
			if !strings.HasSuffix(primary, "."+root) {
				continue
			}
			label := strings.TrimSuffix(primary, "."+root)
			if label != "" {
				return c.ID
			}
		}
	}
	return 0
}

func domainSet(domains []string) map[string]struct{} {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[strings.ToLower(d)] = struct{}{}
	}
	return set
}
