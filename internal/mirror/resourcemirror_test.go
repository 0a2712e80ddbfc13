package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/domain"
)

// fakeClient is an in-memory out.ProxyManagerClient, keyed by kind, used to
// exercise the Resource Mirror without a real HTTP server.
type fakeClient struct {
	url     string
	nextID  int
	byKind  map[string][]*domain.RemoteResource
}

func newFakeClient(url string) *fakeClient {
	return &fakeClient{url: url, byKind: map[string][]*domain.RemoteResource{}}
}

func (f *fakeClient) NPMURL() string { return f.url }

func (f *fakeClient) List(_ context.Context, kind string) ([]*domain.RemoteResource, error) {
	return f.byKind[kind], nil
}

func (f *fakeClient) Create(_ context.Context, kind string, payload map[string]any) (*domain.RemoteResource, error) {
	f.nextID++
	r := fromPayload(f.nextID, kind, payload)
	f.byKind[kind] = append(f.byKind[kind], r)
	return r, nil
}

func (f *fakeClient) Update(_ context.Context, kind string, id int, payload map[string]any) (*domain.RemoteResource, error) {
	for i, r := range f.byKind[kind] {
		if r.ID == id {
			updated := fromPayload(id, kind, payload)
			f.byKind[kind][i] = updated
			return updated, nil
		}
	}
	return nil, assert.AnError
}

func (f *fakeClient) Delete(_ context.Context, kind string, id int) error {
	list := f.byKind[kind]
	for i, r := range list {
		if r.ID == id {
			f.byKind[kind] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeClient) seed(kind string, r *domain.RemoteResource) {
	if r.ID == 0 {
		f.nextID++
		r.ID = f.nextID
	}
	f.byKind[kind] = append(f.byKind[kind], r)
}

func fromPayload(id int, kind string, payload map[string]any) *domain.RemoteResource {
	raw := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		raw[k] = v
	}
	raw["id"] = float64(id)

	r := &domain.RemoteResource{ID: id, Enabled: true, Raw: raw}
	switch kind {
	case out.ResourceProxyHosts, out.ResourceRedirectionHosts, out.ResourceDeadHosts:
		if names, ok := payload["domain_names"].([]string); ok {
			r.DomainNames = names
		}
	case out.ResourceCertificates, out.ResourceAccessLists:
		if name, ok := payload["nice_name"].(string); ok {
			r.NiceName = name
		}
	case out.ResourceStreams:
		if port, ok := payload["incoming_port"].(int); ok {
			r.IncomingPort = port
		}
	}
	return r
}

func TestSyncTarget_CreatesMissingProxyHostsOnSecondary(t *testing.T) {
	primary := newFakeClient("https://primary.test")
	primary.seed(out.ResourceProxyHosts, &domain.RemoteResource{
		DomainNames: []string{"e.test"},
		Raw:         map[string]any{"domain_names": []string{"e.test"}, "forward_host": "echo", "forward_port": 80},
	})
	secondary := newFakeClient("https://secondary.test")

	stats := SyncTarget(context.Background(), primary, Target{Name: "secondary", Client: secondary})

	proxyStats := findStats(stats, out.ResourceProxyHosts)
	require.NotNil(t, proxyStats)
	assert.Equal(t, 1, proxyStats.Synced)
	assert.Equal(t, 0, proxyStats.Skipped)
	assert.Len(t, secondary.byKind[out.ResourceProxyHosts], 1)
}

func TestSyncTarget_IsIdempotent(t *testing.T) {
	primary := newFakeClient("https://primary.test")
	primary.seed(out.ResourceProxyHosts, &domain.RemoteResource{
		DomainNames: []string{"e.test"},
		Raw:         map[string]any{"domain_names": []string{"e.test"}, "forward_host": "echo", "forward_port": 80},
	})
	secondary := newFakeClient("https://secondary.test")

	SyncTarget(context.Background(), primary, Target{Name: "secondary", Client: secondary})
	stats := SyncTarget(context.Background(), primary, Target{Name: "secondary", Client: secondary})

	proxyStats := findStats(stats, out.ResourceProxyHosts)
	require.NotNil(t, proxyStats)
	assert.Equal(t, 0, proxyStats.Synced)
	assert.Equal(t, 1, proxyStats.Skipped)
}

func TestSyncTarget_SkipsCertificateCreation(t *testing.T) {
	primary := newFakeClient("https://primary.test")
	primary.seed(out.ResourceCertificates, &domain.RemoteResource{
		NiceName: "wildcard",
		Raw:      map[string]any{"nice_name": "wildcard", "domain_names": []string{"*.test"}},
	})
	secondary := newFakeClient("https://secondary.test")

	stats := SyncTarget(context.Background(), primary, Target{Name: "secondary", Client: secondary})

	certStats := findStats(stats, out.ResourceCertificates)
	require.NotNil(t, certStats)
	assert.Equal(t, 0, certStats.Synced)
	assert.Equal(t, 1, certStats.Skipped)
	assert.Empty(t, secondary.byKind[out.ResourceCertificates])
}

func TestSyncTarget_SkipsDeletedPrimaryResources(t *testing.T) {
	primary := newFakeClient("https://primary.test")
	primary.seed(out.ResourceProxyHosts, &domain.RemoteResource{
		IsDeleted:   true,
		DomainNames: []string{"gone.test"},
		Raw:         map[string]any{"domain_names": []string{"gone.test"}, "forward_host": "echo", "forward_port": 80},
	})
	secondary := newFakeClient("https://secondary.test")

	stats := SyncTarget(context.Background(), primary, Target{Name: "secondary", Client: secondary})

	proxyStats := findStats(stats, out.ResourceProxyHosts)
	require.NotNil(t, proxyStats)
	assert.Equal(t, 0, proxyStats.Synced)
	assert.Equal(t, 0, proxyStats.Skipped)
	assert.Empty(t, secondary.byKind[out.ResourceProxyHosts])
}

func TestSyncTarget_IgnoresDeletedSecondaryCandidate(t *testing.T) {
	primary := newFakeClient("https://primary.test")
	primary.seed(out.ResourceProxyHosts, &domain.RemoteResource{
		DomainNames: []string{"e.test"},
		Raw:         map[string]any{"domain_names": []string{"e.test"}, "forward_host": "echo", "forward_port": 80},
	})
	secondary := newFakeClient("https://secondary.test")
	secondary.seed(out.ResourceProxyHosts, &domain.RemoteResource{
		IsDeleted:   true,
		DomainNames: []string{"e.test"},
		Raw:         map[string]any{"domain_names": []string{"e.test"}, "forward_host": "stale", "forward_port": 81},
	})

	stats := SyncTarget(context.Background(), primary, Target{Name: "secondary", Client: secondary})

	proxyStats := findStats(stats, out.ResourceProxyHosts)
	require.NotNil(t, proxyStats)
	assert.Equal(t, 1, proxyStats.Synced, "a deleted secondary candidate must not be matched, so a new one is created")
	assert.Len(t, secondary.byKind[out.ResourceProxyHosts], 2)
}

func findStats(stats []kindStats, kind string) *kindStats {
	for i := range stats {
		if stats[i].Kind == kind {
			return &stats[i]
		}
	}
	return nil
}
