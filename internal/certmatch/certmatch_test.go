package certmatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/domain"
)

type fakeClient struct {
	certs     []*domain.RemoteResource
	listCalls int
}

func (f *fakeClient) List(ctx context.Context, kind string) ([]*domain.RemoteResource, error) {
	f.listCalls++
	return f.certs, nil
}
func (f *fakeClient) Create(ctx context.Context, kind string, payload map[string]any) (*domain.RemoteResource, error) {
	return nil, nil
}
func (f *fakeClient) Update(ctx context.Context, kind string, id int, payload map[string]any) (*domain.RemoteResource, error) {
	return nil, nil
}
func (f *fakeClient) Delete(ctx context.Context, kind string, id int) error { return nil }
func (f *fakeClient) NPMURL() string                                       { return "https://npm.test" }

var _ out.ProxyManagerClient = (*fakeClient)(nil)

func TestMatch_Exact(t *testing.T) {
	client := &fakeClient{certs: []*domain.RemoteResource{
		{ID: 1, Enabled: true, DomainNames: []string{"a.test", "b.test"}},
	}}
	m := New(client)

	id, err := m.Match(context.Background(), []string{"a.test", "b.test"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestMatch_Primary(t *testing.T) {
	client := &fakeClient{certs: []*domain.RemoteResource{
		{ID: 2, Enabled: true, DomainNames: []string{"svc.test"}},
	}}
	m := New(client)

	id, err := m.Match(context.Background(), []string{"svc.test", "other.test"})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestMatch_Wildcard(t *testing.T) {
	client := &fakeClient{certs: []*domain.RemoteResource{
		{ID: 3, Enabled: true, DomainNames: []string{"*.test"}},
	}}
	m := New(client)

	id, err := m.Match(context.Background(), []string{"svc.test"})
	require.NoError(t, err)
	assert.Equal(t, 3, id)
}

func TestMatch_WildcardRequiresAdditionalLabel(t *testing.T) {
	client := &fakeClient{certs: []*domain.RemoteResource{
		{ID: 4, Enabled: true, DomainNames: []string{"*.test"}},
	}}
	m := New(client)

	id, err := m.Match(context.Background(), []string{"test"})
	require.NoError(t, err)
	assert.Equal(t, 0, id)
}

func TestMatch_NoMatch(t *testing.T) {
	client := &fakeClient{certs: []*domain.RemoteResource{
		{ID: 5, Enabled: true, DomainNames: []string{"other.test"}},
	}}
	m := New(client)

	id, err := m.Match(context.Background(), []string{"svc.test"})
	require.NoError(t, err)
	assert.Equal(t, 0, id)
}

func TestMatch_IgnoresDeletedCertificates(t *testing.T) {
	client := &fakeClient{certs: []*domain.RemoteResource{
		{ID: 6, Enabled: true, IsDeleted: true, DomainNames: []string{"gone.test"}},
	}}
	m := New(client)

	id, err := m.Match(context.Background(), []string{"gone.test"})
	require.NoError(t, err)
	assert.Equal(t, 0, id)
}

func TestMatch_CachesWithinTTL(t *testing.T) {
	client := &fakeClient{certs: []*domain.RemoteResource{
		{ID: 1, Enabled: true, DomainNames: []string{"a.test"}},
	}}
	m := New(client)

	_, err := m.Match(context.Background(), []string{"a.test"})
	require.NoError(t, err)
	_, err = m.Match(context.Background(), []string{"a.test"})
	require.NoError(t, err)

	assert.Equal(t, 1, client.listCalls)
}
