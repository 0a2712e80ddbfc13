package dockerhost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

func newTestHost(t *testing.T, handler http.HandlerFunc) *Host {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	addr := strings.TrimPrefix(server.URL, "http://")
	cli, err := client.NewClientWithOpts(
		client.WithHost("tcp://"+addr),
		client.WithVersion("1.41"),
		client.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return NewWithClient(cli)
}

func TestInspectContainer(t *testing.T) {
	host := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.41/containers/abc123/json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Id": "abc123",
			"Name": "/web",
			"Config": {"Labels": {"npm.proxy.domains": "example.com"}},
			"NetworkSettings": {
				"Networks": {"proxy-net": {}},
				"Ports": {"80/tcp": [{"HostIp": "0.0.0.0", "HostPort": "8080"}]}
			}
		}`))
	})

	c, err := host.InspectContainer(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "web", c.Name)
	assert.Equal(t, "example.com", c.Labels["npm.proxy.domains"])
	assert.Contains(t, c.Networks, "proxy-net")
	assert.Contains(t, c.ExposedPorts, nat.Port("80/tcp"))
	require.Contains(t, c.PublishedPorts, nat.Port("80/tcp"))
	assert.Equal(t, "8080", c.PublishedPorts[nat.Port("80/tcp")][0].HostPort)
}

func TestInspectContainer_NotFound(t *testing.T) {
	host := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "no such container"}`))
	})

	_, err := host.InspectContainer(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
}

func TestListNetworks(t *testing.T) {
	host := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.41/networks", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"Id": "net1",
			"Name": "proxy-net",
			"Driver": "bridge",
			"IPAM": {"Config": [{"Gateway": "172.20.0.1"}]},
			"Containers": {"abc123": {}}
		}]`))
	})

	nets, err := host.ListNetworks(context.Background())
	require.NoError(t, err)
	require.Len(t, nets, 1)
	assert.Equal(t, "proxy-net", nets[0].Name)
	assert.Equal(t, "172.20.0.1", nets[0].GatewayIPv4)
	assert.Contains(t, nets[0].ContainerIDs, "abc123")
}

func TestToDomainAction(t *testing.T) {
	assert.Equal(t, domain.ActionStart, toDomainAction("start"))
	assert.Equal(t, domain.ActionDie, toDomainAction("die"))
	assert.Equal(t, domain.ActionStop, toDomainAction("kill"))
	assert.Equal(t, domain.ActionOther, toDomainAction("exec_create"))
}
