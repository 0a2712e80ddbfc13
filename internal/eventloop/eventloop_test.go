package eventloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

type fakeHost struct {
	containers     []*domain.Container
	inspectByID    map[string]*domain.Container
	events         []domain.ContainerEvent
	subscribeError error
}

func (f *fakeHost) ListContainers(context.Context, bool) ([]*domain.Container, error) {
	return f.containers, nil
}

func (f *fakeHost) InspectContainer(_ context.Context, id string) (*domain.Container, error) {
	c, ok := f.inspectByID[id]
	if !ok {
		return nil, domain.ErrContainerNotFound
	}
	return c, nil
}

func (f *fakeHost) ListNetworks(context.Context) ([]*domain.NetworkInfo, error) { return nil, nil }

func (f *fakeHost) SubscribeEvents(_ context.Context, onEvent func(domain.ContainerEvent)) error {
	for _, ev := range f.events {
		onEvent(ev)
	}
	return f.subscribeError
}

type fakeReconciler struct {
	reconciled    []string
	gone          []string
	rebuildCalled bool
}

func (f *fakeReconciler) Reconcile(_ context.Context, containerID string, _ map[string]string) error {
	f.reconciled = append(f.reconciled, containerID)
	return nil
}

func (f *fakeReconciler) ContainerGone(_ context.Context, containerID string) {
	f.gone = append(f.gone, containerID)
}

func (f *fakeReconciler) RebuildHandles(context.Context) error {
	f.rebuildCalled = true
	return nil
}

func TestRun_FullScanSkipsContainersWithoutReservedLabels(t *testing.T) {
	host := &fakeHost{
		containers: []*domain.Container{
			{ID: "a", Labels: map[string]string{"npm.proxy.domains": "a.test"}},
			{ID: "b", Labels: map[string]string{"com.example.other": "x"}},
		},
	}
	rec := &fakeReconciler{}

	loop := New(host, rec)
	require.NoError(t, loop.Run(context.Background()))

	assert.True(t, rec.rebuildCalled)
	assert.Equal(t, []string{"a"}, rec.reconciled)
}

func TestRun_DispatchesStartAndStopEvents(t *testing.T) {
	host := &fakeHost{
		inspectByID: map[string]*domain.Container{
			"c1": {ID: "c1", Labels: map[string]string{"npm.proxy.domains": "e.test"}},
		},
		events: []domain.ContainerEvent{
			{ContainerID: "c1", Action: domain.ActionStart},
			{ContainerID: "c2", Action: domain.ActionDie},
			{ContainerID: "c1", Action: domain.ActionOther},
		},
	}
	rec := &fakeReconciler{}

	loop := New(host, rec)
	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, []string{"c1"}, rec.reconciled)
	assert.Equal(t, []string{"c2"}, rec.gone)
}

func TestRun_InspectNotFoundIsIgnored(t *testing.T) {
	host := &fakeHost{
		inspectByID: map[string]*domain.Container{},
		events: []domain.ContainerEvent{
			{ContainerID: "gone-already", Action: domain.ActionStart},
		},
	}
	rec := &fakeReconciler{}

	loop := New(host, rec)
	require.NoError(t, loop.Run(context.Background()))

	assert.Empty(t, rec.reconciled)
}
