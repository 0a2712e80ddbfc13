package domain

import "errors"

// Sentinel errors used by the Reconciler and Proxy-Manager Client to
// distinguish the error taxonomy of spec.md §7 from ordinary wrapped
// transport errors.
var (
	// ErrOwnershipConflict means a matching remote resource exists but is
	// not owned by this controller instance. The caller must not modify it.
	ErrOwnershipConflict = errors.New("resource exists and is not managed by this instance")

	// ErrUpstreamConflict means the proxy manager rejected a create with a
	// recognizable "domain in use" / "port in use" client error.
	ErrUpstreamConflict = errors.New("proxy manager rejected request: resource in use")

	// ErrForwardPortUnresolved means neither an explicit port nor an
	// inferred one could be determined for a proxy or stream config.
	ErrForwardPortUnresolved = errors.New("forward port could not be resolved")

	// ErrContainerNotFound is returned by a ContainerHost when the
	// container no longer exists.
	ErrContainerNotFound = errors.New("container not found")

	// ErrNetworkNotFound means a named network does not exist. No
	// ContainerHost method returns it.
	ErrNetworkNotFound = errors.New("network not found")
)
