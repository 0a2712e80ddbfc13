package out

import (
	"context"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

// Resource kind strings as they appear in the proxy-manager's REST paths
// (/api/nginx/{kind}). Shared by the Reconciler and the Resource Mirror.
const (
	ResourceProxyHosts       = "proxy-hosts"
	ResourceStreams          = "streams"
	ResourceCertificates     = "certificates"
	ResourceAccessLists      = "access-lists"
	ResourceRedirectionHosts = "redirection-hosts"
	ResourceDeadHosts        = "dead-hosts"
)

// ProxyManagerClient is the token-authenticated CRUD surface over the
// reverse-proxy manager's six resource kinds (§4.4, §6). Authentication is
// handled internally: every call first ensures a valid cached token.
//
// The interface is intentionally generic (kind + JSON payload) rather than
// one method per kind: the Resource Mirror needs uniform access across all
// six kinds, and the Reconciler only ever deals in proxy-hosts and streams,
// so a generic surface avoids duplicating CRUD for each.
type ProxyManagerClient interface {
	// List returns every non-deleted resource of the given kind.
	List(ctx context.Context, kind string) ([]*domain.RemoteResource, error)

	// Create writes a new resource of the given kind and returns it as read
	// back from the API (including the assigned id).
	Create(ctx context.Context, kind string, payload map[string]any) (*domain.RemoteResource, error)

	// Update replaces a resource's fields in place.
	Update(ctx context.Context, kind string, id int, payload map[string]any) (*domain.RemoteResource, error)

	// Delete removes a resource. Deleting an already-absent id is not an error.
	Delete(ctx context.Context, kind string, id int) error

	// NPMURL returns the normalized base URL this client talks to, used to
	// stamp meta.npm_url on resources this controller writes.
	NPMURL() string
}
