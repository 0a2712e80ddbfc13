package mirror

import (
	"context"
	"strconv"
	"strings"

	"github.com/Redth/npm-docker-sync/internal/adapters/out/npmclient"
	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/hashutil"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// kindOrder is the dependency order §4.8 requires: certificates and access
// lists must sync first because later kinds' payloads reference them by id.
var kindOrder = []string{
	out.ResourceCertificates,
	out.ResourceAccessLists,
	out.ResourceProxyHosts,
	out.ResourceRedirectionHosts,
	out.ResourceStreams,
	out.ResourceDeadHosts,
}

// idMap remaps a primary resource id to its secondary counterpart, built up
// as certificates and access lists are synced and consulted when later
// kinds' payloads carry a certificate_id/access_list_id reference.
type idMap map[int]int

// kindStats is the per-kind (synced, skipped) count §4.8 asks each kind to
// report.
type kindStats struct {
	Kind    string
	Synced  int
	Skipped int
}

// SyncTarget drives one full primary-to-secondary sync pass across every
// resource kind, in dependency order. Per-resource failures are logged and
// do not abort the kind; per-kind failures (a List call itself failing) are
// logged and do not abort the remaining kinds.
func SyncTarget(ctx context.Context, primary out.ProxyManagerClient, target Target) []kindStats {
	ctx = logging.With(logging.Component(ctx, "resourcemirror"), "mirror_id", target.Name)
	log := logging.From(ctx)

	certIDs := idMap{}
	aclIDs := idMap{}

	stats := make([]kindStats, 0, len(kindOrder))
	for _, kind := range kindOrder {
		s, err := syncKind(ctx, primary, target.Client, kind, certIDs, aclIDs)
		if err != nil {
			log.Error("failed to list resources for mirror kind, skipping", "kind", kind, "error", err)
			continue
		}
		log.Info("mirror sync kind complete", "kind", kind, "synced", s.Synced, "skipped", s.Skipped)
		stats = append(stats, s)
	}
	return stats
}

func syncKind(ctx context.Context, primary, secondary out.ProxyManagerClient, kind string, certIDs, aclIDs idMap) (kindStats, error) {
	log := logging.From(ctx)
	stats := kindStats{Kind: kind}

	primaryList, err := primary.List(ctx, kind)
	if err != nil {
		return stats, err
	}
	secondaryList, err := secondary.List(ctx, kind)
	if err != nil {
		return stats, err
	}

	for _, p := range primaryList {
		if p.IsDeleted {
			continue
		}

		payload := buildMirrorPayload(p, certIDs, aclIDs)
		primaryHash := hashutil.ResourceHash(payload)

		candidate := findCandidate(kind, p, secondaryList)
		if candidate != nil {
			secondaryHash := hashutil.ResourceHash(sanitizeForHash(candidate.Raw))
			if secondaryHash == primaryHash {
				recordIDMapping(kind, certIDs, aclIDs, p.ID, candidate.ID)
				stats.Skipped++
				continue
			}

			updated, err := secondary.Update(ctx, kind, candidate.ID, npmclient.StampMirrorMeta(payload, primary.NPMURL()))
			if err != nil {
				log.Error("failed to update mirrored resource", "kind", kind, "primary_id", p.ID, "secondary_id", candidate.ID, "error", err)
				continue
			}
			recordIDMapping(kind, certIDs, aclIDs, p.ID, updated.ID)
			stats.Synced++
			continue
		}

		if kind == out.ResourceCertificates {
			// Certificates are never created on a secondary: issuing one
			// requires a file upload this core doesn't perform (§9 open
			// question, preserved as a documented limitation). Downstream
			// resources referencing this certificate fall back to id 0.
			log.Warn("certificate has no secondary counterpart and cannot be created, downstream references will have no SSL", "primary_id", p.ID, "nice_name", p.NiceName)
			stats.Skipped++
			continue
		}

		created, err := secondary.Create(ctx, kind, npmclient.StampMirrorMeta(payload, primary.NPMURL()))
		if err != nil {
			log.Error("failed to create mirrored resource", "kind", kind, "primary_id", p.ID, "error", err)
			continue
		}
		recordIDMapping(kind, certIDs, aclIDs, p.ID, created.ID)
		stats.Synced++
	}

	return stats, nil
}

// findCandidate locates a secondary resource matching p's natural key
// for its kind, per §4.8 step 2.
func findCandidate(kind string, p *domain.RemoteResource, secondaryList []*domain.RemoteResource) *domain.RemoteResource {
	secondaryList = nonDeleted(secondaryList)
	switch kind {
	case out.ResourceCertificates:
		for _, s := range secondaryList {
			if p.NiceName != "" && s.NiceName == p.NiceName {
				return s
			}
			if domainSetEqual(s.DomainNames, p.DomainNames) {
				return s
			}
		}
	case out.ResourceAccessLists:
		for _, s := range secondaryList {
			if p.NiceName != "" && s.NiceName == p.NiceName {
				return s
			}
		}
	case out.ResourceStreams:
		for _, s := range secondaryList {
			if s.IncomingPort == p.IncomingPort {
				return s
			}
		}
	default: // proxy-hosts, redirection-hosts, dead-hosts
		if len(p.DomainNames) == 0 {
			return nil
		}
		primary := strings.ToLower(p.DomainNames[0])
		for _, s := range secondaryList {
			for _, d := range s.DomainNames {
				if strings.ToLower(d) == primary {
					return s
				}
			}
		}
	}
	return nil
}

// nonDeleted filters out soft-deleted rows §4.8's candidate search must
// ignore: proxy-manager's list endpoints can return these alongside live
// resources.
func nonDeleted(list []*domain.RemoteResource) []*domain.RemoteResource {
	out := make([]*domain.RemoteResource, 0, len(list))
	for _, r := range list {
		if !r.IsDeleted {
			out = append(out, r)
		}
	}
	return out
}

func domainSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, d := range a {
		set[strings.ToLower(d)] = struct{}{}
	}
	for _, d := range b {
		if _, ok := set[strings.ToLower(d)]; !ok {
			return false
		}
	}
	return true
}

func recordIDMapping(kind string, certIDs, aclIDs idMap, primaryID, secondaryID int) {
	switch kind {
	case out.ResourceCertificates:
		certIDs[primaryID] = secondaryID
	case out.ResourceAccessLists:
		aclIDs[primaryID] = secondaryID
	}
}

// bookkeepingKeys are fields the proxy manager or this controller itself
// stamps, excluded from the hash so they never cause a spurious mismatch
// between a primary resource and its mirrored counterpart.
var bookkeepingKeys = []string{"id", "meta", "created_on", "modified_on", "owner_user_id"}

func sanitizeForHash(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, k := range bookkeepingKeys {
		delete(out, k)
	}
	return out
}

// buildMirrorPayload derives the secondary-bound payload from a primary
// resource: bookkeeping fields stripped, and certificate_id/access_list_id
// substituted through the id maps built earlier in this pass (§4.8 step 4).
// A reference to a certificate/access list with no secondary counterpart
// yet resolves to 0.
func buildMirrorPayload(p *domain.RemoteResource, certIDs, aclIDs idMap) map[string]any {
	payload := sanitizeForHash(p.Raw)

	if id, ok := asInt(payload["certificate_id"]); ok && id != 0 {
		payload["certificate_id"] = certIDs[id]
	}
	if id, ok := asInt(payload["access_list_id"]); ok && id != 0 {
		payload["access_list_id"] = aclIDs[id]
	}
	return payload
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}
