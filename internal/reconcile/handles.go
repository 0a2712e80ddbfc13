package reconcile

import "github.com/Redth/npm-docker-sync/internal/domain"

func (r *Reconciler) storedHash(containerID string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.labelHashMap[containerID]
	return h, ok
}

func (r *Reconciler) setStoredHash(containerID string, hash uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labelHashMap[containerID] = hash
}

func (r *Reconciler) dropStoredHash(containerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.labelHashMap, containerID)
}

func (r *Reconciler) handle(key domain.HandleKey) domain.ResourceHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[key]
}

func (r *Reconciler) lookupHandle(key domain.HandleKey) (domain.ResourceHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[key]
	return h, ok
}

func (r *Reconciler) setHandle(key domain.HandleKey, h domain.ResourceHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[key] = h
}

func (r *Reconciler) dropHandle(key domain.HandleKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, key)
}

// indicesForKind returns the set of indices for which containerID currently
// holds a handle of the given kind.
func (r *Reconciler) indicesForKind(containerID string, kind domain.ResourceKind) map[int]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[int]struct{}{}
	for key := range r.handles {
		if key.ContainerID == containerID && key.Kind == kind {
			out[key.Index] = struct{}{}
		}
	}
	return out
}

// keysForContainer returns every handle key held for containerID, any kind.
func (r *Reconciler) keysForContainer(containerID string) []domain.HandleKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []domain.HandleKey
	for key := range r.handles {
		if key.ContainerID == containerID {
			keys = append(keys, key)
		}
	}
	return keys
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
