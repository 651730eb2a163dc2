// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fork

import "time"

func (r *Registry) housekeeping() {
	logger.Debug("enter housekeeping")
	defer logger.Debug("leave housekeeping")

	ticker := time.NewTicker(r.reapIv)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if n := r.reap(time.Now()); n > 0 {
				logger.Info("reaped expired forks", "count", n, "live", r.Len())
			}
		}
	}
}

// reap removes every fork whose TTL elapsed before now. The registry lock
// is held only to snapshot candidates, never across destruction; a fork
// deleted explicitly between snapshot and removal is a no-op here.
func (r *Registry) reap(now time.Time) int {
	r.lock.RLock()
	var expired []string
	for id, f := range r.forks {
		if f.expired(now) {
			expired = append(expired, id)
		}
	}
	r.lock.RUnlock()

	reaped := 0
	for _, id := range expired {
		f, ok := r.remove(id)
		if !ok {
			continue // lost the race to an explicit delete
		}
		f.retire()
		f.destroy()
		reaped++
		metricLiveForks().Add(-1)
		metricForksRemoved().AddWithLabel(1, map[string]string{"reason": "expired"})
		logger.Info("fork expired", "id", id)
	}
	return reaped
}
