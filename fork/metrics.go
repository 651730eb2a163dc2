// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fork

import "github.com/forkpoint/forkd/metrics"

var (
	metricForksCreated = metrics.LazyLoadCounter("fork_created_count")
	metricForksRemoved = metrics.LazyLoadCounterVec("fork_removed_count", []string{"reason"})
	metricLiveForks    = metrics.LazyLoadGauge("fork_live_gauge")
	metricTxCounter    = metrics.LazyLoadCounterVec("fork_tx_count", []string{"kind", "success"})
)
