// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fork

import "github.com/pkg/errors"

// ErrForkNotFound reported for fork ids that are unknown, expired or
// destroyed. The three cases are deliberately indistinguishable: once a
// fork is gone its resources are gone, and callers get the same answer
// whether it ever existed.
var ErrForkNotFound = errors.New("fork not found")
