// SPDX-License-Identifier: MPL-2.0

// Package testutil holds test fixtures shared across packages.
package testutil
