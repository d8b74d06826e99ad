// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and the catalog of user-facing
// problem descriptions.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions. Catalog entries are Markdown documents rendered with glamour
// when a run ends in a known class of failure.
package issue
