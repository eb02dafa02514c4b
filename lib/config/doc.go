// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads Lantern pipeline configuration from a single
// file — YAML (.yaml/.yml) or JSONC (.json/.jsonc, comments and
// trailing commas allowed) — and builds the configured pipeline from
// it. There are no fallbacks or automatic discovery: the caller names
// exactly one file, which keeps configuration deterministic and
// auditable.
package config
