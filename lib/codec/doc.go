// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Lantern's CBOR encoding: Core Deterministic
// Encoding on the write side so the same record always produces the
// same bytes, permissive standard decoding on the read side. The
// stream log target uses it for its wire records; consumers import
// only this package, not the CBOR library directly.
package codec
