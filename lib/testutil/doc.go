// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides small helpers shared by Lantern's tests:
// channel operations with timeout safety valves, so a broken
// asynchronous path fails a test instead of hanging it.
package testutil
