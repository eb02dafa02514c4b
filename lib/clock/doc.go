// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects [Real]; tests inject [Fake] and advance it deterministically.
//
// The pipeline manager stamps messages with Clock.Now and drives its
// standalone drain loop with Clock.NewTicker, so drain-latency tests
// never sleep real time.
package clock
