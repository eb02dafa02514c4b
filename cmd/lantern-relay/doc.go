// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// lantern-relay feeds line-oriented input through a configured
// Lantern pipeline. Each stdin line becomes one log message; an
// optional "LEVEL [Tag]" prefix on the line selects its level and
// tag, everything else uses the flag defaults. The pipeline's drain
// loop runs until stdin closes or a SIGINT/SIGTERM arrives, then the
// queue is drained and every target is flushed and closed.
//
// Typical use is piping a process's output into durable, filtered log
// targets without linking the process against Lantern:
//
//	some-game-server 2>&1 | lantern-relay --config logging.yaml --tag System
package main
