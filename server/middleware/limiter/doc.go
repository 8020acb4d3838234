// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package limiter rate limits the reader's actions.

Clients are grouped by IP network (a /24 for IPv4 and a /48 for IPv6 by
default) and each network gets a token bucket. Only state-changing reader
requests are limited; pages, assets and the event stream are not.
*/
package limiter
