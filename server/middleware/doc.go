// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware holds the handlers every request passes through.

The chain is assembled in router.RegisterMiddleware. CatchError is not part
of the chain; it adapts the error-returning route handlers.
*/
package middleware
