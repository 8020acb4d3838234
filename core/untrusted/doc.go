// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package untrusted reads and writes state kept by the reader's browser.

Cookies are received from the user agent and can hold anything.
*/
package untrusted
