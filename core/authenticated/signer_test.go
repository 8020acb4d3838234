// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package authenticated

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	t.Parallel()

	var s Signer
	require.NoError(t, s.LoadSecretKeyFromHex(NewSecretKeyHex()))

	token, err := s.Sign("abc", time.Hour)
	require.NoError(t, err)

	id, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestSignerRejects(t *testing.T) {
	t.Parallel()

	var empty Signer

	_, err := empty.Sign("abc", time.Hour)
	require.ErrorIs(t, err, ErrNoKey)

	var a, b Signer
	a.UseEphemeralKey()
	b.UseEphemeralKey()

	token, err := a.Sign("abc", time.Hour)
	require.NoError(t, err)

	_, err = b.Verify(token)
	require.Error(t, err, "foreign key")

	expired, err := a.Sign("abc", -time.Minute)
	require.NoError(t, err)

	_, err = a.Verify(expired)
	require.Error(t, err, "expired token")

	require.Error(t, a.LoadSecretKeyFromHex("zz"))
}
