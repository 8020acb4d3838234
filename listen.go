// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/config"
)

var errSocketOwner = errors.New("cannot hand the unix socket over")

// listen opens the unix socket when one is configured and the TCP address
// otherwise.
func listen(ctx context.Context) (net.Listener, error) {
	basic := config.Global.Basic
	lc := net.ListenConfig{}

	if basic.UnixSocket != "" {
		l, err := lc.Listen(ctx, "unix", basic.UnixSocket)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on unix socket %s: %w", basic.UnixSocket, err)
		}

		if err := prepareSocket(basic.UnixSocket, basic.UnixSocketUser, basic.UnixSocketGroup, basic.UnixSocketPermissions); err != nil {
			_ = l.Close()

			return nil, err
		}

		log.Info().Str("socket", basic.UnixSocket).Msg("Reader listening")

		return l, nil
	}

	l, err := lc.Listen(ctx, "tcp", net.JoinHostPort(basic.Host, basic.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%s: %w", basic.Host, basic.Port, err)
	}

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return l, nil
	}

	log.Info().
		Str("address", addr.String()).
		Str("url", fmt.Sprintf("http://localhost:%d/", addr.Port)).
		Msg("Reader listening")

	return l, nil
}

// prepareSocket sets the owner and mode of the socket at path. Empty
// owner and group leave them unchanged.
func prepareSocket(path, owner, group string, mode os.FileMode) error {
	uid, err := lookupID(owner, func(name string) (string, error) {
		u, err := user.Lookup(name)
		if err != nil {
			return "", err
		}

		return u.Uid, nil
	})
	if err != nil {
		return fmt.Errorf("%w: user %q: %w", errSocketOwner, owner, err)
	}

	gid, err := lookupID(group, func(name string) (string, error) {
		g, err := user.LookupGroup(name)
		if err != nil {
			return "", err
		}

		return g.Gid, nil
	})
	if err != nil {
		return fmt.Errorf("%w: group %q: %w", errSocketOwner, group, err)
	}

	if uid != -1 || gid != -1 {
		if err := os.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("%w: %w", errSocketOwner, err)
		}
	}

	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to set unix socket mode: %w", err)
	}

	return nil
}

// lookupID returns -1 for "", the number itself for a numeric value and
// the looked-up id for a name.
func lookupID(value string, lookup func(string) (string, error)) (int, error) {
	if value == "" {
		return -1, nil
	}

	if id, err := strconv.Atoi(value); err == nil {
		return id, nil
	}

	raw, err := lookup(value)
	if err != nil {
		return -1, err
	}

	return strconv.Atoi(raw)
}
