// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline tracks network availability for rigchat.
//
// The application talks only to a localhost chat backend. This package
// holds the global offline flag, validates backend URLs against the
// local-only policy (scheme and loopback checks), and classifies
// connectivity errors so callers can surface the offline banner instead
// of a raw error.
package offline
