// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline tracks network availability and enforces the
// local-only policy for outbound connections.
package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNetworkBlocked is returned when a network operation is
	// attempted in offline mode.
	ErrNetworkBlocked = errors.New("network operation blocked in offline mode")

	// ErrNonLocalhost is returned when attempting to connect to a
	// non-localhost address.
	ErrNonLocalhost = errors.New("only localhost connections are allowed")

	// ErrInvalidURLScheme is returned when a URL scheme is not http or
	// https. Blocks file://, javascript://, data:// and custom handlers.
	ErrInvalidURLScheme = errors.New("only http and https schemes are allowed")
)

// =============================================================================
// MODE MANAGEMENT
// =============================================================================

// Global offline mode state with thread-safe access.
var (
	offlineMode      bool
	offlineModeMutex sync.RWMutex
)

// SetOfflineMode enables or disables offline mode globally. When
// enabled, chat requests are refused before any connection attempt and
// the UI shows the offline banner.
func SetOfflineMode(enabled bool) {
	offlineModeMutex.Lock()
	defer offlineModeMutex.Unlock()
	offlineMode = enabled
}

// IsOfflineMode returns true if offline mode is currently enabled.
func IsOfflineMode() bool {
	offlineModeMutex.RLock()
	defer offlineModeMutex.RUnlock()
	return offlineMode
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost checks if a host string refers to localhost.
// Accepts "localhost", any 127.0.0.0/8 address, and every IPv6 loopback
// variant. net.IP.IsLoopback handles the address forms; the literal
// check covers the hostname.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	// Remove brackets from IPv6 addresses, e.g. "[::1]" -> "::1".
	host = strings.Trim(host, "[]")
	host = strings.ToLower(host)

	if host == "localhost" {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}

	return false
}

// ValidateBackendURL checks whether a chat backend URL may be dialed.
// The scheme check always applies; the localhost restriction applies
// unconditionally because the backend contract is local-only.
func ValidateBackendURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrNetworkBlocked
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}

	if !IsLocalhost(parsed.Hostname()) {
		return ErrNonLocalhost
	}

	return nil
}

// CheckNetworkAllowed returns an error if network operations are
// currently blocked.
func CheckNetworkAllowed() error {
	if IsOfflineMode() {
		return ErrNetworkBlocked
	}
	return nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// IsNetworkError reports whether an error looks like a connectivity
// failure, used to flip the UI into its offline banner state.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// =============================================================================
// STATUS DISPLAY
// =============================================================================

// StatusIndicator returns the offline mode status indicator for display.
// Returns "OFFLINE MODE" when offline, empty string otherwise.
func StatusIndicator() string {
	if IsOfflineMode() {
		return "OFFLINE MODE"
	}
	return ""
}
