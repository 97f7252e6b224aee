// Package tokenstore provides persistent storage backends for the token
// record.
//
// Three backends with different security and deployment tradeoffs:
//   - File: local filesystem storage with atomic writes and best-effort
//     owner-only permissions
//   - Env: read-only environment variable access (requires external secret
//     management)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, etc.)
//
// Token exchange requires writable storage (file or keyring); the env
// backend only supports inspecting an externally managed record.
package tokenstore
