// Package keys provides signer keys for the identity registry.
//
// Stable:
//   - Signer construction from a 32 byte seed for every supported scheme,
//     role-seed derivation and call signing (SignCall).
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore). It is a local-first utility
//     for the CLI and tests, not part of the registry protocol.
package keys
