// Package keys manages the ed25519 keypairs that sign ledger transactions.
//
// Stable:
//   - Keypair construction from seeds and role-seed derivation. Derivation is
//     deterministic so a root seed reproduces every role key.
//
// Experimental:
//   - The filesystem-backed KeyStore used by the nftmint CLI. It is a
//     local-first convenience, not a wallet.
package keys
