// Package address provides the 32-byte account address type and the
// deterministic program-derived address scheme shared by the ledger runtime,
// the subsystem programs and the NFT orchestration program.
//
// Derivation contract:
//
//	candidate = sha256(seed_0 || ... || seed_n || program || "ProgramDerivedAddress")
//
// A candidate is only a valid derived address when it does NOT decode as an
// ed25519 curve point, so no private key can exist for it. FindProgramAddress
// appends a one-byte discriminant ("bump") as the final seed and searches it
// from 255 down to 0, returning the first off-curve candidate.
//
// Both the validator and the programs that own derived records use these
// functions; a mismatch between them is a scheme mismatch, never corrected.
package address
