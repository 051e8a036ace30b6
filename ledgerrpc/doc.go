// Package ledgerrpc serves a ledger.Bank over gRPC and provides the matching
// client.
//
// The service uses protobuf well-known wrapper types with borsh payloads, so
// no generated code is involved. Bank errors cross the wire as status errors
// with an errdetails.ErrorInfo (Reason = Kind, metadata check/step/signature)
// and, for failed transactions, an errdetails.DebugInfo holding the program
// logs. The client turns them back into *ledger.Error.
package ledgerrpc
