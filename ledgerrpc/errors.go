package ledgerrpc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"

	"xdao.co/nftmint/ledger"
)

// ErrorDomain tags ErrorInfo details produced by this service.
const ErrorDomain = "nftmint.xdao.co"

// Metadata keys on ErrorInfo.
const (
	metaCheck     = "check"
	metaStep      = "step"
	metaSignature = "signature"
)

func codeFor(kind ledger.Kind) codes.Code {
	switch kind {
	case ledger.KindConstraintViolation, ledger.KindInsufficientFunds, ledger.KindInvalidAccountData:
		return codes.FailedPrecondition
	case ledger.KindAlreadyInitialized, ledger.KindAlreadyProcessed:
		return codes.AlreadyExists
	case ledger.KindPayloadTooLarge, ledger.KindMalformed:
		return codes.InvalidArgument
	case ledger.KindAuthorityMismatch:
		return codes.PermissionDenied
	case ledger.KindOverflow:
		return codes.OutOfRange
	default:
		return codes.Internal
	}
}

// toStatus converts a bank error to a gRPC status error. Structured errors
// keep Kind, Check and Step in an ErrorInfo; receipt (if any) contributes the
// signature and program logs.
func toStatus(err error, receipt *ledger.Receipt) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	var le *ledger.Error
	if !errors.As(err, &le) {
		return status.Error(codes.Internal, "internal error")
	}
	st := status.New(codeFor(le.Kind), le.Message)
	info := &errdetails.ErrorInfo{
		Reason: string(le.Kind),
		Domain: ErrorDomain,
		Metadata: map[string]string{
			metaCheck: le.Check,
			metaStep:  le.Step,
		},
	}
	details := []protoadapt.MessageV1{info}
	if receipt != nil {
		info.Metadata[metaSignature] = receipt.Signature.String()
		if len(receipt.Logs) > 0 {
			details = append(details, &errdetails.DebugInfo{StackEntries: receipt.Logs, Detail: "program logs"})
		}
	}
	withDetails, derr := st.WithDetails(details...)
	if derr != nil {
		return st.Err()
	}
	return withDetails.Err()
}

// fromStatus reverses toStatus. Errors without an ErrorInfo from this
// service are returned unchanged, except cancellation codes which map back
// to the context errors.
func fromStatus(err error) (logs []string, out error) {
	if err == nil {
		return nil, nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return nil, err
	}
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			if v.GetDomain() != ErrorDomain {
				continue
			}
			out = &ledger.Error{
				Kind:    ledger.Kind(v.GetReason()),
				Check:   v.GetMetadata()[metaCheck],
				Step:    v.GetMetadata()[metaStep],
				Message: st.Message(),
			}
		case *errdetails.DebugInfo:
			logs = v.GetStackEntries()
		}
	}
	if out != nil {
		return logs, out
	}
	switch st.Code() {
	case codes.Canceled:
		return nil, context.Canceled
	case codes.DeadlineExceeded:
		return nil, context.DeadlineExceeded
	}
	return nil, err
}
