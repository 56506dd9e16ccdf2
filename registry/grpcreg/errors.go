package grpcreg

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/idreg/model"
)

var kindCodes = map[model.Kind]codes.Code{
	model.KindNotFound:             codes.NotFound,
	model.KindAlreadyInitialized:   codes.AlreadyExists,
	model.KindAuthenticationFailed: codes.Unauthenticated,
	model.KindNotOwner:             codes.PermissionDenied,
	model.KindInvalid:              codes.InvalidArgument,
	model.KindInternal:             codes.Internal,
}

// toStatus renders a registry error as "<rule id>: <message>" under the code for its kind.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var e *model.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, err.Error())
	}
	code, ok := kindCodes[e.Kind]
	if !ok {
		code = codes.Unknown
	}
	return status.Error(code, e.RuleID+": "+e.Error())
}

// fromStatus recovers a *model.Error from a status produced by toStatus.
// Transport failures come back unchanged.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for kind, code := range kindCodes {
		if code != st.Code() {
			continue
		}
		rule, msg, found := strings.Cut(st.Message(), ": ")
		if !found || !strings.HasPrefix(rule, "IDREG-") {
			return err
		}
		return model.NewError(kind, rule, msg)
	}
	return err
}
