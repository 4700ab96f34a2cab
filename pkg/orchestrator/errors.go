package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lemonade-sdk/lemon-server/pkg/errs"
)

// statusFor maps a tagged error kind from pkg/errs to its HTTP status code.
// Unrecognized errors default to 500.
func statusFor(err error) int {
	var (
		unsupportedBackend *errs.UnsupportedBackend
		installFailed      *errs.BackendInstallFailed
		modelNotFound      *errs.ModelNotFound
		modelInvalidated   *errs.ModelInvalidated
		downloadAborted    *errs.DownloadAborted
		engineNotReady     *errs.EngineNotReady
		unsupportedOp      *errs.UnsupportedOperation
		transportErr       *errs.TransportError
		busy               *errs.Busy
	)
	switch {
	case errors.As(err, &modelNotFound):
		return http.StatusNotFound
	case errors.As(err, &unsupportedOp):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unsupportedBackend):
		return http.StatusBadRequest
	case errors.As(err, &busy):
		return http.StatusConflict
	case errors.As(err, &modelInvalidated):
		return http.StatusConflict
	case errors.As(err, &downloadAborted):
		return http.StatusConflict
	case errors.As(err, &engineNotReady):
		return http.StatusGatewayTimeout
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	case errors.As(err, &installFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON {"error": msg} body with the status statusFor
// derives from err.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
