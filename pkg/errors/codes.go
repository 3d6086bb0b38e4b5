package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Short aliases.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")
)

// Molecule input error codes.
const (
	ErrCodeMolfileParse          ErrorCode = "MOL_001"
	ErrCodeMoleculeInvalid       ErrorCode = "MOL_002"
	ErrCodeMoleculeTooSmall      ErrorCode = "MOL_003"
	ErrCodeMoleculeTooLarge      ErrorCode = "MOL_004"
	ErrCodeMoleculeNoCoordinates ErrorCode = "MOL_005"
)

// Flexophore error codes.  FLX_0xx covers descriptor generation, FLX_1xx the
// codec and FLX_2xx similarity.
const (
	ErrCodeConformationGenerationFailed ErrorCode = "FLX_001"
	ErrCodeDegenerateEnsemble           ErrorCode = "FLX_002"
	ErrCodeNodeMismatch                 ErrorCode = "FLX_003"
	ErrCodeHistogramInconsistent        ErrorCode = "FLX_004"
	ErrCodeDistanceOutOfRange           ErrorCode = "FLX_005"
	ErrCodeTooManyNodes                 ErrorCode = "FLX_006"
	ErrCodeInvariantViolation           ErrorCode = "FLX_007"
	ErrCodeDescriptorInvalid            ErrorCode = "FLX_008"
	ErrCodeRetriesExhausted             ErrorCode = "FLX_009"

	ErrCodeCodecCorrupt ErrorCode = "FLX_101"

	ErrCodeTableVersionMismatch ErrorCode = "FLX_201"
	ErrCodeInteractionTable     ErrorCode = "FLX_202"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeMolfileParse:          http.StatusBadRequest,
	ErrCodeMoleculeInvalid:       http.StatusBadRequest,
	ErrCodeMoleculeTooSmall:      http.StatusUnprocessableEntity,
	ErrCodeMoleculeTooLarge:      http.StatusUnprocessableEntity,
	ErrCodeMoleculeNoCoordinates: http.StatusUnprocessableEntity,

	ErrCodeConformationGenerationFailed: http.StatusUnprocessableEntity,
	ErrCodeDegenerateEnsemble:           http.StatusUnprocessableEntity,
	ErrCodeNodeMismatch:                 http.StatusInternalServerError,
	ErrCodeHistogramInconsistent:        http.StatusInternalServerError,
	ErrCodeDistanceOutOfRange:           http.StatusUnprocessableEntity,
	ErrCodeTooManyNodes:                 http.StatusUnprocessableEntity,
	ErrCodeInvariantViolation:           http.StatusInternalServerError,
	ErrCodeDescriptorInvalid:            http.StatusBadRequest,
	ErrCodeRetriesExhausted:             http.StatusUnprocessableEntity,
	ErrCodeCodecCorrupt:                 http.StatusBadRequest,
	ErrCodeTableVersionMismatch:         http.StatusConflict,
	ErrCodeInteractionTable:             http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeMolfileParse:          "failed to parse molfile",
	ErrCodeMoleculeInvalid:       "invalid molecule",
	ErrCodeMoleculeTooSmall:      "molecule has too few heavy atoms",
	ErrCodeMoleculeTooLarge:      "molecule has too many heavy atoms",
	ErrCodeMoleculeNoCoordinates: "molecule has no usable 3D coordinates",

	ErrCodeConformationGenerationFailed: "conformer generation failed",
	ErrCodeDegenerateEnsemble:           "only one conformer was generated",
	ErrCodeNodeMismatch:                 "pharmacophore nodes differ between conformers",
	ErrCodeHistogramInconsistent:        "distance histogram counts are inconsistent",
	ErrCodeDistanceOutOfRange:           "distance exceeds histogram range",
	ErrCodeTooManyNodes:                 "too many pharmacophore nodes",
	ErrCodeInvariantViolation:           "internal invariant violated",
	ErrCodeDescriptorInvalid:            "descriptor failed validation",
	ErrCodeRetriesExhausted:             "descriptor generation retries exhausted",
	ErrCodeCodecCorrupt:                 "descriptor payload is corrupt",
	ErrCodeTableVersionMismatch:         "interaction table version mismatch",
	ErrCodeInteractionTable:             "invalid interaction table",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode ("FLX", "MOL", ...).
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
