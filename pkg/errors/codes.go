package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
// Codes are grouped by module prefix: COMMON, STR (structure model),
// PRE (preprocessing), ENS (ensemble generation), SCR (interface scoring),
// DSG (sequence design), DEV (developability), JOB (pipeline runner).
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeUnknown       ErrorCode = "COMMON_000"
	ErrCodeInternal      ErrorCode = "COMMON_001"
	ErrCodeInvalidInput  ErrorCode = "COMMON_002"
	ErrCodeValidation    ErrorCode = "COMMON_003"
	ErrCodeNotFound      ErrorCode = "COMMON_004"
	ErrCodeSerialization ErrorCode = "COMMON_005"

	CodeOK ErrorCode = "OK"
)

// Structure model error codes.
const (
	ErrCodeStructureDegenerate ErrorCode = "STR_001"
	ErrCodeChainNotFound       ErrorCode = "STR_002"
	ErrCodeResidueNotFound     ErrorCode = "STR_003"
	ErrCodeAtomCountMismatch   ErrorCode = "STR_004"
)

// Preprocessing error codes.
const (
	ErrCodePDBParseFailed       ErrorCode = "PRE_001"
	ErrCodeNoResiduesAfterClean ErrorCode = "PRE_002"
	ErrCodeFlexibleSpecInvalid  ErrorCode = "PRE_003"
	ErrCodeInterfaceNotFound    ErrorCode = "PRE_004"
)

// Ensemble generation error codes.
const (
	ErrCodeEnsembleGenerationFailed ErrorCode = "ENS_001"
	ErrCodeRelaxationDiverged       ErrorCode = "ENS_002"
	ErrCodeRelaxerUnavailable       ErrorCode = "ENS_003"
)

// Interface scoring error codes.
const (
	ErrCodeScoringFailed     ErrorCode = "SCR_001"
	ErrCodeSASABaselineStale ErrorCode = "SCR_002"
)

// Sequence design error codes.
const (
	ErrCodeDesignSearchExhausted ErrorCode = "DSG_001"
	ErrCodeAlphabetEmpty         ErrorCode = "DSG_002"
	ErrCodeNoDesignablePositions ErrorCode = "DSG_003"
)

// Developability error codes.
const (
	ErrCodeDevelopabilityUndetermined ErrorCode = "DEV_001"
	ErrCodeDevelopabilityFailed       ErrorCode = "DEV_002"
)

// Pipeline runner error codes.
const (
	ErrCodeJobCancelled     ErrorCode = "JOB_001"
	ErrCodeJobConfigInvalid ErrorCode = "JOB_002"
	ErrCodeStageFailed      ErrorCode = "JOB_003"
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeUnknown:       "unknown error",
	ErrCodeInternal:      "internal error",
	ErrCodeInvalidInput:  "invalid input",
	ErrCodeValidation:    "validation failed",
	ErrCodeNotFound:      "resource not found",
	ErrCodeSerialization: "serialization failed",

	ErrCodeStructureDegenerate: "degenerate structure",
	ErrCodeChainNotFound:       "chain not found",
	ErrCodeResidueNotFound:     "residue not found",
	ErrCodeAtomCountMismatch:   "atom count mismatch between snapshots",

	ErrCodePDBParseFailed:       "failed to parse PDB input",
	ErrCodeNoResiduesAfterClean: "no standard residues remain after cleaning",
	ErrCodeFlexibleSpecInvalid:  "invalid flexible residue specification",
	ErrCodeInterfaceNotFound:    "no interface residues detected",

	ErrCodeEnsembleGenerationFailed: "ensemble generation failed",
	ErrCodeRelaxationDiverged:       "relaxation did not converge",
	ErrCodeRelaxerUnavailable:       "configured relaxer is not available",

	ErrCodeScoringFailed:     "interface scoring failed",
	ErrCodeSASABaselineStale: "SASA baseline does not match structure",

	ErrCodeDesignSearchExhausted: "beam search exhausted by filters",
	ErrCodeAlphabetEmpty:         "mutation alphabet is empty",
	ErrCodeNoDesignablePositions: "no designable positions",

	ErrCodeDevelopabilityUndetermined: "developability term undetermined",
	ErrCodeDevelopabilityFailed:       "developability assessment failed",

	ErrCodeJobCancelled:     "job cancelled",
	ErrCodeJobConfigInvalid: "invalid job configuration",
	ErrCodeStageFailed:      "pipeline stage failed",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsRecoverable reports whether a code describes a locally-recoverable
// condition: individual failed relaxation trials, filtered beam children,
// and a non-convergent pI are dropped or flagged without failing the job.
func IsRecoverable(code ErrorCode) bool {
	switch code {
	case ErrCodeRelaxationDiverged, ErrCodeDevelopabilityUndetermined:
		return true
	default:
		return false
	}
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
