package chessdto

// Error codes carried by DomainError.
const (
	CodeInvalidPhase      = "invalid_phase"
	CodeNotYourTurn       = "not_your_turn"
	CodeIllegalMove       = "illegal_move"
	CodeInvalidInput      = "invalid_input"
	CodePromotion         = "promotion"
	CodeDrawNotClaimable  = "draw_not_claimable"
	CodeTwoPlayerOnly     = "two_player_only"
	CodeEvaluationOff     = "evaluation_off"
	CodeEngineUnavailable = "engine_unavailable"
	CodeEngineTimeout     = "engine_timeout"
	CodeNotFound          = "not_found"
	CodeUnknownCommand    = "unknown_command"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess service error"
}
