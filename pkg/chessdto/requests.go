package chessdto

// CommandRequest names one input action, e.g. {"command":"move","arg":"e4"}.
type CommandRequest struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

type CommandResponse struct {
	View  *View        `json:"view"`
	Error *DomainError `json:"error,omitempty"`
}

type HistoryResponse struct {
	Games []*ChessGame `json:"games"`
}

type GameResponse struct {
	Game *ChessGame `json:"game"`
}

// FeedMessage is one frame of the evaluation feed.
type FeedMessage struct {
	Type       string      `json:"type"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}
