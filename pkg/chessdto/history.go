package chessdto

import "time"

type ChessGame struct {
	ID            int64         `json:"id"`
	SessionUUID   string        `json:"session_uuid"`
	Mode          string        `json:"mode"`
	Difficulty    string        `json:"difficulty,omitempty"`
	PlayerColor   string        `json:"player_color"`
	StartFEN      string        `json:"start_fen,omitempty"`
	Result        string        `json:"result"`
	ResultMethod  string        `json:"result_method"`
	ResultText    string        `json:"result_text"`
	MovesUCI      []string      `json:"moves_uci"`
	MovesSAN      []string      `json:"moves_san"`
	PGN           string        `json:"pgn"`
	ECOCode       string        `json:"eco_code,omitempty"`
	ECOTitle      string        `json:"eco_title,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
	Duration      time.Duration `json:"duration_ns"`
	EngineMoves   int           `json:"engine_moves,omitempty"`
	EngineLatency time.Duration `json:"engine_latency_ns,omitempty"`
}
