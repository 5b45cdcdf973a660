package domain

import "time"

// ChessGame is a finished game as kept in the archive.
type ChessGame struct {
	ID            int64
	SessionUUID   string
	Mode          string
	Difficulty    string
	PlayerColor   string
	StartFEN      string
	Result        string
	ResultMethod  string
	ResultText    string
	MovesUCI      []string
	MovesSAN      []string
	PGN           string
	ECOCode       string
	ECOTitle      string
	StartedAt     time.Time
	EndedAt       time.Time
	Duration      time.Duration
	EngineMoves   int
	EngineLatency time.Duration
}
