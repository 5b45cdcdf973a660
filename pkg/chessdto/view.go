package chessdto

import "time"

type Tally struct {
	Player int `json:"player"`
	Engine int `json:"engine"`
	Draw   int `json:"draw"`
}

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

type Promotion struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Choices []string `json:"choices"`
}

// Evaluation is one background analysis round. Score is centipawns for White.
type Evaluation struct {
	FEN         string    `json:"fen"`
	Score       int       `json:"score"`
	ScoreText   string    `json:"score_text"`
	IsMate      bool      `json:"is_mate"`
	MateIn      int       `json:"mate_in,omitempty"`
	BarWhite    float64   `json:"bar_white"`
	BestMove    string    `json:"best_move,omitempty"`
	BestMoveSAN string    `json:"best_move_san,omitempty"`
	PV          []string  `json:"pv,omitempty"`
	Depth       int       `json:"depth"`
	At          time.Time `json:"at"`
}

// View is the screen state served to front ends.
type View struct {
	SessionUUID string `json:"session_uuid,omitempty"`
	Phase       string `json:"phase"`
	Mode        string `json:"mode,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	PlayerColor string `json:"player_color"`
	Turn        string `json:"turn"`
	FEN         string `json:"fen"`

	Difficulties []string `json:"difficulties,omitempty"`

	LastMove  string     `json:"last_move,omitempty"`
	Selected  string     `json:"selected,omitempty"`
	Targets   []string   `json:"targets,omitempty"`
	Promotion *Promotion `json:"promotion,omitempty"`

	Index         int      `json:"index"`
	HistoryLength int      `json:"history_length"`
	AtLatest      bool     `json:"at_latest"`
	MovesSAN      []string `json:"moves_san"`

	Result        string `json:"result,omitempty"`
	ResultMethod  string `json:"result_method,omitempty"`
	ResultText    string `json:"result_text,omitempty"`
	Tally         Tally  `json:"tally"`
	DrawRequested bool   `json:"draw_requested"`
	InCheck       bool   `json:"in_check"`

	EvaluationMode bool        `json:"evaluation_mode"`
	ShowBestMove   bool        `json:"show_best_move"`
	Evaluation     *Evaluation `json:"evaluation,omitempty"`
	BestMove       string      `json:"best_move,omitempty"`
	BestMoveSAN    string      `json:"best_move_san,omitempty"`

	ECOCode  string         `json:"eco_code,omitempty"`
	ECOTitle string         `json:"eco_title,omitempty"`
	Material MaterialScore  `json:"material"`
	Captured CapturedPieces `json:"captured"`

	EngineAvailable bool   `json:"engine_available"`
	EngineError     string `json:"engine_error,omitempty"`
	LastGameID      int64  `json:"last_game_id,omitempty"`
}
