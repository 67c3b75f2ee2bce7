package models

import "time"

// Draw is the read model of an executed lottery draw as seen by the
// provably-fair verifier. ServerSeed and ClientSeed are null until revealed
// post-draw; ServerSeedHash is the pre-draw commitment.
type Draw struct {
	ID             int64      `db:"id"`
	LotteryID      int64      `db:"lottery_id"`
	ServerSeedHash string     `db:"server_seed_hash"`
	ServerSeed     *string    `db:"server_seed"`
	ClientSeed     *string    `db:"client_seed"`
	Nonce          int64      `db:"nonce"`
	WinningNumbers []int      `db:"winning_numbers"`
	NumbersCount   int        `db:"numbers_count"`
	NumbersMax     int        `db:"numbers_max"`
	DrawnAt        *time.Time `db:"drawn_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

// DrawVerification is the result of recomputing a draw outcome from its
// revealed seeds.
type DrawVerification struct {
	DrawID         int64   `json:"drawId"`
	ServerSeed     *string `json:"serverSeed"`
	ServerSeedHash string  `json:"serverSeedHash"`
	ClientSeed     *string `json:"clientSeed"`
	Nonce          int64   `json:"nonce"`
	WinningNumbers []int   `json:"winningNumbers"`
	IsValid        bool    `json:"isValid"`
}
