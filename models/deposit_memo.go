package models

import "time"

// DepositMemo is a single-use token correlating an anonymous inbound chain
// transfer to a user account. Consumed exactly once; a new memo is minted
// only after the prior one is used.
type DepositMemo struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	Memo      string     `db:"memo"`
	Used      bool       `db:"used"`
	CreatedAt time.Time  `db:"created_at"`
	UsedAt    *time.Time `db:"used_at"`
}
