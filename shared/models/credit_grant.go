package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditGrant is one source of credits for a user: a plan assignment or a
// purchase. Used grows monotonically and never exceeds Granted (the check
// is duplicated as a DB constraint).
type CreditGrant struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"userId"`
	Granted   int64      `db:"granted" json:"granted"`
	Used      int64      `db:"used" json:"used"`
	ValidFrom time.Time  `db:"valid_from" json:"validFrom"`
	ValidTill *time.Time `db:"valid_till" json:"validTill,omitempty"`
	IsExpired bool       `db:"is_expired" json:"isExpired"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// Room возвращает остаток кредитов в гранте.
func (g *CreditGrant) Room() int64 {
	room := g.Granted - g.Used
	if room < 0 {
		return 0
	}
	return room
}

// AvailableAt reports whether the grant can be consumed at the given instant.
func (g *CreditGrant) AvailableAt(now time.Time) bool {
	if g.IsExpired {
		return false
	}
	if now.Before(g.ValidFrom) {
		return false
	}
	return g.ValidTill == nil || g.ValidTill.After(now)
}
