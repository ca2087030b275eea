package entity

// Group is a named, user-owned collection of cards.
type Group struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// GroupWithCount is a group together with its number of member cards.
type GroupWithCount struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	CardCount int    `json:"cardCount" db:"card_count"`
}

// Overview is the group listing plus the number of cards in no group.
type Overview struct {
	Groups        []GroupWithCount `json:"groups"`
	UnsortedCount int              `json:"unsortedCount"`
}
