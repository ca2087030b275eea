package study

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/card/entity"
)

// Group filter values besides a numeric group id.
const (
	FilterAllGroups = "allGroups"
	FilterUnsorted  = "unsorted"
)

// FilterByGroup keeps the cards matching filter: FilterAllGroups (or empty)
// keeps everything, FilterUnsorted keeps cards without a group and a numeric
// value keeps members of that group. Anything else matches nothing.
func FilterByGroup(cards []entity.Card, filter string) []entity.Card {
	switch filter {
	case "", FilterAllGroups:
		return cards
	case FilterUnsorted:
		return keep(cards, entity.Card.Unsorted)
	}
	id, err := strconv.ParseInt(filter, 10, 64)
	if err != nil {
		return []entity.Card{}
	}
	return keep(cards, func(c entity.Card) bool { return c.InGroup(id) })
}

// FilterByQuery keeps cards whose phrase or translation contains q,
// case-insensitively. A blank query keeps everything.
func FilterByQuery(cards []entity.Card, q string) []entity.Card {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return cards
	}
	return keep(cards, func(c entity.Card) bool {
		return strings.Contains(strings.ToLower(c.Phrase), q) ||
			strings.Contains(strings.ToLower(c.Translation), q)
	})
}

func keep(cards []entity.Card, pred func(entity.Card) bool) []entity.Card {
	out := make([]entity.Card, 0, len(cards))
	for _, c := range cards {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// RandomNextIndex picks an index in [0,total) different from current when
// there is more than one card. A current outside the range (such as -1 for
// "nothing shown yet") draws from the whole range.
func RandomNextIndex(current, total int) int {
	return randomNextIndex(current, total, rand.IntN)
}

func randomNextIndex(current, total int, intn func(int) int) int {
	if total <= 0 {
		return current
	}
	if current < 0 || current >= total {
		return intn(total)
	}
	if total == 1 {
		return current
	}
	// draw from the other total-1 slots and skip over current
	next := intn(total - 1)
	if next >= current {
		next++
	}
	return next
}
