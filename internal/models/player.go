package models

// Player is one seat at the table. The hand is owned exclusively by the player.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Hand  []Card `json:"-"`
	IsBot bool   `json:"isBot"`
}

// RemoveCard removes the first card in the hand matching c.
// Returns the removed card (as held, color included) and whether one was found.
func (p *Player) RemoveCard(c Card) (Card, bool) {
	idx := IndexOf(p.Hand, c)
	if idx == -1 {
		return Card{}, false
	}
	removed := p.Hand[idx]
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return removed, true
}

// HasCard reports whether the hand holds a card matching c.
func (p *Player) HasCard(c Card) bool {
	return IndexOf(p.Hand, c) != -1
}
