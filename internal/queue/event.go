// Package queue defines message payloads exchanged over the message broker.
package queue

// ModerationEvent is published after a moderation action (validate,
// reject, soft-delete, restore) commits. It carries enough context for
// downstream consumers to log or feed analytics without querying the
// primary database. Publishing is best-effort and entirely separate
// from the HTTP reputation relay: a lost event never affects the
// moderation outcome.
type ModerationEvent struct {
	Action      string  `json:"action"`
	TargetType  string  `json:"target_type"`
	TargetID    uint64  `json:"target_id"`
	ActorID     uint64  `json:"actor_id"`
	ActorRole   string  `json:"actor_role"`
	AuthorID    uint64  `json:"author_id,omitempty"`
	SpeciesID   uint64  `json:"species_id,omitempty"`
	SpeciesName string  `json:"species_name,omitempty"`
	RarityScore float64 `json:"rarity_score,omitempty"`
	OccurredAt  string  `json:"occurred_at"`
}
