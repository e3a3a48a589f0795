package thread

import (
	"sort"

	"github.com/loomchat/loom/internal/logging"
	"github.com/loomchat/loom/internal/msg"
)

// Thread aggregates every conversation card sharing a thread id.
type Thread struct {
	ID string `json:"id"`

	// Representative snapshot, taken from the most recent card.
	UserContent string        `json:"userContent,omitempty"`
	AIContent   string        `json:"aiContent,omitempty"`
	Timestamp   msg.Timestamp `json:"timestamp"`

	Resources         []msg.Resource `json:"resources,omitempty"`
	ConversationCount int            `json:"conversationCount"`

	// Cards holds every contributing card in ascending time order.
	Cards []Card `json:"threadMessages"`

	IsCurrent bool `json:"isCurrent"`
	IsStored  bool `json:"isStored"`
}

// Aggregate groups cards into threads: resources are deduplicated
// first-wins, the representative snapshot comes from the card with the
// latest valid timestamp, and the resulting list is ordered newest thread
// first. Malformed cards are skipped with a warning, never an error; the
// output feeds a display where a missing conversation beats a crash.
//
// Aggregation builds threads fresh from the card set it is given, so
// re-running it on the same cards is idempotent.
func Aggregate(cards []Card) []Thread {
	log := logging.Component("aggregate")

	groups := make(map[string]*Thread)
	keys := make([]string, 0, len(cards))

	for i := range cards {
		card := cards[i]

		key := groupKey(&card)
		if key == "" || !card.HasContent() {
			log.Warn().Int("index", i).Msg("skipping malformed conversation card")
			continue
		}

		group, ok := groups[key]
		if !ok {
			group = &Thread{ID: key}
			groups[key] = group
			keys = append(keys, key)
		}

		group.Cards = append(group.Cards, card)
		group.IsCurrent = group.IsCurrent || card.IsCurrent
		group.IsStored = group.IsStored || card.IsStored
		mergeResources(group, card.Resources)
	}

	threads := make([]Thread, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		finalizeThread(group)
		threads = append(threads, *group)
	}

	// Newest first; threads with no valid timestamp sort last.
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i].Timestamp, threads[j].Timestamp
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Valid && a.Millis > b.Millis
	})

	return threads
}

// groupKey picks the aggregation key for a card: resolved thread id, then
// conversation id, then the card's own id (a singleton thread).
func groupKey(card *Card) string {
	if card.ThreadID != "" {
		return card.ThreadID
	}
	if card.ConversationID != "" {
		return card.ConversationID
	}
	return card.ID
}

// mergeResources folds a card's resources into the thread, dropping
// duplicates. First occurrence wins; later matches on the same key are
// not merged field by field.
func mergeResources(group *Thread, resources []msg.Resource) {
	for _, r := range resources {
		key := r.Key()
		if key == "" {
			continue
		}
		duplicate := false
		for i := range group.Resources {
			if group.Resources[i].Key() == key {
				duplicate = true
				break
			}
		}
		if !duplicate {
			group.Resources = append(group.Resources, r)
		}
	}
}

// finalizeThread orders the cards, counts them, and takes the
// representative snapshot from the most recent card. Ties and invalid
// timestamps fall back to arrival order.
func finalizeThread(group *Thread) {
	group.ConversationCount = len(group.Cards)

	rep := 0
	for i := 1; i < len(group.Cards); i++ {
		candidate := group.Cards[i].Timestamp
		current := group.Cards[rep].Timestamp
		if candidate.Valid && (!current.Valid || candidate.Millis > current.Millis) {
			rep = i
		}
	}
	if len(group.Cards) > 0 {
		latest := group.Cards[rep]
		group.UserContent = latest.UserContent
		group.AIContent = latest.AIContent
		group.Timestamp = latest.Timestamp
	}

	// Ascending inside the thread; invalid timestamps sort first.
	sort.SliceStable(group.Cards, func(i, j int) bool {
		a, b := group.Cards[i].Timestamp, group.Cards[j].Timestamp
		if a.Valid != b.Valid {
			return !a.Valid
		}
		return a.Valid && a.Millis < b.Millis
	})
}
