package bot

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-game-bot/internal/config"
	"discord-game-bot/internal/pkg/lock"
	"discord-game-bot/internal/service"
)

// KeywordListener rewards configured keywords spotted in ordinary guild
// messages. Rewards are passive credits on their own fixed window, so
// they never consume the manual add/remove cooldowns.
type KeywordListener struct {
	keywords map[string]int64
	ledger   *service.LedgerService
	keyLock  *lock.KeyLock
}

// NewKeywordListener creates a new KeywordListener instance.
func NewKeywordListener(cfg *config.Config, ledger *service.LedgerService, keyLock *lock.KeyLock) *KeywordListener {
	keywords := make(map[string]int64, len(cfg.Credits.Keywords))
	for word, amount := range cfg.Credits.Keywords {
		keywords[strings.ToLower(word)] = amount
	}
	return &KeywordListener{
		keywords: keywords,
		ledger:   ledger,
		keyLock:  keyLock,
	}
}

// OnMessage scans a guild message for reward keywords.
func (l *KeywordListener) OnMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if len(l.keywords) == 0 {
		return
	}
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	content := strings.ToLower(m.Content)
	var amount int64
	matched := false
	for word, reward := range l.keywords {
		if strings.Contains(content, word) {
			amount = reward
			matched = true
			break
		}
	}
	if !matched || amount == 0 {
		return
	}

	ctx := context.Background()
	key := lock.LedgerKey(m.Author.ID, m.GuildID)
	l.keyLock.Lock(key)
	defer l.keyLock.Unlock(key)

	allowed, _, err := l.ledger.CanPassiveCredit(ctx, m.Author.ID, m.GuildID)
	if err != nil {
		log.Error().Err(err).Str("user_id", m.Author.ID).Msg("Failed to check passive window")
		return
	}
	if !allowed {
		return
	}

	// Negative keyword amounts are penalties. Both directions stamp the
	// passive anchor so a single window gates all keyword rewards.
	if _, err = l.ledger.Credit(ctx, m.Author.ID, m.GuildID, amount, true); err != nil {
		log.Error().Err(err).Str("user_id", m.Author.ID).Msg("Failed to apply keyword reward")
		return
	}
	log.Debug().
		Str("user_id", m.Author.ID).
		Str("guild_id", m.GuildID).
		Int64("amount", amount).
		Msg("Keyword reward applied")
}
