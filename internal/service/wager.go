package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"discord-game-bot/internal/model"
	"discord-game-bot/internal/repository"
)

// Wager errors.
var (
	ErrInvalidWager      = errors.New("wager must be positive")
	ErrInvalidMultiplier = errors.New("multiplier is not one of the offered choices")
)

// Multipliers is the fixed set of payout multipliers a bettor may choose.
var Multipliers = []float64{1.5, 2, 5, 10, 15, 20}

// baseWinPercent is the win probability, in percent, at multiplier index 0.
// Each step up the multiplier list doubles it.
const baseWinPercent = 0.3

// MultiplierIndex returns the position of m in Multipliers.
func MultiplierIndex(m float64) (int, bool) {
	for i, v := range Multipliers {
		if v == m {
			return i, true
		}
	}
	return 0, false
}

// WinProbability returns the win probability as a fraction in [0, 1] for
// the multiplier at index i. Double odds doubles the base probability.
func WinProbability(index int, doubleOdds bool) float64 {
	p := baseWinPercent * math.Pow(2, float64(index)) / 100
	if doubleOdds {
		p *= 2
	}
	if p > 1 {
		p = 1
	}
	return p
}

// WinPayout returns the gross payout for a winning wager.
func WinPayout(wager int64, multiplier float64) int64 {
	return int64(math.Round(float64(wager) * multiplier))
}

// WagerResult describes the outcome of a resolved gamble.
type WagerResult struct {
	Won         bool
	Wager       int64
	Multiplier  float64
	DoubleOdds  bool
	Probability float64
	Delta       int64 // net balance change, negative on loss
	NewBalance  int64
}

// WagerService resolves gamble commands: it computes the win probability
// from the chosen multiplier, debits the stake up front, draws an outcome
// and settles through the ledger. Wager movements are passive with
// respect to the manual cooldown anchors.
type WagerService struct {
	ledger   *LedgerService
	maxWager int64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWagerService creates a new WagerService instance. A nil rng gets a
// time-seeded source; tests pass a fixed seed for reproducible draws.
// A maxWager of 0 disables the bot-level stake ceiling.
func NewWagerService(ledger *LedgerService, maxWager int64, rng *rand.Rand) *WagerService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &WagerService{
		ledger:   ledger,
		maxWager: maxWager,
		rng:      rng,
	}
}

func (s *WagerService) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Resolve runs one gamble. The stake is debited unconditionally first; a
// win credits wager*multiplier, a double-odds loss debits the additional
// wager*multiplier - wager on top of the stake already taken, and a
// normal loss ends with the stake alone.
func (s *WagerService) Resolve(ctx context.Context, userID, guildID string, wager int64, multiplier float64, doubleOdds bool) (*WagerResult, error) {
	if wager <= 0 {
		return nil, ErrInvalidWager
	}
	if s.maxWager > 0 && wager > s.maxWager {
		return nil, fmt.Errorf("%w: max wager is %d", ErrInvalidWager, s.maxWager)
	}
	index, ok := MultiplierIndex(multiplier)
	if !ok {
		return nil, ErrInvalidMultiplier
	}

	balance, err := s.ledger.Balance(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if balance < 1 || wager > balance {
		return nil, ErrInsufficientBalance
	}

	probability := WinProbability(index, doubleOdds)
	payout := WinPayout(wager, multiplier)

	stakeDesc := fmt.Sprintf("gamble stake at %gx", multiplier)
	entry, err := s.ledger.apply(ctx, userID, guildID, -wager, repository.AnchorNone, model.TxTypeWagerBet, &stakeDesc)
	if err != nil {
		return nil, err
	}

	result := &WagerResult{
		Wager:       wager,
		Multiplier:  multiplier,
		DoubleOdds:  doubleOdds,
		Probability: probability,
		NewBalance:  entry.Balance,
	}

	if s.roll() < probability {
		winDesc := fmt.Sprintf("gamble win at %gx", multiplier)
		entry, err = s.ledger.apply(ctx, userID, guildID, payout, repository.AnchorNone, model.TxTypeWagerWin, &winDesc)
		if err != nil {
			return nil, err
		}
		result.Won = true
		result.Delta = payout - wager
		result.NewBalance = entry.Balance
		return result, nil
	}

	if doubleOdds {
		// The doubled odds were bought with a multiplied downside: the
		// loss uses the multiplier too, beyond the stake already taken.
		extra := payout - wager
		lossDesc := fmt.Sprintf("double-odds gamble loss at %gx", multiplier)
		entry, err = s.ledger.apply(ctx, userID, guildID, -extra, repository.AnchorNone, model.TxTypeWagerLoss, &lossDesc)
		if err != nil {
			return nil, err
		}
		result.Delta = -(wager + extra)
		result.NewBalance = entry.Balance
		return result, nil
	}

	result.Delta = -wager
	return result, nil
}
