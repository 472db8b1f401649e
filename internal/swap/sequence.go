package swap

import (
	"context"
	"math/rand"

	"mimicbot/internal/remote"
	logx "mimicbot/pkg/logx"
)

// API is the slice of the remote client the engine needs.
// *remote.Client satisfies it.
type API interface {
	Poke(ctx context.Context, groupID, userID string) error
	SetCard(ctx context.Context, groupID, userID, card string) error
	MemberInfo(ctx context.Context, groupID, userID string) (remote.MemberInfo, error)
}

// Identity is the bot's own identity: its account on the remote platform and
// the configured names that feed the reciprocal-swap pool.
type Identity struct {
	AccountID string
	Nickname  string
	Aliases   []string
}

// Sequencer runs the fixed action sequence against one selected target.
type Sequencer struct {
	api  API
	pick func(n int) int // candidate-name pick; injectable for tests
	log  logx.Logger
}

func NewSequencer(api API, log logx.Logger) *Sequencer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sequencer{api: api, pick: rand.Intn, log: log}
}

// Run executes, in order: poke the target, fetch the target's member info,
// fetch the bot's own member info, set the bot's card to the target's
// resolved display name, and (admin role only) set the target's card to a
// random name from the bot's pool.
//
// The poke and both card writes fail soft: each is logged and the sequence
// continues. The two info fetches abort the rest of the cycle, since every
// later step depends on their data; the abort error is returned after being
// logged. Steps 4 and 5 are independent failure domains: a failed own-card
// write does not suppress the reciprocal swap.
func (s *Sequencer) Run(ctx context.Context, group remote.Group, ident Identity, targetID string) error {
	log := s.log.With(logx.String("group", group.Display()), logx.String("target", targetID))

	if err := s.api.Poke(ctx, group.GroupID, targetID); err != nil {
		log.Warn("poke failed; continuing", logx.Err(err))
	} else {
		log.Debug("poked target")
	}

	target, err := s.api.MemberInfo(ctx, group.GroupID, targetID)
	if err != nil {
		log.Error("target member info failed; aborting cycle", logx.Err(err))
		return err
	}
	targetName := target.DisplayName()

	self, err := s.api.MemberInfo(ctx, group.GroupID, ident.AccountID)
	if err != nil {
		log.Error("own member info failed; aborting cycle", logx.Err(err))
		return err
	}

	if err := s.api.SetCard(ctx, group.GroupID, ident.AccountID, targetName); err != nil {
		log.Error("setting own card failed", logx.String("card", targetName), logx.Err(err))
	} else {
		log.Debug("own card set", logx.String("card", targetName))
	}

	// The reciprocal swap needs card-write privileges over other members.
	if !self.IsAdmin() {
		log.Debug("not admin; skipping reciprocal swap", logx.String("role", self.Role))
		return nil
	}
	pool := candidatePool(ident, self.Card)
	if len(pool) == 0 {
		log.Warn("no candidate names for reciprocal swap; skipping")
		return nil
	}
	newCard := pool[s.pick(len(pool))]
	if err := s.api.SetCard(ctx, group.GroupID, targetID, newCard); err != nil {
		log.Error("setting target card failed", logx.String("card", newCard), logx.Err(err))
	} else {
		log.Debug("target card set", logx.String("card", newCard))
	}
	return nil
}

// candidatePool builds the reciprocal-swap name pool: configured nickname,
// alias list, and the bot's pre-existing card. Empty entries are dropped.
func candidatePool(ident Identity, priorCard string) []string {
	pool := make([]string, 0, len(ident.Aliases)+2)
	if ident.Nickname != "" {
		pool = append(pool, ident.Nickname)
	}
	for _, a := range ident.Aliases {
		if a != "" {
			pool = append(pool, a)
		}
	}
	if priorCard != "" {
		pool = append(pool, priorCard)
	}
	return pool
}
