package swap

import (
	"context"
	"fmt"
	"testing"

	"mimicbot/internal/remote"
	logx "mimicbot/pkg/logx"
)

// fakeAPI records calls and serves canned member data.
type fakeAPI struct {
	pokeErr   error
	members   map[string]remote.MemberInfo
	memberErr map[string]error
	cardErr   map[string]error

	calls []string
}

func (f *fakeAPI) Poke(ctx context.Context, groupID, userID string) error {
	f.calls = append(f.calls, "poke:"+userID)
	return f.pokeErr
}

func (f *fakeAPI) SetCard(ctx context.Context, groupID, userID, card string) error {
	f.calls = append(f.calls, fmt.Sprintf("card:%s:%s", userID, card))
	return f.cardErr[userID]
}

func (f *fakeAPI) MemberInfo(ctx context.Context, groupID, userID string) (remote.MemberInfo, error) {
	f.calls = append(f.calls, "info:"+userID)
	if err := f.memberErr[userID]; err != nil {
		return remote.MemberInfo{}, err
	}
	return f.members[userID], nil
}

func (f *fakeAPI) cardCalls() []string {
	var out []string
	for _, c := range f.calls {
		if len(c) > 5 && c[:5] == "card:" {
			out = append(out, c)
		}
	}
	return out
}

var testIdent = Identity{AccountID: "bot", Nickname: "nick", Aliases: []string{"ali"}}

func newSeqAPI(botRole string) *fakeAPI {
	return &fakeAPI{
		members: map[string]remote.MemberInfo{
			"tgt": {UserID: "tgt", Card: "tcard", Nickname: "tnick", Role: remote.RoleMember},
			"bot": {UserID: "bot", Card: "bcard", Nickname: "bnick", Role: botRole},
		},
		memberErr: map[string]error{},
		cardErr:   map[string]error{},
	}
}

func g() remote.Group { return remote.Group{GroupID: "1001", GroupName: "test"} }

func newTestSequencer(api *fakeAPI) *Sequencer {
	s := NewSequencer(api, logx.Nop())
	s.pick = func(n int) int { return 0 }
	return s
}

func TestSequenceHappyPath(t *testing.T) {
	t.Parallel()
	api := newSeqAPI(remote.RoleAdmin)
	s := newTestSequencer(api)

	if err := s.Run(context.Background(), g(), testIdent, "tgt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cards := api.cardCalls()
	if len(cards) != 2 {
		t.Fatalf("card calls = %v, want own + reciprocal", cards)
	}
	if cards[0] != "card:bot:tcard" {
		t.Fatalf("own card call = %q, want card:bot:tcard", cards[0])
	}
	// pick=0 selects the configured nickname from the pool.
	if cards[1] != "card:tgt:nick" {
		t.Fatalf("reciprocal call = %q, want card:tgt:nick", cards[1])
	}
}

func TestSequencePokeFailureContinues(t *testing.T) {
	t.Parallel()
	api := newSeqAPI(remote.RoleAdmin)
	api.pokeErr = &remote.CallError{Kind: remote.FailNetwork, Action: "group_poke"}
	s := newTestSequencer(api)

	if err := s.Run(context.Background(), g(), testIdent, "tgt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(api.cardCalls()) != 2 {
		t.Fatalf("card calls = %v, want sequence to continue past poke failure", api.cardCalls())
	}
}

func TestSequenceTargetInfoFailureAborts(t *testing.T) {
	t.Parallel()
	api := newSeqAPI(remote.RoleAdmin)
	api.memberErr["tgt"] = &remote.CallError{Kind: remote.FailEmpty, Action: "get_group_member_info"}
	s := newTestSequencer(api)

	if err := s.Run(context.Background(), g(), testIdent, "tgt"); err == nil {
		t.Fatal("expected fatal error for target info failure")
	}
	if len(api.cardCalls()) != 0 {
		t.Fatalf("card calls = %v, want none after fatal target info failure", api.cardCalls())
	}
}

func TestSequenceOwnInfoFailureAborts(t *testing.T) {
	t.Parallel()
	api := newSeqAPI(remote.RoleAdmin)
	api.memberErr["bot"] = &remote.CallError{Kind: remote.FailNetwork, Action: "get_group_member_info"}
	s := newTestSequencer(api)

	if err := s.Run(context.Background(), g(), testIdent, "tgt"); err == nil {
		t.Fatal("expected fatal error for own info failure")
	}
	if len(api.cardCalls()) != 0 {
		t.Fatalf("card calls = %v, want none after fatal own info failure", api.cardCalls())
	}
}

func TestSequenceMemberRoleNeverTouchesTarget(t *testing.T) {
	t.Parallel()
	api := newSeqAPI(remote.RoleMember)
	s := newTestSequencer(api)

	if err := s.Run(context.Background(), g(), testIdent, "tgt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, c := range api.cardCalls() {
		if c == "card:bot:tcard" {
			continue
		}
		t.Fatalf("unexpected card call %q; member role must not modify the target", c)
	}
}

func TestSequenceOwnCardFailureStillSwapsTarget(t *testing.T) {
	t.Parallel()
	api := newSeqAPI(remote.RoleOwner)
	api.cardErr["bot"] = &remote.CallError{Kind: remote.FailStatus, Action: "set_group_card"}
	s := newTestSequencer(api)

	if err := s.Run(context.Background(), g(), testIdent, "tgt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cards := api.cardCalls()
	if len(cards) != 2 || cards[1] != "card:tgt:nick" {
		t.Fatalf("card calls = %v, want reciprocal swap attempted after own-card failure", cards)
	}
}

func TestSequenceEmptyPoolSkipsReciprocal(t *testing.T) {
	t.Parallel()
	api := newSeqAPI(remote.RoleAdmin)
	m := api.members["bot"]
	m.Card = ""
	api.members["bot"] = m
	s := newTestSequencer(api)

	ident := Identity{AccountID: "bot"} // no nickname, no aliases
	if err := s.Run(context.Background(), g(), ident, "tgt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cards := api.cardCalls()
	if len(cards) != 1 {
		t.Fatalf("card calls = %v, want only own card set", cards)
	}
}

func TestSequenceDisplayNameFallback(t *testing.T) {
	t.Parallel()
	api := newSeqAPI(remote.RoleMember)
	m := api.members["tgt"]
	m.Card = ""
	api.members["tgt"] = m
	s := newTestSequencer(api)

	if err := s.Run(context.Background(), g(), testIdent, "tgt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cards := api.cardCalls()
	if len(cards) != 1 || cards[0] != "card:bot:tnick" {
		t.Fatalf("card calls = %v, want own card set to target nickname", cards)
	}
}

func TestCandidatePoolDropsEmptyEntries(t *testing.T) {
	t.Parallel()
	pool := candidatePool(Identity{Nickname: "n", Aliases: []string{"", "a"}}, "")
	if len(pool) != 2 || pool[0] != "n" || pool[1] != "a" {
		t.Fatalf("pool = %v, want [n a]", pool)
	}
}
