package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"partyvote/internal/domain"
	"partyvote/internal/store/memory"
)

func newTestLedger(t *testing.T) (*VoteLedger, *memory.Store, *recordingNotifier, *recordingPublisher) {
	t.Helper()
	st := memory.NewStore()
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	ledger := NewVoteLedger(LedgerConfig{
		Store:     st,
		Notifier:  notifier,
		Publisher: publisher,
	})
	require.NoError(t, ledger.Restore(context.Background()))
	return ledger, st, notifier, publisher
}

func tallySum(entries []domain.TallyEntry) int {
	sum := 0
	for _, e := range entries {
		sum += e.Count
	}
	return sum
}

func TestCastVoteFirstTimeVoter(t *testing.T) {
	require := require.New(t)
	ledger, _, notifier, publisher := newTestLedger(t)

	require.NoError(ledger.CastVote(context.Background(), "U1", "alice", "<@u2>", domain.CategoryKill))

	tally := ledger.Tally(domain.CategoryKill)
	require.Len(tally, 1)
	require.Equal("<@U2>", tally[0].Target)
	require.Equal([]domain.Voter{{ID: "U1", Name: "alice"}}, tally[0].Voters)
	require.Equal([]string{"KILL tally: <@U2>=1"}, notifier.summaries)
	require.Equal([]domain.EventType{domain.EventVoteCast}, publisher.types())
	require.Empty(ledger.Tally(domain.CategoryPrayer))
}

func TestRevoteMovesVoter(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, _, _, _ := newTestLedger(t)

	require.NoError(ledger.CastVote(ctx, "U1", "alice", "bob", domain.CategoryKill))
	require.NoError(ledger.CastVote(ctx, "U2", "carol", "bob", domain.CategoryKill))
	require.NoError(ledger.CastVote(ctx, "U1", "alice", "dave", domain.CategoryKill))

	tally := ledger.Tally(domain.CategoryKill)
	require.Len(tally, 2)
	require.Equal("BOB", tally[0].Target)
	require.Equal(1, tally[0].Count)
	require.Equal("U2", tally[0].Voters[0].ID)
	require.Equal("DAVE", tally[1].Target)

	vote, ok := ledger.LiveVote("U1", domain.CategoryKill)
	require.True(ok)
	require.Equal("DAVE", vote.Target)
	require.True(ledger.ConsistencyCheck())
}

func TestRevoteSameTargetDoesNotDuplicate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, _, _, _ := newTestLedger(t)

	require.NoError(ledger.CastVote(ctx, "U1", "alice", "bob", domain.CategoryKill))
	require.NoError(ledger.CastVote(ctx, "U1", "alice", "BOB", domain.CategoryKill))
	require.NoError(ledger.CastVote(ctx, "U1", "alice", " Bob ", domain.CategoryKill))

	tally := ledger.Tally(domain.CategoryKill)
	require.Len(tally, 1)
	require.Equal(1, tally[0].Count)
	require.Len(tally[0].Voters, 1)
}

func TestCategoriesAreIndependent(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, st, _, _ := newTestLedger(t)

	require.NoError(ledger.CastVote(ctx, "U1", "alice", "bob", domain.CategoryKill))
	require.NoError(ledger.CastVote(ctx, "U1", "alice", "carol", domain.CategoryPrayer))

	require.Equal(1, ledger.VoteCount(domain.CategoryKill))
	require.Equal(1, ledger.VoteCount(domain.CategoryPrayer))
	require.Equal("CAROL", ledger.Tally(domain.CategoryPrayer)[0].Target)

	votes, err := st.LoadVotes(ctx)
	require.NoError(err)
	require.Len(votes, 2)
}

func TestTallyOrdering(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, _, _, _ := newTestLedger(t)

	casts := []struct{ voter, target string }{
		{"U1", "zed"}, {"U2", "amy"}, {"U3", "zed"}, {"U4", "bob"}, {"U5", "amy"}, {"U6", "cat"},
	}
	for _, c := range casts {
		require.NoError(ledger.CastVote(ctx, c.voter, c.voter, c.target, domain.CategoryKill))
	}

	var got []string
	for _, e := range ledger.Tally(domain.CategoryKill) {
		got = append(got, fmt.Sprintf("%s:%d", e.Target, e.Count))
	}
	require.Equal([]string{"AMY:2", "ZED:2", "BOB:1", "CAT:1"}, got)
}

func TestCastVoteValidation(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, _, notifier, _ := newTestLedger(t)

	require.ErrorIs(ledger.CastVote(ctx, "", "x", "bob", domain.CategoryKill), domain.ErrInvalidPlayer)
	require.ErrorIs(ledger.CastVote(ctx, "U1", "x", "   ", domain.CategoryKill), domain.ErrInvalidTarget)
	require.ErrorIs(ledger.CastVote(ctx, "U1", "x", "bob", domain.Category("HUG")), domain.ErrInvalidCategory)
	require.Empty(notifier.summaries)
}

func TestCastVoteStorageFailureLeavesLedgerUntouched(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, st, notifier, _ := newTestLedger(t)

	require.NoError(ledger.CastVote(ctx, "U1", "alice", "bob", domain.CategoryKill))

	st.SetFailure(errors.New("connection refused"))
	err := ledger.CastVote(ctx, "U1", "alice", "carol", domain.CategoryKill)
	require.ErrorIs(err, domain.ErrStorageUnavailable)

	vote, ok := ledger.LiveVote("U1", domain.CategoryKill)
	require.True(ok)
	require.Equal("BOB", vote.Target)
	require.Len(notifier.summaries, 1)
}

func TestNotifierFailureDoesNotFailCast(t *testing.T) {
	ledger, _, notifier, _ := newTestLedger(t)
	notifier.err = errors.New("chat down")

	require.NoError(t, ledger.CastVote(context.Background(), "U1", "alice", "bob", domain.CategoryKill))
	require.Equal(t, 1, ledger.VoteCount(domain.CategoryKill))
}

func TestRestoreRebuildsIndexes(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, st, _, _ := newTestLedger(t)

	require.NoError(ledger.CastVote(ctx, "U1", "alice", "bob", domain.CategoryKill))
	require.NoError(ledger.CastVote(ctx, "U2", "carol", "bob", domain.CategoryKill))
	require.NoError(ledger.CastVote(ctx, "U1", "alice", "dave", domain.CategoryKill))

	restarted := NewVoteLedger(LedgerConfig{Store: st})
	require.NoError(restarted.Restore(ctx))
	require.Equal(ledger.Tally(domain.CategoryKill), restarted.Tally(domain.CategoryKill))
	require.True(restarted.ConsistencyCheck())
}

func TestRestoreStorageFailure(t *testing.T) {
	st := memory.NewStore()
	st.SetFailure(errors.New("down"))
	ledger := NewVoteLedger(LedgerConfig{Store: st})
	require.ErrorIs(t, ledger.Restore(context.Background()), domain.ErrStorageUnavailable)
}

func TestRandomVotesKeepInvariants(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, _, _, _ := newTestLedger(t)

	rng := rand.New(rand.NewSource(7))
	voters := []string{"U1", "U2", "U3", "U4", "U5"}
	targets := []string{"amy", "bob", "cat"}
	live := map[string]string{}

	for i := 0; i < 200; i++ {
		voter := voters[rng.Intn(len(voters))]
		target := targets[rng.Intn(len(targets))]
		require.NoError(ledger.CastVote(ctx, voter, voter, target, domain.CategoryKill))
		live[voter] = domain.NormalizeTarget(target)

		tally := ledger.Tally(domain.CategoryKill)
		require.Equal(len(live), tallySum(tally))

		seen := map[string]int{}
		for _, e := range tally {
			for _, v := range e.Voters {
				seen[v.ID]++
				require.Equal(live[v.ID], e.Target)
			}
		}
		for id, n := range seen {
			require.Equal(1, n, "voter %s listed %d times", id, n)
		}
		require.True(ledger.ConsistencyCheck())
	}
}

func TestConcurrentCastsKeepInvariants(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ledger, _, notifier, publisher := newTestLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := fmt.Sprintf("U%d", i%5)
			for j := 0; j < 25; j++ {
				target := fmt.Sprintf("T%d", (i+j)%4)
				if err := ledger.CastVote(ctx, voter, voter, target, domain.CategoryKill); err != nil {
					t.Error(err)
				}
				_ = ledger.Tally(domain.CategoryKill)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(5, ledger.VoteCount(domain.CategoryKill))
	require.Equal(5, tallySum(ledger.Tally(domain.CategoryKill)))
	require.True(ledger.ConsistencyCheck())

	// The last broadcast matches the final state.
	publisher.mu.Lock()
	last := publisher.events[len(publisher.events)-1]
	publisher.mu.Unlock()
	payload, ok := last.Payload.(*domain.VoteCastPayload)
	require.True(ok)
	require.Equal(ledger.Tally(domain.CategoryKill), payload.Tally)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(notifier.summaries, 20*25)
	require.Equal(oneLineSummary(domain.CategoryKill, ledger.Tally(domain.CategoryKill)),
		notifier.summaries[len(notifier.summaries)-1])
}

func TestNotificationsFollowCommitOrder(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	notifier := newHeldNotifier()
	publisher := &recordingPublisher{}
	ledger := NewVoteLedger(LedgerConfig{
		Store:     memory.NewStore(),
		Notifier:  notifier,
		Publisher: publisher,
	})
	require.NoError(ledger.Restore(ctx))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := ledger.CastVote(ctx, "U1", "alice", "T1", domain.CategoryKill); err != nil {
			t.Error(err)
		}
	}()
	<-notifier.entered

	go func() {
		defer wg.Done()
		if err := ledger.CastVote(ctx, "U2", "bob", "T1", domain.CategoryKill); err != nil {
			t.Error(err)
		}
	}()
	// The second vote commits and broadcasts while the first summary is still in flight.
	require.Eventually(func() bool {
		return len(publisher.types()) == 2
	}, time.Second, 5*time.Millisecond)
	require.Empty(notifier.recorded())

	close(notifier.release)
	wg.Wait()

	require.Equal([]string{
		"KILL tally: T1=1",
		"KILL tally: T1=2",
	}, notifier.recorded())
}

func TestCastVoteStoreTimeout(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	st := &hangingStore{Store: memory.NewStore()}
	notifier := &recordingNotifier{}
	ledger := NewVoteLedger(LedgerConfig{
		Store:        st,
		Notifier:     notifier,
		StoreTimeout: 50 * time.Millisecond,
	})
	require.NoError(ledger.Restore(ctx))
	require.NoError(ledger.CastVote(ctx, "U1", "alice", "T1", domain.CategoryKill))
	before := ledger.Tally(domain.CategoryKill)

	st.hang.Store(true)
	start := time.Now()
	err := ledger.CastVote(ctx, "U1", "alice", "T2", domain.CategoryKill)
	elapsed := time.Since(start)

	require.ErrorIs(err, domain.ErrStorageUnavailable)
	require.ErrorIs(err, context.DeadlineExceeded)
	require.Less(elapsed, time.Second)
	require.Equal(before, ledger.Tally(domain.CategoryKill))
	require.Equal(1, ledger.VoteCount(domain.CategoryKill))
	require.True(ledger.ConsistencyCheck())
	require.Len(notifier.summaries, 1)

	// The gate is not left waiting on a ticket that was never issued.
	st.hang.Store(false)
	require.NoError(ledger.CastVote(ctx, "U1", "alice", "T2", domain.CategoryKill))
	require.Len(notifier.summaries, 2)
}
