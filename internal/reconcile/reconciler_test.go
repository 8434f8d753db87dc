package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famlink/notifier/internal/directory"
	"github.com/famlink/notifier/internal/dispatch"
	"github.com/famlink/notifier/internal/reconcile"
)

func newReconciler(store directory.Store) *reconcile.Reconciler {
	return reconcile.NewReconciler(reconcile.ReconcilerConfig{
		Store:  store,
		Logger: zerolog.Nop(),
	})
}

func failedResult(tokens ...string) *dispatch.Result {
	res := &dispatch.Result{Tokens: tokens}
	for range tokens {
		res.Outcomes = append(res.Outcomes, dispatch.Outcome{Reason: "registration-token-not-registered"})
	}
	return res
}

func TestReconciler_RemovesFailedTokenEverywhere(t *testing.T) {
	store := directory.NewMemoryStore()
	store.Put(&directory.UserRecord{
		UID:    "u2",
		Tier:   directory.TierClassic,
		Tokens: []string{"t1", "t2"},
	})
	store.PutRegistryToken(directory.TierClassic, "u2", "t2")

	res := &dispatch.Result{
		Tokens: []string{"t1", "t2"},
		Outcomes: []dispatch.Outcome{
			{Success: true},
			{Success: false, Reason: "invalid-registration"},
		},
	}

	stats := newReconciler(store).Reconcile(context.Background(), res)
	assert.Equal(t, 1, stats.Invalid)

	rec := store.Record(directory.TierClassic, "u2")
	require.NotNil(t, rec)
	assert.Equal(t, []string{"t1"}, rec.Tokens)

	sub, err := store.RegistryTokens(context.Background(), directory.TierClassic, "u2")
	require.NoError(t, err)
	assert.Empty(t, sub)
}

func TestReconciler_ClearsLegacyScalar(t *testing.T) {
	store := directory.NewMemoryStore()
	store.Put(&directory.UserRecord{
		UID:         "u1",
		Tier:        directory.TierPro,
		LegacyToken: "old",
	})

	newReconciler(store).Reconcile(context.Background(), failedResult("old"))

	rec := store.Record(directory.TierPro, "u1")
	require.NotNil(t, rec)
	assert.Empty(t, rec.LegacyToken)
}

func TestReconciler_SweepsAllTiers(t *testing.T) {
	// Token "x" stale under both a classic and a pro record.
	store := directory.NewMemoryStore()
	store.Put(&directory.UserRecord{UID: "u9", Tier: directory.TierClassic, Tokens: []string{"x", "keep"}})
	store.Put(&directory.UserRecord{UID: "u9", Tier: directory.TierPro, Tokens: []string{"x"}})

	newReconciler(store).Reconcile(context.Background(), failedResult("x"))

	assert.Equal(t, []string{"keep"}, store.Record(directory.TierClassic, "u9").Tokens)
	assert.Empty(t, store.Record(directory.TierPro, "u9").Tokens)
}

func TestReconciler_Idempotent(t *testing.T) {
	store := directory.NewMemoryStore()
	store.Put(&directory.UserRecord{UID: "u1", Tier: directory.TierClassic, Tokens: []string{"bad", "good"}})

	r := newReconciler(store)
	r.Reconcile(context.Background(), failedResult("bad"))
	first := store.Record(directory.TierClassic, "u1").Tokens

	r.Reconcile(context.Background(), failedResult("bad"))
	second := store.Record(directory.TierClassic, "u1").Tokens

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"good"}, second)
}

func TestReconciler_WriteFailureDoesNotAbortSweep(t *testing.T) {
	store := directory.NewMemoryStore()
	store.Put(&directory.UserRecord{UID: "broken", Tier: directory.TierClassic, Tokens: []string{"bad"}})
	store.Put(&directory.UserRecord{UID: "healthy", Tier: directory.TierPro, Tokens: []string{"bad"}})
	store.WriteErr["classic_users/broken"] = errors.New("permission denied")

	stats := newReconciler(store).Reconcile(context.Background(), failedResult("bad"))

	// The pro record must still be cleaned despite the classic failure.
	assert.Empty(t, store.Record(directory.TierPro, "healthy").Tokens)
	assert.Equal(t, []string{"bad"}, store.Record(directory.TierClassic, "broken").Tokens)
	assert.Greater(t, stats.Errors, 0)
}

func TestReconciler_NoFailuresNoWrites(t *testing.T) {
	store := directory.NewMemoryStore()
	store.Put(&directory.UserRecord{UID: "u1", Tier: directory.TierClassic, Tokens: []string{"t"}})

	stats := newReconciler(store).Reconcile(context.Background(), &dispatch.Result{
		Tokens:   []string{"t"},
		Outcomes: []dispatch.Outcome{{Success: true}},
	})

	assert.Zero(t, stats.Invalid)
	assert.Equal(t, []string{"t"}, store.Record(directory.TierClassic, "u1").Tokens)
}
