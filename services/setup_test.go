package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/quresis/go-quresis-server/eventlog"
	"github.com/quresis/go-quresis-server/locker"
	"github.com/quresis/go-quresis-server/pqc"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	deps       *Dependencies
	sink       *eventlog.MemorySink
	clock      *util.ManualClock
	identities *IdentityService
	hooks      *HookService
	guard      *TransferGuard
	selector   *repository.CouchDBSelector
}

func newTestEnv(t *testing.T, oracle pqc.SignatureOracle, mutate ...func(*GuardOptions)) *testEnv {
	t.Helper()
	selector := repository.NewCouchDBSelector()
	selector.AddDB(repository.NewMemoryRepository(repository.Identity))
	selector.AddDB(repository.NewMemoryRepository(repository.Hook))
	selector.AddDB(repository.NewMemoryRepository(repository.Event))

	opts := DefaultGuardOptions()
	for _, m := range mutate {
		m(&opts)
	}
	sink := eventlog.NewMemorySink()
	clock := util.NewManualClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 1000)
	deps := &Dependencies{
		DBSelector: selector,
		Oracle:     oracle,
		Locker:     locker.NewLocalLocker(64),
		Events:     sink,
		Clock:      clock,
		Options:    opts,
	}
	identities := NewIdentityService(deps)
	return &testEnv{
		deps:       deps,
		sink:       sink,
		clock:      clock,
		identities: identities,
		hooks:      NewHookService(deps),
		guard:      NewTransferGuard(deps, identities),
		selector:   selector,
	}
}

// lowThresholds allows the small amounts used in transfer scenarios
func lowThresholds(o *GuardOptions) {
	o.MinThreshold = 1
}

func testKey(b byte) types.PublicKey {
	var pk types.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func pqcKey(size int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, size)
}

func validSig() []byte {
	return []byte{1, 2, 3, 4, 5}
}

func sentinelSig() []byte {
	return append(append([]byte{}, pqc.FailureSentinel...), 9, 9)
}

func u64(v uint64) *uint64 {
	return &v
}

// writeIdentityRecord stores a raw record, bypassing the identity service
func (e *testEnv) writeIdentityRecord(t *testing.T, owner types.PublicKey, record []byte) {
	t.Helper()
	repo, err := e.selector.ChooseDB(repository.Identity)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), owner.String(), &types.IdentityDocument{Owner: owner.String(), Record: record}))
}

// overwriteHook replaces a hook record, keeping its revision chain
func (e *testEnv) overwriteHook(t *testing.T, hook *types.HookConfig) {
	t.Helper()
	repo, err := e.selector.ChooseDB(repository.Hook)
	require.NoError(t, err)
	raw, err := repo.GetByID(context.Background(), hook.Asset.String())
	require.NoError(t, err)
	var current types.HookConfig
	require.NoError(t, repository.MapToObject(raw, &current))
	hook.BaseDocument = current.BaseDocument
	require.NoError(t, repo.Save(context.Background(), hook.Asset.String(), hook))
}

// writeIdentityRecordOver replaces an existing raw record
func (e *testEnv) writeIdentityRecordOver(t *testing.T, owner types.PublicKey, record []byte) {
	t.Helper()
	repo, err := e.selector.ChooseDB(repository.Identity)
	require.NoError(t, err)
	raw, err := repo.GetByID(context.Background(), owner.String())
	require.NoError(t, err)
	var doc types.IdentityDocument
	require.NoError(t, repository.MapToObject(raw, &doc))
	doc.Record = record
	require.NoError(t, repo.Save(context.Background(), owner.String(), &doc))
}
