package services

import (
	"context"
	"errors"

	"github.com/go-kit/log/level"
	"github.com/quresis/go-quresis-server/eventlog"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/locker"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
)

// HookService manages the per asset policy records
type HookService struct {
	hookRepo repository.Repository
	locker   locker.Locker
	events   eventlog.Sink
	clock    util.Clock
	opts     GuardOptions
}

func NewHookService(deps *Dependencies) *HookService {
	hookRepo, err := deps.DBSelector.ChooseDB(repository.Hook)
	if err != nil {
		panic(err)
	}
	return &HookService{
		hookRepo: hookRepo,
		locker:   deps.Locker,
		events:   deps.Events,
		clock:    deps.Clock,
		opts:     deps.Options,
	}
}

// InitializeHook creates the policy record of an asset with zeroed counters
func (hs *HookService) InitializeHook(ctx context.Context, asset, authority types.PublicKey, mode types.EnforcementMode) (*types.HookConfig, error) {
	if !mode.IsValid() {
		return nil, types.ErrInvalidEnforcementMode
	}

	unlock, err := lockRecord(ctx, hs.locker, hookLockKey(asset), hs.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	hook := &types.HookConfig{
		Asset:           asset,
		Authority:       authority,
		EnforcementMode: mode,
		Bump:            types.DefaultBump,
		CreatedAt:       hs.clock.Now().Unix(),
	}
	if err := hs.save(ctx, hook); err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, types.ErrHookExists
		}
		return nil, err
	}
	return hook, nil
}

// UpdateEnforcementMode moves the hook to any mode. Only the authority may call it.
func (hs *HookService) UpdateEnforcementMode(ctx context.Context, asset, caller types.PublicKey, mode types.EnforcementMode) (*types.HookConfig, error) {
	if !mode.IsValid() {
		return nil, types.ErrInvalidEnforcementMode
	}

	unlock, err := lockRecord(ctx, hs.locker, hookLockKey(asset), hs.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	hook, err := hs.load(ctx, asset)
	if err != nil {
		return nil, err
	}
	if hook.Authority != caller {
		return nil, types.ErrUnauthorized
	}
	oldMode := hook.EnforcementMode
	hook.EnforcementMode = mode
	if err := hs.save(ctx, hook); err != nil {
		return nil, err
	}

	emitEvent(ctx, hs.events, types.NewEnforcementModeUpdatedEvent(asset, caller, oldMode, mode, hs.clock.Slot(), hs.clock.Now()))
	return hook, nil
}

// GetStatistics is a pure read of the hook record
func (hs *HookService) GetStatistics(ctx context.Context, asset types.PublicKey) (*types.HookConfig, error) {
	return hs.load(ctx, asset)
}

// ListHooks returns a page of hook records
func (hs *HookService) ListHooks(ctx context.Context, limit, skip int) ([]*types.HookConfig, error) {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	docs, err := hs.hookRepo.GetAll(sctx, limit, skip)
	if err != nil {
		return nil, err
	}
	hooks := make([]*types.HookConfig, 0, len(docs))
	for _, raw := range docs {
		var hook types.HookConfig
		if mErr := repository.MapToObject(raw, &hook); mErr != nil {
			level.Warn(global.Logger).Log("msg", "skipping unreadable hook document", "err", mErr)
			continue
		}
		hooks = append(hooks, &hook)
	}
	return hooks, nil
}

func (hs *HookService) load(ctx context.Context, asset types.PublicKey) (*types.HookConfig, error) {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	raw, err := hs.hookRepo.GetByID(sctx, asset.String())
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrHookNotInitialized
		}
		level.Error(global.Logger).Log("msg", "failed to load hook", "asset", asset.String(), "err", err)
		return nil, err
	}
	var hook types.HookConfig
	if err := repository.MapToObject(raw, &hook); err != nil {
		level.Error(global.Logger).Log("msg", "failed to map hook document", "asset", asset.String(), "err", err)
		return nil, err
	}
	return &hook, nil
}

// save writes the hook over the revision it was read at
func (hs *HookService) save(ctx context.Context, hook *types.HookConfig) error {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	if err := hs.hookRepo.Save(sctx, hook.Asset.String(), hook); err != nil {
		if !errors.Is(err, types.ErrConflict) {
			level.Error(global.Logger).Log("msg", "failed to save hook", "asset", hook.Asset.String(), "err", err)
		}
		return err
	}
	return nil
}
