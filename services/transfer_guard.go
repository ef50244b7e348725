package services

import (
	"context"
	"errors"

	"github.com/go-kit/log/level"
	"github.com/quresis/go-quresis-server/eventlog"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/locker"
	"github.com/quresis/go-quresis-server/metrics"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
)

// TransferGuard runs the decision procedure for every transfer of a guarded asset.
// It inspects the sender's identity record through fixed offsets only.
type TransferGuard struct {
	hookRepo     repository.Repository
	identityRepo repository.Repository
	identities   *IdentityService
	locker       locker.Locker
	events       eventlog.Sink
	clock        util.Clock
	opts         GuardOptions
}

func NewTransferGuard(deps *Dependencies, identities *IdentityService) *TransferGuard {
	hookRepo, err := deps.DBSelector.ChooseDB(repository.Hook)
	if err != nil {
		panic(err)
	}
	identityRepo, err := deps.DBSelector.ChooseDB(repository.Identity)
	if err != nil {
		panic(err)
	}
	return &TransferGuard{
		hookRepo:     hookRepo,
		identityRepo: identityRepo,
		identities:   identities,
		locker:       deps.Locker,
		events:       deps.Events,
		clock:        deps.Clock,
		opts:         deps.Options,
	}
}

// ExecuteTransferCheck returns the verdict for a transfer of amount from sender.
// Hook counters are committed before the verdict is returned, BLOCK included.
// An error means no verdict was reached and the transfer must not proceed.
func (tg *TransferGuard) ExecuteTransferCheck(ctx context.Context, asset, sender types.PublicKey, amount uint64) (*types.Verdict, error) {
	return tg.check(ctx, asset, sender, amount, nil)
}

// ExecuteVerifiedTransferCheck is the second phase of the explicit verify-then-transfer
// protocol. The signature must cover TransferAuthorizationMessage for the sender's
// current key version and sequence. It is only examined when the check would block for
// a missing quantum signature, and a valid one turns that BLOCK into ALLOW and is spent.
// Every other branch behaves as ExecuteTransferCheck.
func (tg *TransferGuard) ExecuteVerifiedTransferCheck(ctx context.Context, asset, sender types.PublicKey, amount uint64, signature []byte) (*types.Verdict, error) {
	return tg.check(ctx, asset, sender, amount, func(ctx context.Context) (bool, error) {
		return tg.identities.ConsumeTransferAuthorization(ctx, asset, sender, amount, signature)
	})
}

// authorizeFunc is consulted under the hook lock for a hard enforced high value transfer
type authorizeFunc func(ctx context.Context) (bool, error)

func (tg *TransferGuard) check(ctx context.Context, asset, sender types.PublicKey, amount uint64, authorize authorizeFunc) (*types.Verdict, error) {
	unlock, err := lockRecord(ctx, tg.locker, hookLockKey(asset), tg.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	hook, err := tg.loadHook(ctx, asset)
	if err != nil {
		return nil, err
	}
	hook.TotalTransfersChecked = types.SaturatingIncU64(hook.TotalTransfersChecked)

	verdict := &types.Verdict{
		Decision:        types.Allow,
		Asset:           asset,
		Sender:          sender,
		Amount:          amount,
		EnforcementMode: hook.EnforcementMode,
	}
	var highValue *types.Event

	record, found, err := tg.peekIdentity(ctx, sender)
	if err != nil {
		return nil, err
	}
	switch {
	case !found:
		// identities are opt in
	case !record.Complete():
		if tg.opts.OnMalformedRecord == MalformedRecordReject {
			verdict.Decision = types.Block
			verdict.Reason = types.ErrInvalidIdentityData
		}
		level.Warn(global.Logger).Log("msg", "malformed identity record", "sender", sender.String(), "size", len(record), "policy", tg.opts.OnMalformedRecord)
	case record.IsFrozen():
		verdict.IdentityFound = true
		verdict.Decision = types.Block
		verdict.Reason = types.ErrIdentityFrozen
	default:
		verdict.IdentityFound = true
		verdict.Threshold = record.Threshold()
		if amount >= verdict.Threshold {
			verdict.HighValue = true
			hook.HighValueTransfersDetected = types.SaturatingIncU64(hook.HighValueTransfersDetected)
			highValue = types.NewHighValueTransferDetectedEvent(asset, sender, amount, verdict.Threshold, hook.EnforcementMode, tg.clock.Slot(), tg.clock.Now())
			if hook.EnforcementMode == types.HardEnforce {
				authorized := false
				if authorize != nil {
					if authorized, err = authorize(ctx); err != nil {
						return nil, err
					}
				}
				if authorized {
					verdict.SignatureValid = true
				} else {
					verdict.Decision = types.Block
					verdict.Reason = types.ErrQuantumSignatureRequired
				}
			}
		}
	}

	if err := tg.saveHook(ctx, hook); err != nil {
		return nil, err
	}

	mode := hook.EnforcementMode.String()
	metrics.TransferChecksTotal.WithLabelValues(string(verdict.Decision), mode).Inc()
	if highValue != nil {
		metrics.HighValueTransfersTotal.WithLabelValues(mode).Inc()
		emitEvent(ctx, tg.events, highValue)
	}
	return verdict, nil
}

// peekIdentity returns the raw identity record of sender without decoding it
func (tg *TransferGuard) peekIdentity(ctx context.Context, sender types.PublicKey) (types.IdentityRecordView, bool, error) {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	raw, err := tg.identityRepo.GetByID(sctx, sender.String())
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, false, nil
		}
		level.Error(global.Logger).Log("msg", "failed to load identity record", "sender", sender.String(), "err", err)
		return nil, false, err
	}
	var doc types.IdentityDocument
	if err := repository.MapToObject(raw, &doc); err != nil {
		// unreadable documents are inspected as empty records
		return types.IdentityRecordView{}, true, nil
	}
	return types.IdentityRecordView(doc.Record), true, nil
}

func (tg *TransferGuard) loadHook(ctx context.Context, asset types.PublicKey) (*types.HookConfig, error) {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	raw, err := tg.hookRepo.GetByID(sctx, asset.String())
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrHookNotInitialized
		}
		return nil, err
	}
	var hook types.HookConfig
	if err := repository.MapToObject(raw, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

func (tg *TransferGuard) saveHook(ctx context.Context, hook *types.HookConfig) error {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	if err := tg.hookRepo.Save(sctx, hook.Asset.String(), hook); err != nil {
		level.Error(global.Logger).Log("msg", "failed to commit hook counters", "asset", hook.Asset.String(), "err", err)
		return err
	}
	return nil
}
