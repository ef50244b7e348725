package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"github.com/quresis/go-quresis-server/eventlog"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/locker"
	"github.com/quresis/go-quresis-server/metrics"
	"github.com/quresis/go-quresis-server/pqc"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
)

// IdentityService manages the QuantumIdentity lifecycle. Every mutation runs under the
// owner's record lock and commits with a revision compare-and-swap.
type IdentityService struct {
	identityRepo repository.Repository
	oracle       pqc.SignatureOracle
	locker       locker.Locker
	events       eventlog.Sink
	clock        util.Clock
	opts         GuardOptions
}

// RotateKeyRequest carries a key rotation. ExpectedKeyVersion 0 skips the version check.
type RotateKeyRequest struct {
	NewPQCPublicKey    []byte
	OldKeySignature    []byte
	SignedMessage      []byte
	ExpectedKeyVersion uint16
}

func NewIdentityService(deps *Dependencies) *IdentityService {
	identityRepo, err := deps.DBSelector.ChooseDB(repository.Identity)
	if err != nil {
		panic(err)
	}
	return &IdentityService{
		identityRepo: identityRepo,
		oracle:       deps.Oracle,
		locker:       deps.Locker,
		events:       deps.Events,
		clock:        deps.Clock,
		opts:         deps.Options,
	}
}

// Register creates the identity of owner. Threshold nil selects the default threshold.
func (is *IdentityService) Register(ctx context.Context, owner types.PublicKey, pqcPublicKey []byte, threshold *uint64) (identity *types.QuantumIdentity, err error) {
	defer func() { observeIdentityOperation("register", err) }()

	if !types.IsValidPQCKeyLength(len(pqcPublicKey)) {
		return nil, types.ErrInvalidKeyLength
	}
	resolved := is.opts.DefaultThreshold
	if threshold != nil {
		resolved = *threshold
	}
	if err := is.validateThreshold(resolved); err != nil {
		return nil, err
	}

	unlock, err := lockRecord(ctx, is.locker, identityLockKey(owner), is.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	identity = &types.QuantumIdentity{
		Owner:           owner,
		Bump:            types.DefaultBump,
		Sequence:        0,
		LastActiveSlot:  is.clock.Slot(),
		CreatedAt:       is.clock.Now().Unix(),
		IsFrozen:        false,
		ThresholdAmount: resolved,
		KeyVersion:      1,
	}
	identity.SetPQCPublicKey(pqcPublicKey)

	doc := &types.IdentityDocument{Owner: owner.String()}
	if err := is.save(ctx, doc, identity); err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, types.ErrIdentityExists
		}
		return nil, err
	}

	emitEvent(ctx, is.events, types.NewIdentityRegisteredEvent(identity, identity.LastActiveSlot, is.clock.Now()))
	return identity, nil
}

// Rotate replaces the PQC key. The signature must verify under the CURRENT key.
func (is *IdentityService) Rotate(ctx context.Context, owner types.PublicKey, req *RotateKeyRequest) (identity *types.QuantumIdentity, err error) {
	defer func() { observeIdentityOperation("rotate", err) }()

	if !types.IsValidPQCKeyLength(len(req.NewPQCPublicKey)) {
		return nil, types.ErrInvalidKeyLength
	}

	unlock, err := lockRecord(ctx, is.locker, identityLockKey(owner), is.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, identity, err := is.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if identity.IsFrozen {
		return nil, types.ErrIdentityFrozen
	}
	if len(req.SignedMessage) > is.opts.MaxMessageSize {
		return nil, types.ErrMessageTooLarge
	}
	if req.ExpectedKeyVersion != 0 && req.ExpectedKeyVersion != identity.KeyVersion {
		return nil, types.ErrSequenceMismatch
	}
	if !is.verify(identity.PQCPublicKey, req.SignedMessage, req.OldKeySignature) {
		return nil, types.ErrInvalidQuantumSignature
	}

	oldVersion := identity.KeyVersion
	identity.SetPQCPublicKey(req.NewPQCPublicKey)
	identity.KeyVersion = types.SaturatingIncU16(identity.KeyVersion)
	identity.Sequence = types.SaturatingIncU64(identity.Sequence)
	identity.LastActiveSlot = is.clock.Slot()

	if err := is.save(ctx, doc, identity); err != nil {
		return nil, err
	}

	emitEvent(ctx, is.events, types.NewKeyRotatedEvent(identity, oldVersion, identity.LastActiveSlot, is.clock.Now()))
	return identity, nil
}

// VerifySignature checks a signature against the owner's current PQC key. Read only.
func (is *IdentityService) VerifySignature(ctx context.Context, owner types.PublicKey, message, signature []byte) (valid bool, err error) {
	defer func() { observeIdentityOperation("verify", err) }()

	if len(message) > is.opts.MaxMessageSize {
		return false, types.ErrMessageTooLarge
	}
	_, identity, err := is.load(ctx, owner)
	if err != nil {
		return false, err
	}
	if identity.IsFrozen {
		return false, types.ErrIdentityFrozen
	}
	valid = is.verify(identity.PQCPublicKey, message, signature)
	if valid {
		emitEvent(ctx, is.events, types.NewSignatureVerifiedEvent(owner, util.MessageHash(message), is.clock.Slot(), is.clock.Now()))
	}
	return valid, nil
}

// ConsumeTransferAuthorization verifies a signature over TransferAuthorizationMessage for
// the sender's current key version and sequence. A valid authorization is spent by
// advancing the sequence, so the same signature never authorizes a second transfer.
// A missing, unreadable or frozen identity authorizes nothing.
func (is *IdentityService) ConsumeTransferAuthorization(ctx context.Context, asset, sender types.PublicKey, amount uint64, signature []byte) (authorized bool, err error) {
	defer func() { observeIdentityOperation("authorize_transfer", err) }()

	unlock, err := lockRecord(ctx, is.locker, identityLockKey(sender), is.opts.LockTimeout)
	if err != nil {
		return false, err
	}
	defer unlock()

	doc, identity, err := is.load(ctx, sender)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidIdentityData) {
			return false, nil
		}
		return false, err
	}
	if identity.IsFrozen {
		return false, nil
	}
	message := types.TransferAuthorizationMessage(asset, sender, amount, identity.KeyVersion, identity.Sequence)
	if !is.verify(identity.PQCPublicKey, message, signature) {
		return false, nil
	}

	identity.Sequence = types.SaturatingIncU64(identity.Sequence)
	identity.LastActiveSlot = is.clock.Slot()
	if err := is.save(ctx, doc, identity); err != nil {
		return false, err
	}

	emitEvent(ctx, is.events, types.NewSignatureVerifiedEvent(sender, util.MessageHash(message), identity.LastActiveSlot, is.clock.Now()))
	return true, nil
}

func (is *IdentityService) UpdateThreshold(ctx context.Context, owner types.PublicKey, threshold uint64) (identity *types.QuantumIdentity, err error) {
	defer func() { observeIdentityOperation("update_threshold", err) }()

	if err := is.validateThreshold(threshold); err != nil {
		return nil, err
	}

	unlock, err := lockRecord(ctx, is.locker, identityLockKey(owner), is.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, identity, err := is.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	oldThreshold := identity.ThresholdAmount
	identity.ThresholdAmount = threshold
	identity.LastActiveSlot = is.clock.Slot()

	if err := is.save(ctx, doc, identity); err != nil {
		return nil, err
	}

	emitEvent(ctx, is.events, types.NewThresholdUpdatedEvent(owner, oldThreshold, threshold, identity.LastActiveSlot, is.clock.Now()))
	return identity, nil
}

// ToggleFreeze flips the frozen flag, frozen or not
func (is *IdentityService) ToggleFreeze(ctx context.Context, owner types.PublicKey) (identity *types.QuantumIdentity, err error) {
	defer func() { observeIdentityOperation("toggle_freeze", err) }()

	unlock, err := lockRecord(ctx, is.locker, identityLockKey(owner), is.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, identity, err := is.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	identity.IsFrozen = !identity.IsFrozen
	identity.LastActiveSlot = is.clock.Slot()

	if err := is.save(ctx, doc, identity); err != nil {
		return nil, err
	}

	emitEvent(ctx, is.events, types.NewFreezeToggledEvent(owner, identity.IsFrozen, identity.LastActiveSlot, is.clock.Now()))
	return identity, nil
}

// Close removes the identity. No check is made whether the identity is still in use.
func (is *IdentityService) Close(ctx context.Context, owner types.PublicKey) (err error) {
	defer func() { observeIdentityOperation("close", err) }()

	unlock, err := lockRecord(ctx, is.locker, identityLockKey(owner), is.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	return is.identityRepo.Delete(sctx, owner.String())
}

// Get returns the last committed state of the identity
func (is *IdentityService) Get(ctx context.Context, owner types.PublicKey) (*types.QuantumIdentity, error) {
	_, identity, err := is.load(ctx, owner)
	return identity, err
}

func (is *IdentityService) validateThreshold(threshold uint64) error {
	if threshold < is.opts.MinThreshold || threshold > is.opts.MaxThreshold {
		return types.ErrInvalidThreshold
	}
	return nil
}

func (is *IdentityService) verify(publicKey, message, signature []byte) bool {
	start := time.Now()
	defer func() {
		metrics.SignatureVerificationLatency.Observe(float64(time.Since(start).Microseconds()) / 1000)
	}()
	return is.oracle.Verify(publicKey, message, signature)
}

// load reads and fully decodes the identity record of owner
func (is *IdentityService) load(ctx context.Context, owner types.PublicKey) (*types.IdentityDocument, *types.QuantumIdentity, error) {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	raw, err := is.identityRepo.GetByID(sctx, owner.String())
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			level.Error(global.Logger).Log("msg", "failed to load identity", "owner", owner.String(), "err", err)
		}
		return nil, nil, err
	}
	var doc types.IdentityDocument
	if err := repository.MapToObject(raw, &doc); err != nil {
		level.Error(global.Logger).Log("msg", "failed to map identity document", "owner", owner.String(), "err", err)
		return nil, nil, types.ErrInvalidIdentityData
	}
	var identity types.QuantumIdentity
	if err := identity.UnmarshalBinary(doc.Record); err != nil {
		return nil, nil, err
	}
	if identity.Owner != owner {
		return nil, nil, fmt.Errorf("%w: record owner does not match document id", types.ErrInvalidIdentityData)
	}
	return &doc, &identity, nil
}

// save encodes the record and writes it over the revision it was read at
func (is *IdentityService) save(ctx context.Context, doc *types.IdentityDocument, identity *types.QuantumIdentity) error {
	record, err := identity.MarshalBinary()
	if err != nil {
		return err
	}
	doc.Record = record
	doc.Owner = identity.Owner.String()

	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	if err := is.identityRepo.Save(sctx, doc.Owner, doc); err != nil {
		if !errors.Is(err, types.ErrConflict) {
			level.Error(global.Logger).Log("msg", "failed to save identity", "owner", doc.Owner, "err", err)
		}
		return err
	}
	return nil
}
