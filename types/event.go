package types

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventIdentityRegistered        EventKind = "IdentityRegistered"
	EventKeyRotated                EventKind = "KeyRotated"
	EventSignatureVerified         EventKind = "SignatureVerified"
	EventThresholdUpdated          EventKind = "ThresholdUpdated"
	EventFreezeToggled             EventKind = "FreezeToggled"
	EventHighValueTransferDetected EventKind = "HighValueTransferDetected"
	EventEnforcementModeUpdated    EventKind = "EnforcementModeUpdated"
)

// Event is an append-only notification of a state change or a transfer decision.
// Only the fields of its kind are set.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Slot      uint64    `json:"slot"`
	Timestamp int64     `json:"timestamp"`

	Authority string `json:"authority,omitempty"` // identity owner or hook authority
	Asset     string `json:"asset,omitempty"`
	Sender    string `json:"sender,omitempty"`

	KeySize      uint16 `json:"keySize,omitempty"`
	Threshold    uint64 `json:"threshold,omitempty"`
	OldVersion   uint16 `json:"oldVersion,omitempty"`
	NewVersion   uint16 `json:"newVersion,omitempty"`
	NewKeySize   uint16 `json:"newKeySize,omitempty"`
	MessageHash  string `json:"messageHash,omitempty"`
	OldThreshold uint64 `json:"oldThreshold,omitempty"`
	NewThreshold uint64 `json:"newThreshold,omitempty"`
	IsFrozen     *bool  `json:"isFrozen,omitempty"`
	Amount       uint64 `json:"amount,omitempty"`
	Mode         string `json:"mode,omitempty"`
	OldMode      string `json:"oldMode,omitempty"`
	NewMode      string `json:"newMode,omitempty"`
	UpdatedBy    string `json:"updatedBy,omitempty"`
}

func newEvent(kind EventKind, slot uint64, at time.Time) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Slot:      slot,
		Timestamp: at.UTC().UnixMilli(),
	}
}

func NewIdentityRegisteredEvent(identity *QuantumIdentity, slot uint64, at time.Time) *Event {
	e := newEvent(EventIdentityRegistered, slot, at)
	e.Authority = identity.Owner.String()
	e.KeySize = uint16(len(identity.PQCPublicKey))
	e.Threshold = identity.ThresholdAmount
	return e
}

func NewKeyRotatedEvent(identity *QuantumIdentity, oldVersion uint16, slot uint64, at time.Time) *Event {
	e := newEvent(EventKeyRotated, slot, at)
	e.Authority = identity.Owner.String()
	e.OldVersion = oldVersion
	e.NewVersion = identity.KeyVersion
	e.NewKeySize = uint16(len(identity.PQCPublicKey))
	return e
}

func NewSignatureVerifiedEvent(owner PublicKey, messageHash [32]byte, slot uint64, at time.Time) *Event {
	e := newEvent(EventSignatureVerified, slot, at)
	e.Authority = owner.String()
	e.MessageHash = hex.EncodeToString(messageHash[:])
	return e
}

func NewThresholdUpdatedEvent(owner PublicKey, oldThreshold, newThreshold uint64, slot uint64, at time.Time) *Event {
	e := newEvent(EventThresholdUpdated, slot, at)
	e.Authority = owner.String()
	e.OldThreshold = oldThreshold
	e.NewThreshold = newThreshold
	return e
}

func NewFreezeToggledEvent(owner PublicKey, isFrozen bool, slot uint64, at time.Time) *Event {
	e := newEvent(EventFreezeToggled, slot, at)
	e.Authority = owner.String()
	e.IsFrozen = &isFrozen
	return e
}

func NewHighValueTransferDetectedEvent(asset, sender PublicKey, amount, threshold uint64, mode EnforcementMode, slot uint64, at time.Time) *Event {
	e := newEvent(EventHighValueTransferDetected, slot, at)
	e.Asset = asset.String()
	e.Sender = sender.String()
	e.Amount = amount
	e.Threshold = threshold
	e.Mode = mode.String()
	return e
}

func NewEnforcementModeUpdatedEvent(asset, updatedBy PublicKey, oldMode, newMode EnforcementMode, slot uint64, at time.Time) *Event {
	e := newEvent(EventEnforcementModeUpdated, slot, at)
	e.Asset = asset.String()
	e.OldMode = oldMode.String()
	e.NewMode = newMode.String()
	e.UpdatedBy = updatedBy.String()
	return e
}
