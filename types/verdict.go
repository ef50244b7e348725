package types

import (
	"encoding/binary"
	"encoding/json"
)

type Decision string

const (
	Allow Decision = "ALLOW"
	Block Decision = "BLOCK"
)

// Verdict is the outcome of a transfer check. The transfer pipeline must abort on Block.
type Verdict struct {
	Decision        Decision        `json:"verdict"`
	Reason          error           `json:"-"`
	Asset           PublicKey       `json:"asset"`
	Sender          PublicKey       `json:"sender"`
	Amount          uint64          `json:"amount"`
	Threshold       uint64          `json:"threshold,omitempty"`
	HighValue       bool            `json:"highValue"`
	IdentityFound   bool            `json:"identityFound"`
	EnforcementMode EnforcementMode `json:"enforcementMode"`
	SignatureValid  bool            `json:"signatureValid,omitempty"`
}

func (v *Verdict) Allowed() bool {
	return v.Decision == Allow
}

func (v *Verdict) MarshalJSON() ([]byte, error) {
	type alias Verdict
	return json.Marshal(struct {
		*alias
		Error string `json:"error,omitempty"`
	}{
		alias: (*alias)(v),
		Error: ErrorKind(v.Reason),
	})
}

// TransferAuthorizationMessage is the canonical message an owner signs with the PQC key
// to authorize one hard enforced transfer. It binds the asset, amount and current key state.
func TransferAuthorizationMessage(asset, sender PublicKey, amount uint64, keyVersion uint16, sequence uint64) []byte {
	const prefix = "quresis:transfer:v1"
	msg := make([]byte, 0, len(prefix)+2*PublicKeySize+8+2+8)
	msg = append(msg, prefix...)
	msg = append(msg, asset[:]...)
	msg = append(msg, sender[:]...)
	msg = binary.LittleEndian.AppendUint64(msg, amount)
	msg = binary.LittleEndian.AppendUint16(msg, keyVersion)
	msg = binary.LittleEndian.AppendUint64(msg, sequence)
	return msg
}
