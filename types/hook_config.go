package types

import (
	"encoding/json"
	"fmt"
)

// EnforcementMode governs the consequence of a detected high value transfer
type EnforcementMode uint8

const (
	// Disabled allows all transfers
	Disabled EnforcementMode = iota
	// SoftEnforce allows high value transfers but records them
	SoftEnforce
	// HardEnforce blocks high value transfers that carry no quantum signature
	HardEnforce
)

var enforcementModeNames = map[EnforcementMode]string{
	Disabled:    "Disabled",
	SoftEnforce: "SoftEnforce",
	HardEnforce: "HardEnforce",
}

func (m EnforcementMode) String() string {
	if name, ok := enforcementModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("EnforcementMode(%d)", uint8(m))
}

func (m EnforcementMode) IsValid() bool {
	_, ok := enforcementModeNames[m]
	return ok
}

// ParseEnforcementMode accepts the mode name
func ParseEnforcementMode(s string) (EnforcementMode, error) {
	for mode, name := range enforcementModeNames {
		if name == s {
			return mode, nil
		}
	}
	return 0, ErrInvalidEnforcementMode
}

func (m EnforcementMode) MarshalJSON() ([]byte, error) {
	if !m.IsValid() {
		return nil, ErrInvalidEnforcementMode
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both the mode name and its numeric value
func (m *EnforcementMode) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, pErr := ParseEnforcementMode(name)
		if pErr != nil {
			return pErr
		}
		*m = parsed
		return nil
	}
	var n uint8
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrInvalidEnforcementMode
	}
	if !EnforcementMode(n).IsValid() {
		return ErrInvalidEnforcementMode
	}
	*m = EnforcementMode(n)
	return nil
}

// HookConfig is the per asset transfer policy with its check counters
type HookConfig struct {
	BaseDocument               `json:",inline"`
	Asset                      PublicKey       `json:"asset"`
	Authority                  PublicKey       `json:"authority"`
	EnforcementMode            EnforcementMode `json:"enforcementMode"`
	TotalTransfersChecked      uint64          `json:"totalTransfersChecked"`
	HighValueTransfersDetected uint64          `json:"highValueTransfersDetected"`
	Bump                       uint8           `json:"bump"`
	CreatedAt                  int64           `json:"createdAt"`
}
