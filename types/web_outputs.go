package types

type OutputSignatureVerification struct {
	Owner string `json:"owner"`
	Valid bool   `json:"valid"`
}

type OutputIdentityClosed struct {
	Owner  string `json:"owner"`
	Closed bool   `json:"closed"`
}

type OutputHookStatistics struct {
	Asset                      string `json:"asset"`
	EnforcementMode            string `json:"enforcementMode"`
	TotalTransfersChecked      uint64 `json:"totalTransfersChecked"`
	HighValueTransfersDetected uint64 `json:"highValueTransfersDetected"`
}

func NewOutputHookStatistics(hook *HookConfig) *OutputHookStatistics {
	return &OutputHookStatistics{
		Asset:                      hook.Asset.String(),
		EnforcementMode:            hook.EnforcementMode.String(),
		TotalTransfersChecked:      hook.TotalTransfersChecked,
		HighValueTransfersDetected: hook.HighValueTransfersDetected,
	}
}
