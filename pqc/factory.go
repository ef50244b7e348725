package pqc

import "fmt"

const (
	OracleMLDSA       = "mldsa"
	OraclePlaceholder = "placeholder"
	OracleAlwaysValid = "always"
)

// NewOracle builds the oracle named in configuration
func NewOracle(name string, cacheSize int) (SignatureOracle, error) {
	switch name {
	case "", OracleMLDSA:
		return NewMLDSAOracle(cacheSize)
	case OraclePlaceholder:
		return Placeholder{}, nil
	case OracleAlwaysValid:
		return AlwaysValid{}, nil
	}
	return nil, fmt.Errorf("unknown signature oracle %q", name)
}
