package services

import (
	"fmt"
	"time"

	"github.com/quresis/go-quresis-server/eventlog"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/locker"
	"github.com/quresis/go-quresis-server/pqc"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
)

// MalformedRecordPolicy decides the verdict for an identity record too short to inspect
type MalformedRecordPolicy string

const (
	MalformedRecordAllow  MalformedRecordPolicy = "allow"
	MalformedRecordReject MalformedRecordPolicy = "reject"
)

type GuardOptions struct {
	DefaultThreshold  uint64
	MinThreshold      uint64
	MaxThreshold      uint64
	MaxMessageSize    int
	OnMalformedRecord MalformedRecordPolicy
	LockTimeout       time.Duration
}

func DefaultGuardOptions() GuardOptions {
	return GuardOptions{
		DefaultThreshold:  types.DefaultThreshold,
		MinThreshold:      types.MinThreshold,
		MaxThreshold:      types.MaxThreshold,
		MaxMessageSize:    types.DefaultMaxMessageSize,
		OnMalformedRecord: MalformedRecordAllow,
		LockTimeout:       5 * time.Second,
	}
}

// GuardOptionsFromConfig overlays the configured values on the defaults
func GuardOptionsFromConfig(conf global.QuresisConfig) (GuardOptions, error) {
	opts := DefaultGuardOptions()
	if conf.DefaultThreshold > 0 {
		opts.DefaultThreshold = conf.DefaultThreshold
	}
	if conf.MinThreshold > 0 {
		opts.MinThreshold = conf.MinThreshold
	}
	if conf.MaxThreshold > 0 {
		opts.MaxThreshold = conf.MaxThreshold
	}
	if conf.MaxMessageSize > 0 {
		opts.MaxMessageSize = conf.MaxMessageSize
	}
	if conf.LockTimeoutMs > 0 {
		opts.LockTimeout = time.Duration(conf.LockTimeoutMs) * time.Millisecond
	}
	switch MalformedRecordPolicy(conf.OnMalformedRecord) {
	case "", MalformedRecordAllow:
		opts.OnMalformedRecord = MalformedRecordAllow
	case MalformedRecordReject:
		opts.OnMalformedRecord = MalformedRecordReject
	default:
		return opts, fmt.Errorf("unknown onMalformedRecord policy %q", conf.OnMalformedRecord)
	}
	if opts.MinThreshold > opts.MaxThreshold {
		return opts, fmt.Errorf("minThreshold %d above maxThreshold %d", opts.MinThreshold, opts.MaxThreshold)
	}
	if opts.DefaultThreshold < opts.MinThreshold || opts.DefaultThreshold > opts.MaxThreshold {
		return opts, fmt.Errorf("defaultThreshold %d outside [%d, %d]", opts.DefaultThreshold, opts.MinThreshold, opts.MaxThreshold)
	}
	return opts, nil
}

// Dependencies are the collaborators shared by the guard services
type Dependencies struct {
	DBSelector repository.DBSelector
	Oracle     pqc.SignatureOracle
	Locker     locker.Locker
	Events     eventlog.Sink
	Clock      util.Clock
	Options    GuardOptions
}
