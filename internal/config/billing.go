package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingPolicy carries the business-policy knobs that operators tune
// without a redeploy: the consumption edit-lock window, the rounding
// mode applied to bill totals, and the reconciliation tolerance.
type BillingPolicy struct {
	LockDays             int    `mapstructure:"lockDays"`
	RoundingMode         string `mapstructure:"roundingMode"`
	ReconcileTolerance   int64  `mapstructure:"reconcileTolerance"`
	GenerateRetryBudget  int    `mapstructure:"generateRetryBudget"`
	CurrencyCode         string `mapstructure:"currencyCode"`
	SkipPaidInBatch      bool   `mapstructure:"skipPaidInBatch"`
	WaitOnContendedLocks bool   `mapstructure:"waitOnContendedLocks"`
}

const (
	RoundingHalfEven = "half_even"
	RoundingHalfUp   = "half_up"
)

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		LockDays:             7,
		RoundingMode:         RoundingHalfEven,
		ReconcileTolerance:   1,
		GenerateRetryBudget:  3,
		CurrencyCode:         "INR",
		SkipPaidInBatch:      true,
		WaitOnContendedLocks: true,
	}
}

type BillingPolicyHolder struct {
	current atomic.Value // holds BillingPolicy
}

func NewBillingPolicyHolder() (*BillingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/dairyos/config")
	v.AddConfigPath("/etc/dairyos")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DAIRYOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingPolicy()
	v.SetDefault("billing.lockDays", defaults.LockDays)
	v.SetDefault("billing.roundingMode", defaults.RoundingMode)
	v.SetDefault("billing.reconcileTolerance", defaults.ReconcileTolerance)
	v.SetDefault("billing.generateRetryBudget", defaults.GenerateRetryBudget)
	v.SetDefault("billing.currencyCode", defaults.CurrencyCode)
	v.SetDefault("billing.skipPaidInBatch", defaults.SkipPaidInBatch)
	v.SetDefault("billing.waitOnContendedLocks", defaults.WaitOnContendedLocks)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy BillingPolicy
	if err := v.UnmarshalKey("billing", &policy); err != nil {
		return nil, err
	}
	if err := validateBillingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingPolicy
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-policy] reload failed: %v", err)
			return
		}
		if err := validateBillingPolicy(updated); err != nil {
			log.Printf("[billing-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingPolicyHolder) Get() BillingPolicy {
	return h.current.Load().(BillingPolicy)
}

// NewStaticBillingPolicyHolder wraps a fixed policy, for tests and
// deployments that do not mount a policy file.
func NewStaticBillingPolicyHolder(policy BillingPolicy) *BillingPolicyHolder {
	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validateBillingPolicy(policy BillingPolicy) error {
	if policy.LockDays < 0 {
		return errors.New("billing.lockDays cannot be negative")
	}
	switch policy.RoundingMode {
	case RoundingHalfEven, RoundingHalfUp:
	default:
		return errors.New("billing.roundingMode must be half_even or half_up")
	}
	if policy.ReconcileTolerance < 0 {
		return errors.New("billing.reconcileTolerance cannot be negative")
	}
	if policy.GenerateRetryBudget <= 0 {
		return errors.New("billing.generateRetryBudget must be positive")
	}
	return nil
}
