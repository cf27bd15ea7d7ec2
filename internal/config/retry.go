package config

import (
	"git.home.luguber.info/inful/confexport/internal/foundation/normalization"
	"git.home.luguber.info/inful/confexport/internal/retry"
)

var backoffNormalizer = normalization.NewNormalizer(map[string]retry.BackoffMode{
	"fixed":       retry.BackoffFixed,
	"linear":      retry.BackoffLinear,
	"exponential": retry.BackoffExponential,
}, retry.BackoffLinear)

// NormalizeRetryBackoff converts arbitrary user input into a typed backoff mode.
func NormalizeRetryBackoff(raw string) retry.BackoffMode {
	return backoffNormalizer.Normalize(raw)
}

// Policy converts raw retry settings into an immutable retry.Policy.
func (r RetryConfig) Policy() retry.Policy {
	maxRetries := r.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1 // let NewPolicy pick the default
	}
	return retry.NewPolicy(NormalizeRetryBackoff(r.Backoff), r.Initial.Std(), r.Max.Std(), maxRetries)
}
