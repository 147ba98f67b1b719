package pipeline

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"rosterflow/internal/domain/normalize"
	"rosterflow/internal/errs"
)

// SenderPolicy captures per-sender parsing conventions. The date order
// matters most: European senders write day-first and the pipeline must not
// guess.
type SenderPolicy struct {
	DateOrder string `toml:"date_order"`
}

// SenderPolicies is the full policy table keyed by sender id, with an
// optional default.
type SenderPolicies struct {
	Default SenderPolicy            `toml:"default"`
	Senders map[string]SenderPolicy `toml:"senders"`
}

func EmptySenderPolicies() *SenderPolicies {
	return &SenderPolicies{Senders: map[string]SenderPolicy{}}
}

// LoadSenderPolicies reads the policy table. A missing file is not an
// error: the defaults apply.
func LoadSenderPolicies(path string) (*SenderPolicies, error) {
	if path == "" {
		return EmptySenderPolicies(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return EmptySenderPolicies(), nil
		}
		return nil, errs.Wrap(err, "read sender policies")
	}

	policies := EmptySenderPolicies()
	if err := toml.Unmarshal(raw, policies); err != nil {
		return nil, errs.Wrap(err, "parse sender policies")
	}
	return policies, nil
}

// NormalizePolicy resolves the normalization policy for a sender.
// Month-first is the fallback bias for ambiguous dates.
func (p *SenderPolicies) NormalizePolicy(sender string) normalize.Policy {
	policy := p.Default
	if sp, ok := p.Senders[strings.TrimSpace(sender)]; ok {
		policy = sp
	}
	order := normalize.MonthFirst
	if strings.EqualFold(policy.DateOrder, string(normalize.DayFirst)) {
		order = normalize.DayFirst
	}
	return normalize.Policy{DateOrder: order}
}
