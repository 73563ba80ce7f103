package credstore

// AgentRecord holds the stored identity of a single Moltbook agent.
type AgentRecord struct {
	APIKey           string `json:"api_key"`
	AgentName        string `json:"agent_name"`
	ClaimURL         string `json:"claim_url,omitempty"`
	VerificationCode string `json:"verification_code,omitempty"`
}

// State is the durable credential document: every known agent plus the
// key of the currently active one. ActiveKey is nil when no agent is
// selected.
type State struct {
	ActiveKey *string       `json:"active_key"`
	Agents    []AgentRecord `json:"agents"`
}

// EmptyState returns a state with no agents and no active selection.
func EmptyState() State {
	return State{Agents: []AgentRecord{}}
}

// Has reports whether an agent with the given API key is stored.
func (s State) Has(key string) bool {
	for _, agent := range s.Agents {
		if agent.APIKey == key {
			return true
		}
	}
	return false
}

// Active returns the record for the active key. The boolean is false
// when no agent is active or the active key no longer resolves to a
// stored record.
func (s State) Active() (AgentRecord, bool) {
	if s.ActiveKey == nil {
		return AgentRecord{}, false
	}
	for _, agent := range s.Agents {
		if agent.APIKey == *s.ActiveKey {
			return agent, true
		}
	}
	return AgentRecord{}, false
}

// ActiveKeyValue returns the active API key, or "" when none is set.
func (s State) ActiveKeyValue() string {
	if s.ActiveKey == nil {
		return ""
	}
	return *s.ActiveKey
}
