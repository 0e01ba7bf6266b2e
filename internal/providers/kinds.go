package providers

import (
	"fmt"
	"strings"
)

// Kind names a resource a provider can be synchronised for.
type Kind string

const (
	KindCalls             Kind = "calls"
	KindMessages          Kind = "messages"
	KindRecordings        Kind = "recordings"
	KindNumbers           Kind = "numbers"
	KindSIPAccounts       Kind = "sip_accounts"
	KindFQDNConnections   Kind = "fqdn_connections"
	KindOutboundProfiles  Kind = "outbound_profiles"
	KindMessagingProfiles Kind = "messaging_profiles"
	KindSIPCredentials    Kind = "sip_credentials"
	KindNumberOrders      Kind = "number_orders"
	KindPortingOrders     Kind = "porting_orders"
	KindCallerIDs         Kind = "caller_ids"
	KindBalance           Kind = "balance"
	KindAgents            Kind = "agents"
	KindKnowledgeBases    Kind = "knowledge_bases"
	KindLLMConfigs        Kind = "llm_configs"
	KindVoiceConfigs      Kind = "voice_configs"
	KindConcurrency       Kind = "concurrency"
)

var allKinds = []Kind{
	KindCalls,
	KindMessages,
	KindRecordings,
	KindNumbers,
	KindSIPAccounts,
	KindFQDNConnections,
	KindOutboundProfiles,
	KindMessagingProfiles,
	KindSIPCredentials,
	KindNumberOrders,
	KindPortingOrders,
	KindCallerIDs,
	KindBalance,
	KindAgents,
	KindKnowledgeBases,
	KindLLMConfigs,
	KindVoiceConfigs,
	KindConcurrency,
}

// AllKinds returns every known resource kind in sync order.
func AllKinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// ParseKind validates a resource kind name.
func ParseKind(value string) (Kind, error) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, k := range allKinds {
		if k == normalized {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown resource %q", value)
}

// IsTimeSeries reports whether the kind is synchronised by time window.
func (k Kind) IsTimeSeries() bool {
	switch k {
	case KindCalls, KindMessages, KindRecordings:
		return true
	default:
		return false
	}
}

// Provider names.
const (
	Zadarma = "zadarma"
	Telnyx  = "telnyx"
	Retell  = "retell"
)

// Names lists the supported providers in sync order.
func Names() []string {
	return []string{Zadarma, Telnyx, Retell}
}

// ParseName validates a provider name.
func ParseName(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, name := range Names() {
		if name == normalized {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (want zadarma, telnyx or retell)", value)
}
