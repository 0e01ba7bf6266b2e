package warehouse

import (
	"context"
	"encoding/json"
	"fmt"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

var resourceTables = map[providers.Kind]string{
	providers.KindSIPAccounts:       "telco.sip_accounts",
	providers.KindFQDNConnections:   "telco.fqdn_connections",
	providers.KindOutboundProfiles:  "telco.outbound_profiles",
	providers.KindMessagingProfiles: "telco.messaging_profiles",
	providers.KindSIPCredentials:    "telco.sip_credentials",
	providers.KindNumberOrders:      "telco.number_orders",
	providers.KindPortingOrders:     "telco.porting_orders",
	providers.KindCallerIDs:         "telco.caller_ids",
	providers.KindAgents:            "telco.retell_agents",
	providers.KindKnowledgeBases:    "telco.knowledge_bases",
	providers.KindLLMConfigs:        "telco.llm_configs",
	providers.KindVoiceConfigs:      "telco.voice_configs",
}

var resourceUpserts = buildResourceUpserts()

func buildResourceUpserts() map[providers.Kind]string {
	out := make(map[providers.Kind]string, len(resourceTables)+1)
	for kind, table := range resourceTables {
		out[kind] = upsertSpec{
			table:    table,
			conflict: []string{"provider_id", "external_id"},
			columns: []column{
				{"name", mergeNonEmpty},
				{"phone_number", mergeNonEmpty},
				{"status", mergeNonEmpty},
				{"workspace_id", mergeNonEmpty},
				{"raw_data", mergeCoalesce},
				{"source_updated_at", mergeCoalesce},
			},
		}.sql()
	}
	// Numbers are keyed by the number itself; the provider id is kept alongside.
	out[providers.KindNumbers] = upsertSpec{
		table:    "telco.phone_numbers",
		conflict: []string{"provider_id", "phone_number"},
		columns: []column{
			{"name", mergeNonEmpty},
			{"external_id", mergeNonEmpty},
			{"status", mergeNonEmpty},
			{"workspace_id", mergeNonEmpty},
			{"raw_data", mergeCoalesce},
			{"source_updated_at", mergeCoalesce},
		},
	}.sql()
	return out
}

// UpsertResource merges a routing, account or configuration object into the
// table for its kind.
func (s *Store) UpsertResource(ctx context.Context, providerID int32, res providers.Resource) (Outcome, error) {
	sql, ok := resourceUpserts[res.Kind]
	if !ok {
		return OutcomeUnchanged, services.Wrap(services.ErrUnsupported, "warehouse", "upsert resource", string(res.Kind), nil)
	}
	var args []any
	if res.Kind == providers.KindNumbers {
		number := res.PhoneNumber
		if number == "" {
			number = res.ExternalID
		}
		args = []any{providerID, number, nullableString(res.Name), nullableString(res.ExternalID)}
	} else {
		args = []any{providerID, res.ExternalID, nullableString(res.Name), nullableString(res.PhoneNumber)}
	}
	args = append(args,
		nullableString(res.Status),
		nullableString(res.WorkspaceID),
		nullableJSON(res.Raw),
		nullableTime(res.UpdatedAt),
	)
	outcome, err := s.runUpsert(ctx, sql, args...)
	if err != nil {
		return outcome, fmt.Errorf("upsert %s %s: %w", res.Kind, res.ExternalID, err)
	}
	return outcome, nil
}

// InsertBalance appends a balance snapshot.
func (s *Store) InsertBalance(ctx context.Context, providerID int32, balance providers.Balance) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO telco.balance_snapshots (provider_id, amount, currency, raw_data)
        VALUES ($1, $2, $3, $4)`,
		providerID, balance.Amount, nullableString(balance.Currency), nullableJSON(balance.Raw))
	if err != nil {
		return fmt.Errorf("insert balance snapshot: %w", err)
	}
	return nil
}

// InsertConcurrency appends a concurrency sample taken from a Retell
// get-concurrency payload.
func (s *Store) InsertConcurrency(ctx context.Context, providerID int32, res providers.Resource) error {
	var sample struct {
		Current *int32 `json:"current_concurrency"`
		Limit   *int32 `json:"concurrency_limit"`
	}
	if len(res.Raw) > 0 {
		if err := json.Unmarshal(res.Raw, &sample); err != nil {
			return services.Wrap(services.ErrData, "warehouse", "concurrency", "decode sample", err)
		}
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO telco.concurrency_stats (provider_id, workspace_id, current_concurrency, concurrency_limit, raw_data)
        VALUES ($1, $2, $3, $4, $5)`,
		providerID, nullableString(res.WorkspaceID), sample.Current, sample.Limit, nullableJSON(res.Raw))
	if err != nil {
		return fmt.Errorf("insert concurrency sample: %w", err)
	}
	return nil
}
