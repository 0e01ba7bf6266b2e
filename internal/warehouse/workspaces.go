package warehouse

import (
	"context"
	"fmt"

	"telcosync/internal/providers/retell"
)

// ActiveRetellWorkspaces lists the active rows of telco.retell_workspaces.
func (s *Store) ActiveRetellWorkspaces(ctx context.Context) ([]retell.Workspace, error) {
	rows, err := s.db.Query(ctx, `
        SELECT workspace_id, COALESCE(name, ''), api_key
        FROM telco.retell_workspaces
        WHERE is_active
        ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query retell workspaces: %w", err)
	}
	defer rows.Close()

	var out []retell.Workspace
	for rows.Next() {
		var ws retell.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.APIKey); err != nil {
			return nil, fmt.Errorf("scan retell workspace: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}
