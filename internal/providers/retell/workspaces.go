package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

// DefaultWorkspace names the workspace backed by RETELL_API_KEY.
const DefaultWorkspace = "default"

// Workspace is one Retell tenant.
type Workspace struct {
	ID     string
	Name   string
	APIKey string
}

// WorkspaceSource lists the additional active workspaces, typically from
// telco.retell_workspaces.
type WorkspaceSource interface {
	ActiveRetellWorkspaces(ctx context.Context) ([]Workspace, error)
}

// Workspaces returns the registry: the default key first, then every active
// workspace from the source with a distinct id and a non-empty key.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	seen := make(map[string]struct{})
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		out = append(out, Workspace{ID: DefaultWorkspace, Name: DefaultWorkspace, APIKey: key})
		seen[DefaultWorkspace] = struct{}{}
	}
	if c.source != nil {
		extra, err := c.source.ActiveRetellWorkspaces(ctx)
		if err != nil {
			return nil, err
		}
		for _, ws := range extra {
			id := strings.TrimSpace(ws.ID)
			if id == "" || strings.TrimSpace(ws.APIKey) == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ws.ID = id
			out = append(out, ws)
		}
	}
	if len(out) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, providers.Retell, "workspaces", "missing RETELL_API_KEY and no active workspaces", nil)
	}
	return out, nil
}

// orderedFor puts the workspace matching hint first.
func orderedFor(workspaces []Workspace, hint string) []Workspace {
	if hint == "" {
		return workspaces
	}
	out := make([]Workspace, 0, len(workspaces))
	for _, ws := range workspaces {
		if ws.ID == hint {
			out = append(out, ws)
		}
	}
	for _, ws := range workspaces {
		if ws.ID != hint {
			out = append(out, ws)
		}
	}
	return out
}

// tagWorkspace injects "workspace_id" into a raw JSON object, leaving every
// other byte of the payload untouched.
func tagWorkspace(raw json.RawMessage, workspaceID string) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) < 2 || trimmed[0] != '{' {
		return raw
	}
	var probe struct {
		WorkspaceID *string `json:"workspace_id"`
	}
	if err := json.Unmarshal(trimmed, &probe); err == nil && probe.WorkspaceID != nil {
		return raw
	}
	id, _ := json.Marshal(workspaceID)
	rest := bytes.TrimSpace(trimmed[1:])
	out := make([]byte, 0, len(trimmed)+len(id)+18)
	out = append(out, `{"workspace_id":`...)
	out = append(out, id...)
	if len(rest) > 0 && rest[0] != '}' {
		out = append(out, ',')
	}
	out = append(out, rest...)
	return out
}
