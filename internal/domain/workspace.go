package domain

type WorkspaceID string

type WorkspaceStatus string

const (
	WorkspaceStatusActive  WorkspaceStatus = "active"
	WorkspaceStatusPending WorkspaceStatus = "pending"
)

type Workspace struct {
	ID     WorkspaceID     `json:"id"`
	Name   string          `json:"name"`
	Status WorkspaceStatus `json:"status"`
	Role   string          `json:"role,omitempty"`
}

type Profile struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	Name       string      `json:"name,omitempty"`
	Workspaces []Workspace `json:"workspaces"`
}

// ActiveWorkspaces keeps profile order and only exact "active" statuses.
func (p Profile) ActiveWorkspaces() []Workspace {
	active := make([]Workspace, 0, len(p.Workspaces))
	for _, workspace := range p.Workspaces {
		if workspace.Status == WorkspaceStatusActive {
			active = append(active, workspace)
		}
	}
	return active
}
