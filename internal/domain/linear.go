package domain

type LinearStatus struct {
	Connected    bool   `json:"connected"`
	Organization string `json:"organization,omitempty"`
	UserName     string `json:"userName,omitempty"`
}

type LinearTeam struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type LinearProject struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"teamId,omitempty"`
}

type LinearUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LinearLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type LinearPreference struct {
	TeamID    string `json:"teamId,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

type LinearMetadata struct {
	Teams      []LinearTeam      `json:"teams"`
	Projects   []LinearProject   `json:"projects"`
	Users      []LinearUser      `json:"users"`
	Labels     []LinearLabel     `json:"labels"`
	Preference *LinearPreference `json:"preference,omitempty"`
}

type LinearIssueInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	TeamID      string   `json:"teamId"`
	ProjectID   string   `json:"projectId,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	LabelIDs    []string `json:"labelIds,omitempty"`
	AssigneeID  string   `json:"assigneeId,omitempty"`
	PageURL     string   `json:"pageUrl,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
}

type LinearIssue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
}
