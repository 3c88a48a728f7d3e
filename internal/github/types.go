package github

import (
	"strings"
	"time"
)

// User is a GitHub account reference.
type User struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url,omitempty"`
	HTMLURL   string `json:"html_url,omitempty"`
}

// Label is an issue label.
type Label struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// Issue is a GitHub issue as returned by the REST API.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	State     string    `json:"state"`
	Labels    []Label   `json:"labels,omitempty"`
	User      User      `json:"user"`
	Assignee  *User     `json:"assignee,omitempty"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Comments  int       `json:"comments"`

	// GitHub's issues endpoint conflates issues and pull requests; the
	// presence of this field marks an item as a PR.
	PullRequest map[string]any `json:"pull_request,omitempty"`
}

// IsPullRequest reports whether the item is actually a pull request.
func (i *Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// LabelNames returns just the label names.
func (i *Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// DisplayLabels returns labels as a comma-separated string.
func (i *Issue) DisplayLabels() string {
	return strings.Join(i.LabelNames(), ", ")
}

// Comment is a comment on an issue.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	User      User      `json:"user"`
	HTMLURL   string    `json:"html_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListOptions are the filters accepted when listing issues.
type ListOptions struct {
	Labels   string // comma-separated label names
	State    string // open, closed, or all
	Assignee string
	Page     int
	PerPage  int // max 100
}
