package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/devtriage/issuepilot/internal/domain"
	"github.com/devtriage/issuepilot/internal/github"
	"github.com/devtriage/issuepilot/internal/orchestrator"
)

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	item       lipgloss.Style
	detail     lipgloss.Style
	meta       lipgloss.Style
	empty      lipgloss.Style
	section    lipgloss.Style
	ok         lipgloss.Style
	warn       lipgloss.Style
	bad        lipgloss.Style
	riskLow    lipgloss.Style
	riskMedium lipgloss.Style
	riskHigh   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		item:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		meta:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		empty:      lipgloss.NewStyle().Faint(true),
		section:    lipgloss.NewStyle().MarginTop(1),
		ok:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warn:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		bad:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		riskLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		riskMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		riskHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

func (s styles) risk(level string) string {
	switch domain.RiskLevel(level) {
	case domain.RiskLow:
		return s.riskLow.Render(level)
	case domain.RiskMedium:
		return s.riskMedium.Render(level)
	case domain.RiskHigh:
		return s.riskHigh.Render(level)
	default:
		return s.meta.Render(level)
	}
}

func (s styles) sessionStatus(status string) string {
	switch strings.ToLower(status) {
	case "done", "finished", "completed", "succeeded", "idle":
		return s.ok.Render(status)
	case "error", "failed":
		return s.bad.Render(status)
	case "blocked":
		return s.warn.Render(status)
	default:
		return s.meta.Render(status)
	}
}

func renderIssueList(owner, repo string, issues []github.Issue, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Issues in %s/%s", owner, repo)),
		s.header.Render(fmt.Sprintf("open issues: %d", len(issues))),
	}

	if len(issues) == 0 {
		lines = append(lines, s.empty.Render("No matching issues."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, issue := range issues {
		entry := []string{
			s.item.Render(fmt.Sprintf("#%d %s", issue.Number, issue.Title)),
		}
		meta := []string{issue.State}
		if labels := issue.DisplayLabels(); labels != "" {
			meta = append(meta, labels)
		}
		if issue.User.Login != "" {
			meta = append(meta, "by "+issue.User.Login)
		}
		entry = append(entry, s.meta.Render(strings.Join(meta, "  ")))
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, entry...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderScopeResponse(resp *orchestrator.ScopeResponse, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Scope %s/%s#%d", resp.Owner, resp.Repo, resp.Number)),
		s.meta.Render("session: " + resp.SessionID),
	}
	if resp.SessionURL != "" {
		lines = append(lines, s.meta.Render("url: "+resp.SessionURL))
	}

	if resp.Status == orchestrator.StatusSessionCreated {
		lines = append(lines, s.warn.Render("session created, not waiting for completion"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	r := resp.Result
	if r == nil {
		lines = append(lines, s.empty.Render("Completed without a scoping result."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	body := []string{
		s.detail.Render(r.Summary),
		"",
		fmt.Sprintf("%s  %s", s.header.Render("risk:"), s.risk(string(r.RiskLevel))),
		fmt.Sprintf("%s  %.1fh", s.header.Render("effort:"), r.EstEffortHours),
		fmt.Sprintf("%s  %.0f%%", s.header.Render("confidence:"), r.Confidence*100),
	}
	if len(r.Plan) > 0 {
		body = append(body, "", s.header.Render("plan:"))
		for i, step := range r.Plan {
			body = append(body, s.detail.Render(fmt.Sprintf("  %d. %s", i+1, step)))
		}
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, body...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderExecuteResponse(resp *orchestrator.ExecuteResponse, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Execute %s/%s#%d", resp.Owner, resp.Repo, resp.Number)),
		s.meta.Render("session: " + resp.SessionID),
	}
	if resp.SessionURL != "" {
		lines = append(lines, s.meta.Render("url: "+resp.SessionURL))
	}

	if resp.Status == orchestrator.StatusSessionCreated {
		lines = append(lines, s.warn.Render("session created, not waiting for completion"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	r := resp.Result
	if r == nil {
		lines = append(lines, s.empty.Render("Session finished without structured results; check the session URL."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	body := []string{
		fmt.Sprintf("%s  %s", s.header.Render("status:"), s.sessionStatus(string(r.Status))),
	}
	if r.PRURL != nil {
		body = append(body, fmt.Sprintf("%s  %s", s.header.Render("pr:"), s.detail.Render(*r.PRURL)))
	}
	if r.Branch != nil {
		body = append(body, fmt.Sprintf("%s  %s", s.header.Render("branch:"), s.detail.Render(*r.Branch)))
	}
	if r.TestsPassed != nil || r.TestsFailed != nil {
		passed, failed := 0, 0
		if r.TestsPassed != nil {
			passed = *r.TestsPassed
		}
		if r.TestsFailed != nil {
			failed = *r.TestsFailed
		}
		testStyle := s.ok
		if failed > 0 {
			testStyle = s.bad
		}
		body = append(body, fmt.Sprintf("%s  %s", s.header.Render("tests:"),
			testStyle.Render(fmt.Sprintf("%d passed, %d failed", passed, failed))))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, body...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSessionList(list *sessionList, s styles) string {
	lines := []string{
		s.title.Render("Agent Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", list.Count)),
	}

	if len(list.Sessions) == 0 {
		lines = append(lines, s.empty.Render("No sessions recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, rec := range list.Sessions {
		lines = append(lines, s.section.Render(renderSessionRecord(&rec, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSessionRecord(rec *domain.SessionRecord, s styles) string {
	parts := []string{
		s.item.Render(fmt.Sprintf("%s/%s#%d  [%s]", rec.Owner, rec.Repo, rec.Number, rec.Phase)),
		s.meta.Render("session: " + rec.SessionID),
	}
	if rec.Status != "" {
		parts = append(parts, fmt.Sprintf("%s  %s", s.header.Render("status:"), s.sessionStatus(rec.Status)))
	}
	if rec.RiskLevel != nil {
		parts = append(parts, fmt.Sprintf("%s  %s", s.header.Render("risk:"), s.risk(*rec.RiskLevel)))
	}
	if rec.PRURL != nil {
		parts = append(parts, fmt.Sprintf("%s  %s", s.header.Render("pr:"), s.detail.Render(*rec.PRURL)))
	}
	if rec.DurationSeconds != nil {
		parts = append(parts, s.meta.Render("duration: "+formatDuration(*rec.DurationSeconds)))
	}
	parts = append(parts, s.meta.Render("created "+relativeTime(rec.CreatedAt)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return d.Round(time.Second).String()
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	elapsed := time.Since(t)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours()/24))
	}
}
