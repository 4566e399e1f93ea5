package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/txsim"
)

type palette struct {
	title  lipgloss.Style
	accent lipgloss.Style
	text   lipgloss.Style
	dim    lipgloss.Style
	good   lipgloss.Style
	danger lipgloss.Style
	border lipgloss.Color
}

func paletteFor(t domain.Theme) palette {
	if t == domain.ThemeLight {
		return palette{
			title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B21B6")),
			accent: lipgloss.NewStyle().Foreground(lipgloss.Color("#1D4ED8")),
			text:   lipgloss.NewStyle().Foreground(lipgloss.Color("#111827")),
			dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
			good:   lipgloss.NewStyle().Foreground(lipgloss.Color("#15803D")),
			danger: lipgloss.NewStyle().Foreground(lipgloss.Color("#B91C1C")),
			border: lipgloss.Color("#7C3AED"),
		}
	}
	return palette{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C4B5FD")),
		accent: lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")),
		text:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		good:   lipgloss.NewStyle().Foreground(lipgloss.Color("#4ADE80")),
		danger: lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
		border: lipgloss.Color("#7C3AED"),
	}
}

func (m model) View() string {
	pal := paletteFor(m.theme)

	width := m.w
	if width < 60 {
		width = 60
	}
	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(pal.border).
		Padding(0, 1).
		Width(width - 4)

	var body, controls string
	switch {
	case m.state.Layer == game.LayerWalletFallback:
		body, controls = m.viewFallback(pal), "q quit"
	case m.state.Layer == game.LayerHunt:
		body, controls = m.viewHunt(pal)
	case m.state.Layer == game.LayerReward:
		body, controls = m.viewReward(pal)
	case m.board:
		body, controls = m.viewLeaderboard(pal), "any key back"
	default:
		body, controls = m.viewProfile(pal)
	}

	status := pal.accent.Render(m.status)
	return lipgloss.JoinVertical(lipgloss.Left,
		pane.Render(m.viewHeader(pal)),
		pane.Render(body),
		pal.dim.Render(" "+controls),
		" "+status,
	)
}

func (m model) viewHeader(pal palette) string {
	wallet := pal.dim.Render("wallet not connected")
	switch {
	case !m.state.Wallet.Available:
		wallet = pal.danger.Render("no wallet")
	case m.state.Wallet.Connected:
		wallet = pal.good.Render("● " + m.state.Wallet.DisplayAddress)
	}
	return pal.title.Render("WARPHUNT") + pal.dim.Render("  on-chain treasure hunt  ") + wallet
}

func (m model) viewFallback(pal palette) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		pal.danger.Render("No wallet detected"),
		"",
		pal.text.Render("WarpHunt needs a wallet to record your progress."),
		pal.text.Render("Install a wallet extension, or set WALLET_PROVIDER=simulated."),
	)
}

func (m model) viewProfile(pal palette) (string, string) {
	var b strings.Builder

	if p := m.state.Profile; p != nil {
		fmt.Fprintf(&b, "%s  %s\n", pal.title.Render(p.DisplayName), pal.dim.Render("@"+p.Username))
		fmt.Fprintf(&b, "Level %s   %s XP   %s to next level   %s MON\n",
			pal.accent.Render(fmt.Sprint(p.Level)),
			pal.accent.Render(fmt.Sprint(p.XPBalance)),
			pal.dim.Render(fmt.Sprint(p.XPToNextLevel)),
			pal.text.Render(p.MonBalance.StringFixed(2)))
		b.WriteString("\nAchievements\n")
		for _, a := range p.Achievements {
			mark := pal.dim.Render("[ ]")
			if a.Unlocked {
				mark = pal.good.Render("[x]")
			}
			fmt.Fprintf(&b, "  %s %s %s\n", mark, a.Name, pal.dim.Render(a.Description))
		}
	} else {
		b.WriteString(pal.text.Render("Connect your wallet to start hunting.") + "\n")
	}

	b.WriteString("\nDifficulty\n")
	for i, d := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard} {
		label := fmt.Sprintf("%d %s (%s)", i+1, d.Title(), clock(d.TimeBudget()))
		if d == m.state.Difficulty {
			label = pal.accent.Render("> " + label)
		} else {
			label = pal.dim.Render("  " + label)
		}
		b.WriteString("  " + label + "\n")
	}

	if o := m.state.LastOutcome; o != nil {
		fmt.Fprintf(&b, "\nLast hunt: %s on %s, step %d, %d points\n", o.Status, o.Difficulty.Title(), o.Step, o.Score)
	}

	controls := "c connect  1-3 difficulty  enter start  l leaderboard  t theme  q quit"
	if m.state.Wallet.Connected {
		controls = "d disconnect  1-3 difficulty  enter start  l leaderboard  t theme  q quit"
	}
	return strings.TrimRight(b.String(), "\n"), controls
}

func (m model) viewHunt(pal palette) (string, string) {
	hs := m.state.Hunt
	if hs == nil {
		return "", ""
	}

	timer := pal.text.Render(clock(hs.TimeRemaining))
	if hs.TimeRemaining < 60 {
		timer = pal.danger.Render(clock(hs.TimeRemaining))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  Step %d/%d   %s   Score %s   At stake %s\n",
		pal.title.Render(hs.Difficulty.Title()+" hunt"),
		hs.Step, hs.TotalSteps, timer,
		pal.accent.Render(fmt.Sprint(hs.Score)),
		pal.accent.Render(fmt.Sprint(hs.PointsAtStake)))
	b.WriteString(stepTrack(pal, hs.Step, hs.TotalSteps) + "\n\n")
	b.WriteString(pal.text.Render(hs.Clue) + "\n")
	if hs.HintUsed {
		b.WriteString(pal.dim.Render("Hint: "+hs.Hint) + "\n")
	}
	b.WriteString("\n")

	controls := "type answer  enter submit  tab hint  esc quit"
	switch {
	case m.state.Transaction != nil:
		b.WriteString(m.viewTransaction(pal, *m.state.Transaction))
		controls = transactionControls(*m.state.Transaction)
	case hs.Solved:
		b.WriteString(pal.good.Render("Correct! Record your progress on-chain to unlock the next clue."))
		controls = "enter open transaction  esc quit"
	default:
		b.WriteString(pal.accent.Render("> ") + m.input + pal.dim.Render("_"))
		if hs.Attempts > 0 {
			b.WriteString(pal.dim.Render(fmt.Sprintf("   attempts: %d", hs.Attempts)))
		}
	}
	if m.confirmQuit {
		controls = "y confirm quit  any key cancel"
	}
	return b.String(), controls
}

func (m model) viewReward(pal palette) (string, string) {
	r := m.state.Reward
	if r == nil {
		return "", ""
	}

	shown := r.EarnedXP
	if m.xp != nil && m.xp.rewardID == r.ID {
		shown = m.xp.Value(m.now())
	}

	var b strings.Builder
	b.WriteString(pal.title.Render("Hunt Complete!") + "\n\n")
	fmt.Fprintf(&b, "Experience gained  %s\n\n", pal.accent.Render(fmt.Sprintf("+%d XP", shown)))
	fmt.Fprintf(&b, "Difficulty      %s\n", r.Difficulty.Title())
	fmt.Fprintf(&b, "Hunt score      %d\n", r.HuntScore)
	fmt.Fprintf(&b, "Time remaining  %s\n", clock(r.TimeRemaining))
	fmt.Fprintf(&b, "Hints used      %d\n", r.HintsUsed)
	fmt.Fprintf(&b, "Attempts        %d\n\n", r.TotalAttempts)

	controls := "enter claim XP  t theme"
	switch {
	case m.state.Transaction != nil:
		b.WriteString(m.viewTransaction(pal, *m.state.Transaction))
		controls = transactionControls(*m.state.Transaction)
	case r.Claimed:
		b.WriteString(pal.good.Render("XP Successfully Claimed!"))
		if p := m.state.Profile; p != nil {
			fmt.Fprintf(&b, "\nNew balance %d XP, level %d", p.XPBalance, p.Level)
		}
		controls = "enter home  t theme"
	case m.state.ClaimPending:
		b.WriteString(pal.accent.Render("Claiming XP..."))
		controls = ""
	default:
		b.WriteString(pal.dim.Render(fmt.Sprintf("Potential XP ~%d", r.EarnedXP)))
	}
	return b.String(), controls
}

func (m model) viewLeaderboard(pal palette) string {
	if len(m.leaderboard) == 0 {
		return pal.dim.Render("Leaderboard unavailable.")
	}
	var b strings.Builder
	b.WriteString(pal.title.Render("Leaderboard") + "\n\n")
	fmt.Fprintf(&b, "%s\n", pal.dim.Render(fmt.Sprintf("%-4s %-16s %6s %5s %4s %-7s %s", "#", "Hunter", "Score", "XP", "Lvl", "Mode", "Time")))
	for _, e := range m.leaderboard {
		fmt.Fprintf(&b, "%-4d %-16s %6d %5d %4d %-7s %s\n", e.Rank, e.Name, e.Score, e.XP, e.Level, e.Difficulty.Title(), e.Time)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) viewTransaction(pal palette, tx txsim.Snapshot) string {
	title := "Record progress"
	if tx.Kind == txsim.KindClaim {
		title = "Claim XP"
	}

	var line string
	switch tx.Stage {
	case txsim.StageInitial:
		line = pal.text.Render("Ready to sign.")
	case txsim.StageSigning:
		line = pal.accent.Render("Signing  ") + progressBar(tx.Progress)
	case txsim.StageConfirming:
		line = pal.accent.Render("Confirming  ") + progressBar(tx.Progress)
	case txsim.StageComplete:
		line = pal.good.Render("Transaction confirmed")
		if tx.TxHash != "" {
			line += pal.dim.Render("  " + shortHash(tx.TxHash))
		}
	case txsim.StageError:
		line = pal.danger.Render(tx.Error)
	}
	return pal.title.Render(title) + "\n" + line
}

func transactionControls(tx txsim.Snapshot) string {
	switch tx.Stage {
	case txsim.StageInitial:
		return "enter sign  esc cancel"
	case txsim.StageError:
		return "r retry  esc close"
	}
	return "esc close"
}

func stepTrack(pal palette, step, total int) string {
	var parts []string
	for i := 1; i <= total; i++ {
		switch {
		case i < step:
			parts = append(parts, pal.good.Render("●"))
		case i == step:
			parts = append(parts, pal.accent.Render("◉"))
		default:
			parts = append(parts, pal.dim.Render("○"))
		}
	}
	return strings.Join(parts, " ")
}

func progressBar(pct int) string {
	const width = 20
	pct = max(0, min(100, pct))
	filled := pct * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf(" %3d%%", pct)
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "..." + h[len(h)-6:]
}

// clock formats seconds as m:ss.
func clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
