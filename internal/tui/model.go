package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/store"
	"github.com/Gyeri/warphunt/internal/txsim"
	"github.com/Gyeri/warphunt/internal/wallet"
)

const maxAnswerLen = 64

type model struct {
	player *game.Player
	events <-chan game.Event
	repo   store.Repository
	now    func() time.Time

	w, h        int
	state       game.State
	theme       domain.Theme
	leaderboard []domain.LeaderboardEntry
	board       bool

	input       string
	status      string
	confirmQuit bool
	xp          *xpCounter
}

func newModel(player *game.Player, events <-chan game.Event, repo store.Repository) model {
	return model{
		player: player,
		events: events,
		repo:   repo,
		now:    time.Now,
		state:  player.State(),
		theme:  domain.DefaultTheme,
	}
}

// eventMsg carries a player event into the update loop.
type eventMsg game.Event

// xpFrameMsg advances the XP count-up.
type xpFrameMsg time.Time

// statusMsg replaces the status line.
type statusMsg string

func waitForEvent(events <-chan game.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func xpFrameCmd() tea.Cmd {
	return tea.Tick(xpFrame, func(t time.Time) tea.Msg { return xpFrameMsg(t) })
}

func saveThemeCmd(repo store.Repository, theme domain.Theme) tea.Cmd {
	if repo == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.SetPreference(ctx, LocalUserID, domain.ThemePreferenceKey, string(theme)); err != nil {
			slog.Warn("Failed to store theme preference", "error", err)
			return statusMsg("Theme not saved: " + err.Error())
		}
		return nil
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.updateKey(msg)
	case eventMsg:
		m = m.applyEvent(game.Event(msg))
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if cmd := m.startXP(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	case xpFrameMsg:
		if m.xp != nil && !m.xp.Done(time.Time(msg)) {
			return m, xpFrameCmd()
		}
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case tea.WindowSizeMsg:
		m.w = msg.Width
		m.h = msg.Height
		return m, nil
	}
	return m, nil
}

func (m model) applyEvent(ev game.Event) model {
	m.state = m.player.State()
	switch ev.Type {
	case game.EventStepAdvanced:
		m.status = "Transaction confirmed. Next clue unlocked."
	case game.EventHuntCompleted:
		m.status = "Hunt complete!"
	case game.EventHuntFailed:
		m.status = "Time's up! The hunt has ended."
		m.input = ""
		m.confirmQuit = false
	case game.EventRewardClaimed:
		m.status = "XP successfully claimed!"
	case game.EventTxStage:
		if snap, ok := ev.Data.(txsim.Snapshot); ok && snap.Stage == txsim.StageError {
			m.status = snap.Error
		}
	}
	return m
}

// startXP begins the count-up the first time a reward is shown.
func (m *model) startXP() tea.Cmd {
	r := m.state.Reward
	if m.state.Layer != game.LayerReward || r == nil {
		return nil
	}
	if m.xp != nil && m.xp.rewardID == r.ID {
		return nil
	}
	c := newXPCounter(r.ID, r.EarnedXP, m.now())
	m.xp = &c
	return xpFrameCmd()
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.player.Touch()
	switch m.state.Layer {
	case game.LayerHunt:
		return m.updateHunt(msg)
	case game.LayerReward:
		return m.updateReward(msg)
	case game.LayerWalletFallback:
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}
	return m.updateProfile(msg)
}

func (m model) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.board {
		m.board = false
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "c":
		ws, err := m.player.ConnectWallet(context.Background())
		m.status = walletStatus(ws, err)
	case "d":
		_, err := m.player.DisconnectWallet()
		m.status = errStatus(err, "Wallet disconnected.")
	case "1", "2", "3":
		d := []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard}[msg.String()[0]-'1']
		m.status = errStatus(m.player.SelectDifficulty(d), d.Title()+" selected.")
	case "enter", "s":
		_, err := m.player.StartHunt()
		m.status = errStatus(err, "")
		m.input = ""
	case "l":
		m.board = true
	case "t":
		m.theme = m.theme.Toggled()
		m.state = m.player.State()
		return m, saveThemeCmd(m.repo, m.theme)
	}
	m.state = m.player.State()
	return m, nil
}

func (m model) updateHunt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmQuit {
		m.confirmQuit = false
		if msg.String() == "y" {
			m.status = errStatus(m.player.Quit(true), "Hunt abandoned.")
		} else {
			m.status = ""
		}
		m.state = m.player.State()
		return m, nil
	}

	if m.state.Transaction != nil {
		m.status = m.updateTransaction(msg)
		m.state = m.player.State()
		return m, nil
	}

	hs := m.state.Hunt
	switch msg.Type {
	case tea.KeyEsc:
		m.confirmQuit = true
		m.status = "Quit the hunt? Progress will be lost. (y/n)"
		return m, nil
	case tea.KeyTab:
		hint, err := m.player.UseHint()
		m.status = errStatus(err, "Hint: "+hint)
	case tea.KeyEnter:
		if hs != nil && hs.Solved {
			_, err := m.player.OpenTransaction()
			m.status = errStatus(err, "")
			break
		}
		res, err := m.player.SubmitAnswer(m.input)
		switch {
		case err != nil:
			m.status = err.Error()
		case res.Accepted:
			m.status = fmt.Sprintf("Correct! +%d points. Press enter to record progress on-chain.", res.Points)
			m.input = ""
		default:
			m.status = "Incorrect answer. Try again."
		}
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			r := []rune(m.input)
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.appendInput(" ")
	case tea.KeyRunes:
		if hs == nil || !hs.Solved {
			m.appendInput(string(msg.Runes))
		}
	}
	m.state = m.player.State()
	return m, nil
}

func (m *model) appendInput(s string) {
	if len([]rune(m.input))+len([]rune(s)) <= maxAnswerLen {
		m.input += s
	}
}

func (m model) updateReward(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state.Transaction != nil {
		m.status = m.updateTransaction(msg)
		m.state = m.player.State()
		return m, nil
	}

	r := m.state.Reward
	switch msg.String() {
	case "enter", "c":
		switch {
		case r != nil && r.Claimed:
			m.status = errStatus(m.player.ReturnHome(), "")
		case m.state.ClaimPending:
			m.status = "Claiming XP..."
		default:
			_, err := m.player.ClaimReward()
			m.status = errStatus(err, "")
		}
	case "h":
		m.status = errStatus(m.player.ReturnHome(), "")
	case "t":
		m.theme = m.theme.Toggled()
		return m, saveThemeCmd(m.repo, m.theme)
	}
	m.state = m.player.State()
	return m, nil
}

// updateTransaction drives the open transaction modal and returns the status line.
func (m model) updateTransaction(msg tea.KeyMsg) string {
	tx := m.state.Transaction
	switch msg.String() {
	case "enter":
		if tx.Stage != txsim.StageInitial {
			return m.status
		}
		_, err := m.player.SignTransaction(context.Background())
		return errStatus(err, "Confirm in your wallet...")
	case "r":
		if tx.Stage != txsim.StageError {
			return m.status
		}
		_, err := m.player.RetryTransaction()
		return errStatus(err, "")
	case "esc":
		return errStatus(m.player.CloseTransaction(), "Transaction closed.")
	}
	return m.status
}

func walletStatus(ws game.WalletState, err error) string {
	switch {
	case errors.Is(err, wallet.ErrProviderAbsent):
		return "No wallet detected."
	case err != nil:
		if ws.Error != "" {
			return ws.Error
		}
		return err.Error()
	}
	return "Connected " + ws.DisplayAddress
}

func errStatus(err error, ok string) string {
	if err != nil {
		return err.Error()
	}
	return ok
}
