package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/hunt"
	"github.com/Gyeri/warphunt/internal/txsim"
	"github.com/Gyeri/warphunt/internal/wallet"
)

// statusTable maps domain errors to HTTP status codes. The first match wins.
var statusTable = []struct {
	err    error
	status int
}{
	{wallet.ErrProviderAbsent, http.StatusPreconditionFailed},
	{wallet.ErrUserRejected, http.StatusForbidden},
	{wallet.ErrNotAuthorized, http.StatusForbidden},
	{wallet.ErrNoAccounts, http.StatusConflict},

	{game.ErrInvalidDifficulty, http.StatusBadRequest},
	{game.ErrQuitNotConfirmed, http.StatusBadRequest},
	{game.ErrPlayerClosed, http.StatusGone},
	{game.ErrWalletNotConnected, http.StatusConflict},
	{game.ErrHuntInProgress, http.StatusConflict},
	{game.ErrNoHunt, http.StatusConflict},
	{game.ErrNoTransaction, http.StatusConflict},
	{game.ErrTransactionInProgress, http.StatusConflict},
	{game.ErrNoReward, http.StatusConflict},
	{game.ErrRewardClaimed, http.StatusConflict},
	{game.ErrClaimPending, http.StatusConflict},
	{game.ErrRewardUnclaimed, http.StatusConflict},

	{hunt.ErrNotActive, http.StatusConflict},
	{hunt.ErrAlreadyStarted, http.StatusConflict},
	{hunt.ErrStepAlreadySolved, http.StatusConflict},
	{hunt.ErrAnswerRequired, http.StatusConflict},
	{hunt.ErrNotCompleted, http.StatusConflict},

	{txsim.ErrNotInitial, http.StatusConflict},
	{txsim.ErrNotFailed, http.StatusConflict},
	{txsim.ErrClosed, http.StatusConflict},
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError maps err through statusTable and writes it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
		Error(w, status, "internal error")
		return
	}
	slog.Debug("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	Error(w, status, err.Error())
}
