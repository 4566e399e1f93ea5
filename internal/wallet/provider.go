// Package wallet defines the browser-style wallet provider the game talks to,
// plus a simulated provider and an absent one.
package wallet

import (
	"context"
	"errors"
)

var (
	// ErrProviderAbsent means no wallet extension is installed.
	ErrProviderAbsent = errors.New("no wallet provider found")
	// ErrUserRejected means the user denied an interactive wallet request.
	ErrUserRejected = errors.New("user rejected the request")
	// ErrNoAccounts means the wallet returned no accounts.
	ErrNoAccounts = errors.New("no accounts found, unlock your wallet and try again")
	// ErrNotAuthorized means a transaction was sent before any account was authorized.
	ErrNotAuthorized = errors.New("wallet has not authorized this app")
)

const (
	// ContractAddress is the fictional hunt contract.
	ContractAddress = "0x1234567890123456789012345678901234567890"

	// SelectorProgressHunt is the 4-byte selector of progressHunt().
	SelectorProgressHunt = "0x3d7403a3"
	// SelectorClaimXP is the 4-byte selector of claimXpReward().
	SelectorClaimXP = "0x4e71d92d"
)

// TxParams is the payload handed to SendTransaction.
type TxParams struct {
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data"`
}

// ProgressHuntTx returns the transaction recording step progress.
func ProgressHuntTx() TxParams {
	return TxParams{To: ContractAddress, Value: "0x0", Data: SelectorProgressHunt}
}

// ClaimXPTx returns the transaction claiming an XP reward.
func ClaimXPTx() TxParams {
	return TxParams{To: ContractAddress, Value: "0x0", Data: SelectorClaimXP}
}

// Subscription identifies an accounts-changed listener.
type Subscription uint64

// AccountsChangedFunc receives the new account list. An empty list means the
// wallet disconnected.
type AccountsChangedFunc func(accounts []string)

// Provider is the wallet collaborator. Implementations must be safe for
// concurrent use.
type Provider interface {
	// HasProvider reports whether a wallet is available at all.
	HasProvider() bool

	// GetAccounts returns already authorized accounts without prompting.
	GetAccounts(ctx context.Context) ([]string, error)

	// RequestAccounts prompts the user to authorize accounts.
	RequestAccounts(ctx context.Context) ([]string, error)

	// SendTransaction submits a transaction and returns its hash.
	SendTransaction(ctx context.Context, params TxParams) (string, error)

	// OnAccountsChanged registers a listener for account switches.
	OnAccountsChanged(fn AccountsChangedFunc) Subscription

	// RemoveListener unregisters a listener returned by OnAccountsChanged.
	RemoveListener(sub Subscription)
}

// FormatAddress shortens an address for display as 0x1234...abcd.
func FormatAddress(address string) string {
	if len(address) < 10 {
		return "0x0000...0000"
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// Absent models a device without any wallet extension.
type Absent struct{}

var _ Provider = Absent{}

func (Absent) HasProvider() bool { return false }

func (Absent) GetAccounts(context.Context) ([]string, error) { return nil, ErrProviderAbsent }

func (Absent) RequestAccounts(context.Context) ([]string, error) { return nil, ErrProviderAbsent }

func (Absent) SendTransaction(context.Context, TxParams) (string, error) {
	return "", ErrProviderAbsent
}

func (Absent) OnAccountsChanged(AccountsChangedFunc) Subscription { return 0 }

func (Absent) RemoveListener(Subscription) {}
