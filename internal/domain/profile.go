package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HuntMasterAchievementID is granted the first time a claimed hunt reaches the profile.
const HuntMasterAchievementID = 4

// Achievement is a badge shown on the profile.
type Achievement struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// UserProfile is the hunter profile attached to a connected wallet.
// Level is intentionally absent: it is always derived from XPBalance.
type UserProfile struct {
	FID           string          `json:"fid"`
	Username      string          `json:"username"`
	DisplayName   string          `json:"display_name"`
	ProfileImage  string          `json:"profile_image"`
	WalletAddress string          `json:"wallet_address"`
	MonBalance    decimal.Decimal `json:"mon_balance"`
	XPBalance     int             `json:"xp_balance"`
	Achievements  []Achievement   `json:"achievements"`
}

// HasAchievement reports whether an achievement with id is present.
func (p UserProfile) HasAchievement(id int) bool {
	for _, a := range p.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// WithClaim returns a copy of the profile with earnedXP credited and the Hunt
// Master achievement added unless it already exists. The receiver is not
// modified, so callers can swap the result in as one assignment.
func (p UserProfile) WithClaim(earnedXP int, now time.Time) UserProfile {
	next := p
	next.XPBalance = p.XPBalance + earnedXP
	next.Achievements = make([]Achievement, len(p.Achievements), len(p.Achievements)+1)
	copy(next.Achievements, p.Achievements)

	if !p.HasAchievement(HuntMasterAchievementID) {
		unlocked := now
		next.Achievements = append(next.Achievements, Achievement{
			ID:          HuntMasterAchievementID,
			Name:        "Hunt Master",
			Description: "Complete a treasure hunt successfully",
			Icon:        "award",
			Unlocked:    true,
			UnlockedAt:  &unlocked,
		})
	}
	return next
}

// MockProfile returns the profile shown for a freshly connected wallet.
// There is no profile backend; the data is fixed apart from the address.
func MockProfile(formattedAddress string) UserProfile {
	firstHunt := time.Date(2023, time.May, 12, 0, 0, 0, 0, time.UTC)
	speedDemon := time.Date(2023, time.May, 15, 0, 0, 0, 0, time.UTC)
	return UserProfile{
		FID:           "42069",
		Username:      "cryptohunter",
		DisplayName:   "Crypto Hunter",
		ProfileImage:  "/placeholder.svg?height=200&width=200",
		WalletAddress: formattedAddress,
		MonBalance:    decimal.RequireFromString("0.05"),
		XPBalance:     350,
		Achievements: []Achievement{
			{ID: 1, Name: "First Hunt", Description: "Complete your first treasure hunt", Icon: "trophy", Unlocked: true, UnlockedAt: &firstHunt},
			{ID: 2, Name: "Speed Demon", Description: "Complete a hunt in under 5 minutes", Icon: "clock", Unlocked: true, UnlockedAt: &speedDemon},
			{ID: 3, Name: "Perfect Score", Description: "Complete a hunt without using any hints", Icon: "target"},
		},
	}
}
