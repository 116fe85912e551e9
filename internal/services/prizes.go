package services

import "raffle/internal/models"

// DefaultPrizes is the prize catalog every new session starts with.
func DefaultPrizes() []models.PrizeCategory {
	return []models.PrizeCategory{
		{ID: "refrigerator", Name: "1st Prize - Refrigerator", Description: "Premium Double Door Refrigerator", WinnerCount: 1, Icon: "❄️"},
		{ID: "tablets", Name: "2nd Prize - Samsung Tablets", Description: "Latest Samsung Galaxy Tablets", WinnerCount: 2, Icon: "📱"},
		{ID: "washing-machine", Name: "3rd Prize - Washing Machine", Description: "Fully Automatic Washing Machine", WinnerCount: 2, Icon: "🧺"},
		{ID: "soundbars", Name: "4th Prize - BOAT Sound Bars", Description: "Premium BOAT Sound Bar System", WinnerCount: 8, Icon: "🔊"},
		{ID: "iron-box", Name: "5th Prize - Iron Box", Description: "Steam Iron with Advanced Features", WinnerCount: 15, Icon: "👔"},
	}
}
