package service

import "github.com/flipnotify/backend/internal/models"

// modeFlags is the flattened spreadsheet encoding of notification_mode.
// The four columns are not independent booleans; they map onto the four
// modes via a fixed table that both export and import must honor.
type modeFlags struct {
	OnlyPreferred int
	NonGoodDeals  int
	GoodDeals     int
	NearGoodDeals int
}

func flagsForMode(mode string) modeFlags {
	switch mode {
	case models.ModeOnlyPreferred:
		return modeFlags{OnlyPreferred: 1}
	case models.ModeNearGoodDeal:
		return modeFlags{OnlyPreferred: 1, NearGoodDeals: 1}
	case models.ModeGoodDeal:
		return modeFlags{OnlyPreferred: 1, GoodDeals: 1, NearGoodDeals: 1}
	default:
		return modeFlags{NonGoodDeals: 1}
	}
}

// modeForFlags inverts flagsForMode. Combinations that match no table row
// fall back to "all".
func modeForFlags(f modeFlags) string {
	switch f {
	case modeFlags{OnlyPreferred: 1}:
		return models.ModeOnlyPreferred
	case modeFlags{OnlyPreferred: 1, NearGoodDeals: 1}:
		return models.ModeNearGoodDeal
	case modeFlags{OnlyPreferred: 1, GoodDeals: 1, NearGoodDeals: 1}:
		return models.ModeGoodDeal
	default:
		return models.ModeAll
	}
}
