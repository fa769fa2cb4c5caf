package webpath

const (
	Home = "/"

	Api              = "/api"
	ApiLeaderboard   = Api + "/leaderboard"
	ApiStreaks       = Api + "/streaks"
	ApiProfiles      = Api + "/profiles"
	ApiPlayerHistory = Api + "/players/:name/history"
	ApiGames         = Api + "/games"
	ApiGameRatings   = ApiGames + "/ratings"
	ApiVerifyGame    = ApiGames + "/verify"
	ApiOdds          = Api + "/odds"

	ApiCron         = Api + "/cron"
	ApiCronBackfill = ApiCron + "/backfill"
	ApiCronExport   = ApiCron + "/export"
	ApiCronImport   = ApiCron + "/import"
)

func Path() map[string]string {
	return map[string]string{
		"Home":           Home,
		"ApiLeaderboard": ApiLeaderboard,
		"ApiStreaks":     ApiStreaks,
		"ApiGames":       ApiGames,
		"ApiOdds":        ApiOdds,
	}
}
