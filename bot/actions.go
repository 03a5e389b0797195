package bot

// Callback payloads carried in inline keyboard buttons.
const (
	dataSpin            = "spin"
	dataDashboard       = "dashboard"
	dataRefer           = "refer"
	dataWithdraw        = "withdraw"
	dataConfirmWithdraw = "confirm_withdrawal"
	dataHome            = "back"
)

// action is the decoded variant of a callback payload. Unknown payloads map
// to actionUnknown and are dropped with a log line instead of being guessed.
type action int

const (
	actionUnknown action = iota
	actionSpin
	actionDashboard
	actionRefer
	actionWithdraw
	actionConfirmWithdraw
	actionHome
)

func parseAction(data string) action {
	switch data {
	case dataSpin:
		return actionSpin
	case dataDashboard:
		return actionDashboard
	case dataRefer:
		return actionRefer
	case dataWithdraw:
		return actionWithdraw
	case dataConfirmWithdraw:
		return actionConfirmWithdraw
	case dataHome:
		return actionHome
	}
	return actionUnknown
}
