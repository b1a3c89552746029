package telegram

import "fmt"

// InviteLink builds the deep link a new member taps to redeem an
// invite. The format is part of the public contract: Telegram passes
// the start payload to /start verbatim.
func InviteLink(botUsername, code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, code)
}
