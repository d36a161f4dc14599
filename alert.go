package main

import (
	"fmt"

	. "github.com/GregoryUnderscore/Mining-Automation-Shared/utils/email"

	"CoinRewardData/config"
	"CoinRewardData/reward"
)

// alertKinds are the failures worth an e-mail. Bad input is reported on the
// console only.
var alertKinds = map[reward.ErrorKind]bool{
	reward.TransportFailure: true,
	reward.ProviderError:    true,
}

// Notify by e-mail that a miner's projection could not be made.
// @param config - The configuration object with all the SMTP settings.
// @param miner - The miner name, may be empty
// @param coin - The coin that was projected
// @param err - The projection failure
// @returns - Whether an alert was sent
func sendProjectionAlert(config *config.Config, miner string, coin reward.CoinType, err error) bool {
	if !alertKinds[reward.KindOf(err)] {
		return false
	}
	subject, body := alertMessage(miner, coin, err)
	// If the email server is not set, nothing will be sent.
	SendEmail(subject, body, config.EmailUser, config.EmailPassword, config.EmailServer,
		config.EmailPort, config.EmailTo, config.EmailFrom)
	return true
}

func alertMessage(miner string, coin reward.CoinType, err error) (string, string) {
	name := miner
	if name == "" {
		name = coin.String()
	}
	subject := "Reward Projection Failed: " + name
	body := fmt.Sprintf("Projection of %s rewards failed (%s): %s", coin, reward.KindOf(err), err)
	return subject, body
}
