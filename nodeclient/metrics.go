package nodeclient

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	requestTimer      = metrics.NewRegisteredTimer("nodeclient/requests", nil)
	requestErrorMeter = metrics.NewRegisteredMeter("nodeclient/requests/error", nil)
	nodeErrorMeter    = metrics.NewRegisteredMeter("nodeclient/requests/rejected", nil)

	submitMeter = metrics.NewRegisteredMeter("nodeclient/submit", nil)

	methodCacheHitMeter  = metrics.NewRegisteredMeter("nodeclient/methods/hit", nil)
	methodCacheMissMeter = metrics.NewRegisteredMeter("nodeclient/methods/miss", nil)
)
