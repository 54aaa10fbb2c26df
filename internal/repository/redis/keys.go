package redis

import "fmt"

const ns = "tixbook:v1"

func KeyEventSummary() string {
	return ns + ":event:summary"
}

func KeyTierAvailability(tierID int64) string {
	return fmt.Sprintf("%s:tier:%d:availability", ns, tierID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemBooking(idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s", ns, idemKey)
}

func ChannelTiersChanged() string {
	return ns + ":tiers:changed"
}
