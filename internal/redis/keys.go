package redis

import "fmt"

const ns = "floorsync:v1"

// ChannelEntityChanged names the pub/sub channel carrying change
// notifications for one entity class scoped to one tenant.
func ChannelEntityChanged(entity, tenantID string) string {
	return fmt.Sprintf("%s:%s:changed:%s", ns, entity, tenantID)
}

// PrefixRateLimit is the key prefix for the manual-refresh rate limiter.
const PrefixRateLimit = ns + ":rl"
