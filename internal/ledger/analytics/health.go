package analytics

const (
	lowStockPenalty, lowStockCap         = 2, 30
	stagnantPenalty, stagnantCap         = 3, 20
	expiringSoonPenalty, expiringSoonCap = 5, 20
)

// HealthScore starts at 100 and subtracts a capped penalty per risk signal.
// The result is clamped to [0, 100].
func HealthScore(lowStock, stagnantCustomers, expiringSoon int) int {
	score := 100
	score -= min(lowStock*lowStockPenalty, lowStockCap)
	score -= min(stagnantCustomers*stagnantPenalty, stagnantCap)
	score -= min(expiringSoon*expiringSoonPenalty, expiringSoonCap)
	return max(0, min(100, score))
}
