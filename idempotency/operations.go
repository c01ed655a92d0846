package idempotency

import (
	"log"
	"strings"
)

// canonicalOperations maps every known write path, normalized per
// NormalizePath, to its stable business-operation name. Multiple path
// versions of the same action map to one name; that is the whole
// decoupling mechanism, so the table is deliberately flat and exhaustive.
// A lookup miss is a deployment defect: add the route here when a new
// write endpoint ships.
var canonicalOperations = map[string]string{
	// ---- Auth
	"/api/v2/auth/login":   "AUTH_LOGIN",
	"/api/v3/auth/login":   "AUTH_LOGIN",
	"/api/v4/auth/login":   "AUTH_LOGIN",
	"/api/v4/auth/logout":  "AUTH_LOGOUT",
	"/api/v4/auth/refresh": "AUTH_REFRESH",

	// ---- Lottery
	"/api/v2/lottery/draw":              "LOTTERY_DRAW",
	"/api/v3/lottery/draw":              "LOTTERY_DRAW",
	"/api/v4/lottery/draw":              "LOTTERY_DRAW",
	"/api/v4/activities/:code/draw":     "LOTTERY_DRAW",
	"/api/v4/activities/:code/redraw":   "LOTTERY_REDRAW",
	"/api/v3/lottery/prizes/:id/claim":  "LOTTERY_PRIZE_CLAIM",
	"/api/v4/lottery/prizes/:id/claim":  "LOTTERY_PRIZE_CLAIM",
	"/api/v4/activities/:code/enroll":   "LOTTERY_ENROLL",
	"/api/v4/activities/:code/withdraw": "LOTTERY_WITHDRAW",

	// ---- Points
	"/api/v2/points/adjust":       "POINTS_ADJUST",
	"/api/v3/points/adjust":       "POINTS_ADJUST",
	"/api/v4/points/adjust":       "POINTS_ADJUST",
	"/api/v3/points/transfer":     "POINTS_TRANSFER",
	"/api/v4/points/transfer":     "POINTS_TRANSFER",
	"/api/v4/points/freeze":       "POINTS_FREEZE",
	"/api/v4/points/unfreeze":     "POINTS_UNFREEZE",
	"/api/v4/users/:id/points":    "POINTS_ADJUST",
	"/api/v4/points/batch-grant":  "POINTS_BATCH_GRANT",
	"/api/v4/points/accounts/:id": "POINTS_ACCOUNT_UPDATE",

	// ---- Inventory
	"/api/v2/inventory/use":           "INVENTORY_USE",
	"/api/v3/inventory/use":           "INVENTORY_USE",
	"/api/v4/inventory/use":           "INVENTORY_USE",
	"/api/v4/inventory/:id/use":       "INVENTORY_USE",
	"/api/v3/inventory/exchange":      "INVENTORY_EXCHANGE",
	"/api/v4/inventory/exchange":      "INVENTORY_EXCHANGE",
	"/api/v3/inventory/transfer":      "INVENTORY_TRANSFER",
	"/api/v4/inventory/transfer":      "INVENTORY_TRANSFER",
	"/api/v4/inventory/:id/transfer":  "INVENTORY_TRANSFER",
	"/api/v4/inventory/:id/writeoff":  "INVENTORY_WRITEOFF",
	"/api/v4/asset-types/:code/grant": "INVENTORY_GRANT",

	// ---- Orders / market
	"/api/v3/orders":             "ORDER_CREATE",
	"/api/v4/orders":             "ORDER_CREATE",
	"/api/v3/orders/:id/cancel":  "ORDER_CANCEL",
	"/api/v4/orders/:id/cancel":  "ORDER_CANCEL",
	"/api/v4/orders/:id/confirm": "ORDER_CONFIRM",
	"/api/v4/orders/:id/ship":    "ORDER_SHIP",
	"/api/v4/orders/:id/refund":  "ORDER_REFUND",

	// ---- Consumption review
	"/api/v3/consumption/submit":       "CONSUMPTION_SUBMIT",
	"/api/v4/consumption/submit":       "CONSUMPTION_SUBMIT",
	"/api/v3/consumption/:id/approve":  "CONSUMPTION_APPROVE",
	"/api/v4/consumption/:id/approve":  "CONSUMPTION_APPROVE",
	"/api/v3/consumption/:id/reject":   "CONSUMPTION_REJECT",
	"/api/v4/consumption/:id/reject":   "CONSUMPTION_REJECT",
	"/api/v4/consumption/:id/appeal":   "CONSUMPTION_APPEAL",
	"/api/v4/consumption/:uuid/verify": "CONSUMPTION_VERIFY",

	// ---- Admin mutations
	"/api/v3/admin/users/:id":           "ADMIN_USER_UPDATE",
	"/api/v4/admin/users/:id":           "ADMIN_USER_UPDATE",
	"/api/v4/admin/users/:id/status":    "ADMIN_USER_STATUS",
	"/api/v4/admin/users/:id/roles":     "ADMIN_USER_ROLES",
	"/api/v4/admin/config":              "ADMIN_CONFIG_UPDATE",
	"/api/v4/admin/settings/:code":      "ADMIN_CONFIG_UPDATE",
	"/api/v4/admin/activities":          "ADMIN_ACTIVITY_CREATE",
	"/api/v4/admin/activities/:code":    "ADMIN_ACTIVITY_UPDATE",
	"/api/v4/admin/prizes/:code":        "ADMIN_PRIZE_UPDATE",
	"/api/v4/admin/prizes/:code/stock":  "ADMIN_PRIZE_STOCK_ADJUST",
	"/api/v4/admin/feature-flags/:code": "ADMIN_FEATURE_FLAG_UPDATE",
	"/api/v4/admin/campaigns/:code":     "ADMIN_CAMPAIGN_UPDATE",
	"/api/v4/admin/points/adjust":       "ADMIN_POINTS_ADJUST",
	"/api/v4/admin/idempotency/cleanup": "ADMIN_IDEMPOTENCY_CLEANUP",
}

// ResolveOperation maps a raw request path to its canonical operation name.
// Attempts, in order: exact match, normalized match, normalized with a
// trailing slash appended, normalized with the trailing slash stripped.
// A miss after all four is a configuration defect and fails hard; silently
// falling back to the raw path would disable idempotency protection for
// that endpoint. An empty path passes through as a no-op.
func ResolveOperation(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if op, ok := canonicalOperations[path]; ok {
		return op, nil
	}

	normalized := NormalizePath(path)
	if op, ok := canonicalOperations[normalized]; ok {
		return op, nil
	}
	if op, ok := canonicalOperations[normalized+"/"]; ok {
		return op, nil
	}
	if op, ok := canonicalOperations[strings.TrimSuffix(normalized, "/")]; ok {
		return op, nil
	}

	log.Printf("[idempotency] FATAL: write path %q (normalized %q) has no canonical operation mapping; register it in canonicalOperations", path, normalized)
	return "", errOperationNotMapped(path)
}
