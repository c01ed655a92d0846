package idempotency

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"numeric id", "/api/v4/orders/12345/cancel", "/api/v4/orders/:id/cancel"},
		{"uuid segment", "/api/v4/consumption/6ba7b810-9dad-11d1-80b4-00c04fd430c8/verify", "/api/v4/consumption/:uuid/verify"},
		{"uppercase uuid", "/api/v4/consumption/6BA7B810-9DAD-11D1-80B4-00C04FD430C8/verify", "/api/v4/consumption/:uuid/verify"},
		{"activity code", "/api/v4/activities/SPRING2026/draw", "/api/v4/activities/:code/draw"},
		{"asset type code", "/api/v4/asset-types/gold-coin/grant", "/api/v4/asset-types/:code/grant"},
		{"feature flag key", "/api/v4/admin/feature-flags/new-draw-ui", "/api/v4/admin/feature-flags/:code"},
		{"settings category", "/api/v4/admin/settings/lottery", "/api/v4/admin/settings/:code"},
		{"code only after known prefix", "/api/v4/orders/export", "/api/v4/orders/export"},
		{"placeholder collapses to id", "/api/v4/orders/:orderId/cancel", "/api/v4/orders/:id/cancel"},
		{"typed placeholders survive", "/api/v4/activities/:code/draw", "/api/v4/activities/:code/draw"},
		{"multiple rules in one path", "/api/v4/activities/XMAS/prizes/42", "/api/v4/activities/:code/prizes/:id"},
		{"no identifiers untouched", "/api/v4/lottery/draw", "/api/v4/lottery/draw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestNormalizePathRandomUUID(t *testing.T) {
	path := "/api/v4/consumption/" + uuid.NewString() + "/verify"
	assert.Equal(t, "/api/v4/consumption/:uuid/verify", NormalizePath(path))
}
