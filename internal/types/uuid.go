package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex notif_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_NOTIFICATION      = "notif"
	UUID_PREFIX_ADMIN_ALERT       = "alert"
	UUID_PREFIX_PLAN_CHANGE_EVENT = "pce"
	UUID_PREFIX_REFERRAL_REWARD   = "reward"
)
