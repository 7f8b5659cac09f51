package repositories_test

import (
	"github.com/sparkmatch/backend/internal/identity"
	"github.com/sparkmatch/backend/internal/repositories"
	"github.com/sparkmatch/backend/internal/session"
)

// The provider and session store consume the repositories through these
// interfaces; the assertions keep the wiring honest without the repository
// package depending on its consumers.
var (
	_ identity.AccountStore       = (*repositories.PostgresAccountRepository)(nil)
	_ identity.DeviceSessionStore = (*repositories.PostgresDeviceSessionRepository)(nil)
	_ session.ProfileStore        = (*repositories.PostgresProfileRepository)(nil)
)
