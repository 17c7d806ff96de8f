// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/sharesathi/internal/clientdata"
	"github.com/aristath/sharesathi/internal/modules/settings"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Settings repository (needed by settings service and the kv snapshot store)
	container.SettingsRepo = settings.NewRepository(container.ConfigDB.Conn(), log)

	// Client data cache (Yahoo, NSE, BSE, news, insights)
	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	log.Info().Msg("All repositories initialized")
	return nil
}
