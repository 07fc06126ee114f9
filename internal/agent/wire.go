//go:build wireinject
// +build wireinject

package agent

import (
	"github.com/google/wire"

	"github.com/strct-org/minicp/internal/config"
)

func InitializeAgent(cfg *config.Config) (*Agent, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
