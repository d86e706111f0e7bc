//go:build wireinject
// +build wireinject

package app

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/NethermindEth/wei/pkg/config"
)

// New 装配客户端运行时
func New(cfg *config.Config, logger log.Logger) (*App, func(), error) {
	panic(wire.Build(ProviderSet))
}
