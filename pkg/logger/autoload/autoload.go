// Package autoload initializes the global logger from the LOG-prefixed
// environment on import.
package autoload

import (
	configx "github.com/calplan/calplan/pkg/config"
	logx "github.com/calplan/calplan/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
