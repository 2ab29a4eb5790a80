package main

import (
	"github.com/aravhawk/openrank/cmd/openrank-cli/commands"
	"github.com/aravhawk/openrank/internal/telemetry"
	"github.com/aravhawk/openrank/lib/serviceutil"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(serviceutil.SignalContext())
}
