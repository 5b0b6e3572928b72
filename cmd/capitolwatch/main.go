package main

import (
	"capitolwatch-backend/cmd/capitolwatch/commands"
	"capitolwatch-backend/lib/serviceutil"
	"capitolwatch-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "capitolwatch")
	telemetry.InitSlog(false)
	telemetry.InstrumentPerfStats(ctx)
	commands.ExecuteContext(ctx)
}
