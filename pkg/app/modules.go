package app

// Standard module set. Each package registers itself in init.
import (
	_ "github.com/flemzord/mindcanvas/internal/backfill"
	_ "github.com/flemzord/mindcanvas/internal/gateway"
	_ "github.com/flemzord/mindcanvas/internal/retrieval"
	_ "github.com/flemzord/mindcanvas/internal/telemetry"
	_ "github.com/flemzord/mindcanvas/modules/provider/anthropic"
	_ "github.com/flemzord/mindcanvas/modules/provider/gemini"
	_ "github.com/flemzord/mindcanvas/modules/provider/openai_compatible"
	_ "github.com/flemzord/mindcanvas/modules/store/postgres"
	_ "github.com/flemzord/mindcanvas/modules/store/sqlite"
)
