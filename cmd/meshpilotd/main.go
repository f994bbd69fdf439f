// Command meshpilotd wires the orchestrator's subsystems together and
// runs one agent turn against the remote modeling host, reading the
// user's natural-language request from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/kilnforge/meshpilot/core"
	"github.com/kilnforge/meshpilot/integration"
	"github.com/kilnforge/meshpilot/llm"
	"github.com/kilnforge/meshpilot/planner"
	"github.com/kilnforge/meshpilot/scheduler"
	"github.com/kilnforge/meshpilot/tools"
	"github.com/kilnforge/meshpilot/transport"
	"github.com/kilnforge/meshpilot/vectorstore"
)

const embeddingDimension = 384

func main() {
	hostAddr := flag.String("host", "127.0.0.1:9876", "TCP address of the remote modeling host")
	provider := flag.String("provider", "", "default LLM provider (anthropic, openai, gemini, bedrock); defaults to env or anthropic")
	configPath := flag.String("config", "", "optional JSON config file")
	redisURL := flag.String("redis", "", "optional Redis URL to cache knowledge-base query embeddings")
	flag.Parse()

	request := strings.Join(flag.Args(), " ")
	if request == "" {
		log.Fatal("usage: meshpilotd [flags] <natural-language request>")
	}

	cfg, err := core.NewConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := core.NewProductionLogger(cfg.Logging, cfg.Development, "meshpilot")

	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llmCfg := llm.ConfigFromEnv()
	if *provider != "" {
		llmCfg.DefaultProvider = *provider
	}
	gateway, err := llm.NewGateway(ctx, llmCfg, logger, &core.NoOpTelemetry{})
	if err != nil {
		log.Fatalf("llm gateway: %v", err)
	}

	store := vectorstore.NewStore(embeddingDimension)
	store.SetLogger(logger)

	var embedder vectorstore.Embedder = vectorstore.NewGatewayEmbedder(gateway.Embed, embeddingDimension)
	if *redisURL != "" {
		redisClient, err := core.NewRedisClient(core.RedisClientOptions{
			RedisURL:  *redisURL,
			Namespace: "meshpilot:embed",
			Logger:    logger,
		})
		if err != nil {
			log.Fatalf("redis embed cache: %v", err)
		}
		defer redisClient.Close()
		embedder = vectorstore.NewCachingEmbedder(embedder, redisClient)
	}

	mux := transport.NewMultiplexer(*hostAddr, logger)
	if err := mux.Connect(ctx); err != nil {
		log.Fatalf("connect to modeling host %s: %v", *hostAddr, err)
	}
	defer mux.Close()

	registry := integration.NewRegistry(mux, logger)

	dispatcher := tools.NewDispatcher(tools.DispatcherTools{
		DecomposeTask:        tools.NewDecomposeTaskTool(gateway, llmCfg.DefaultProvider, logger),
		SearchKnowledgeBase:  tools.NewSearchKnowledgeBaseTool(embedder, store, logger),
		GetSceneInfo:         tools.NewGetSceneInfoTool(mux),
		ExecuteBlenderCode:   tools.NewExecuteBlenderCodeTool(mux),
		AssetSearchAndImport: tools.NewAssetSearchAndImportTool(registry),
		AnalyzeImage:         tools.NewAnalyzeImageTool(gateway, logger),
		ValidateWithVision:   tools.NewValidateWithVisionTool(mux, gateway, logger),
		CreateAnimation:      tools.NewCreateAnimationTool(tools.NewExecuteBlenderCodeTool(mux)),
		FinishTask:           tools.NewFinishTaskTool(),
	})

	p := planner.NewPlanner(gateway, llmCfg.DefaultProvider, logger)
	sched := scheduler.NewScheduler(p, dispatcher, logger)

	response, state := sched.Run(ctx, request, nil)

	fmt.Println(response)
	if state.Finished {
		os.Exit(0)
	}
	os.Exit(1)
}
