package main

import (
	"github.com/rs/zerolog/log"

	"screensolver/capture"
	mcpserver "screensolver/mcp-server"
	"screensolver/model"
	"screensolver/shared"
	"screensolver/workflow"
)

func main() {
	cfg, err := shared.FromEnv()
	if err != nil {
		log.Error().Err(err).Msg("load config failed")
		return
	}

	orc := workflow.New(model.NewClient(cfg), capture.NewGrabber(cfg))
	defer orc.Close()

	s := mcpserver.NewServer(orc)
	if err := s.Run(); err != nil {
		log.Error().Err(err).Msg("run server failed")
		return
	}
	log.Info().Msg("server stopped")
}
