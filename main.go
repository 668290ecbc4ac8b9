package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"screensolver/capture"
	"screensolver/model"
	"screensolver/shared"
	"screensolver/workflow"
)

// Interactive harness: drive the workflow from stdin without an MCP host.
// Commands: snap, solve, debug, delete <id>, reset, state, quit.
func main() {
	cfg, err := shared.FromEnv()
	if err != nil {
		log.Error().Err(err).Msg("load config failed")
		return
	}

	orc := workflow.New(model.NewClient(cfg), capture.NewGrabber(cfg))
	defer orc.Close()

	orc.Subscribe(func(ev workflow.Event) {
		switch ev.Kind {
		case workflow.EventExtracted:
			log.Info().Str("event", string(ev.Kind)).Str("type", string(ev.Problem.Type)).Msg(ev.Problem.Statement)
		case workflow.EventSolved, workflow.EventDebugSolved:
			fmt.Printf("--- %s ---\n%s\n", ev.Kind, ev.Solution.AnswerText())
			if ev.Solution.Reasoning != "" {
				fmt.Printf("reasoning: %s\n", ev.Solution.Reasoning)
			}
		case workflow.EventError, workflow.EventDebugError:
			log.Warn().Str("event", string(ev.Kind)).Str("kind", string(ev.ErrKind)).Msg(ev.Message)
		default:
			log.Info().Str("event", string(ev.Kind)).Msg("workflow event")
		}
	})

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "snap":
			c, err := orc.TakeCapture(context.Background())
			if err != nil {
				log.Error().Err(err).Msg("capture failed")
				continue
			}
			fmt.Printf("captured %s (%d queued)\n", c.ID, len(orc.Captures()))
		case "solve":
			orc.Solve()
		case "debug":
			orc.Debug()
		case "delete":
			orc.DeleteCapture(arg)
		case "reset":
			orc.Reset()
		case "state":
			fmt.Printf("phase: %s, captures: %d, debug captures: %d\n",
				orc.Phase(), len(orc.Captures()), len(orc.DebugCaptures()))
		case "quit", "exit":
			return
		case "":
		default:
			fmt.Println("commands: snap | solve | debug | delete <id> | reset | state | quit")
		}
	}
}
