package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/agentdash/internal/actionclient"
	"github.com/g960059/agentdash/internal/api"
	"github.com/g960059/agentdash/internal/checkpoint"
	"github.com/g960059/agentdash/internal/config"
	"github.com/g960059/agentdash/internal/dashboard"
	"github.com/g960059/agentdash/internal/reconcile"
	"github.com/g960059/agentdash/internal/stream"
)

func main() {
	cfg := config.DefaultConfig()
	flag.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "daemon base URL")
	flag.StringVar(&cfg.AgentID, "agent", cfg.AgentID, "restrict the stream to one agent")
	flag.StringVar(&cfg.CheckpointPath, "checkpoints", cfg.CheckpointPath, "SQLite path for resume cursors")
	flag.DurationVar(&cfg.BackoffBase, "backoff-base", cfg.BackoffBase, "initial reconnect delay")
	flag.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "reconnect delay cap")
	fresh := flag.Bool("fresh", false, "ignore the saved cursor and replay from the beginning")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *fresh); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config, fresh bool) error {
	ckpt, err := checkpoint.Open(ctx, cfg.CheckpointPath)
	if err != nil {
		return err
	}
	defer ckpt.Close() //nolint:errcheck

	cursor := ""
	if !fresh {
		cursor, err = ckpt.Load(ctx, cfg.Endpoint, cfg.AgentID)
		if err != nil && !errors.Is(err, checkpoint.ErrNotFound) {
			return err
		}
	}

	client := actionclient.New(cfg.Endpoint).WithUnaryTimeout(cfg.UnaryTimeout)

	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}
	fwd := dashboard.NewForwarder(send)
	store := reconcile.NewStore(fwd)

	sup := stream.New(stream.Config{
		URL:          cfg.Endpoint + "/v1/stream",
		AgentID:      cfg.AgentID,
		ResumeCursor: cursor,
		BackoffBase:  cfg.BackoffBase,
		BackoffMax:   cfg.BackoffMax,
		OnError:      fwd.ForwardError,
	})
	sup.On(api.KindTurnCreated, store.Confirm)
	sup.On(api.KindTurnUpdated, store.Confirm)
	for _, kind := range []string{api.KindStateTransition, api.KindCardRefresh, api.KindSessionEnded, api.KindAgentEnded} {
		sup.On(kind, fwd.ForwardEvent)
	}
	sup.OnStateChange(fwd.ForwardState)

	program = tea.NewProgram(dashboard.New(sup, store, client), tea.WithAltScreen(), tea.WithContext(ctx))

	if err := sup.Connect(ctx); err != nil {
		return err
	}

	_, runErr := program.Run()
	sup.Disconnect()

	saveCtx, saveCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer saveCancel()
	if err := ckpt.Save(saveCtx, cfg.Endpoint, cfg.AgentID, sup.Cursor()); err != nil {
		logErr("save checkpoint", err)
	}
	return runErr
}

func logErr(scope string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "agentdash: %s: %v\n", scope, err)
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "agentdash: %v\n", err)
	os.Exit(1)
}
