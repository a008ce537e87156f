// Command ats-console wires the session-lifecycle client subsystem
// (internal/olcclient) to a process entrypoint: parse flags, prepare the
// server, and expose a single-shot session run. The interactive REPL loop,
// command tokenization, and result-file rendering are out of scope
// and are not implemented here; runOnce stands in for "an
// external caller drives a command".
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/device-infra-sub009/internal/consoleinfo"
	"github.com/google/device-infra-sub009/internal/olcclient"
	"github.com/henderiw/logger/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "ats-console",
		Short: "Operator console driving a remote OLC server to run xTS sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), v)
		},
	}
	consoleinfo.RegisterFlags(cmd, v)
	return cmd
}

func runOnce(ctx context.Context, v *viper.Viper) error {
	logger := log.NewLogger(&log.HandlerOptions{Name: "ats-console", AddSource: false})

	info := consoleinfo.New(v)
	if !info.EnableOlcServer {
		logger.Info("enable_ats_console_olc_server is false; nothing to do")
		return nil
	}

	endpoint := olcclient.ServerEndpoint{Host: "127.0.0.1", Port: info.OlcServerPort}
	channel := olcclient.NewServerChannel(endpoint, logger)
	defer channel.Close()

	preparer := olcclient.NewPreparer(olcclient.PreparerConfig{
		Channel:          channel,
		ClientId:         info.ClientId(),
		ServerBinaryPath: info.OlcServerPath,
		ServerArgs:       serverArgs(info),
		AlwaysRestart:    info.AlwaysRestartOlcServer,
		Logger:           logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	installShutdownHook(channel, info.ClientId(), logger)

	if err := preparer.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare olc server: %w", err)
	}

	if info.EnableOlcServerLog {
		streamer := olcclient.NewLogStreamer(preparer, channel, info.ClientId(), info.OlcServerMinLogRecordImportance, os.Stderr, logger)
		if err := streamer.Enable(ctx, true); err != nil {
			logger.Warn("failed to enable log streaming", "error", err)
		}
	}

	stub := olcclient.NewSessionStub(channel, "", "", olcclient.NewRawCodec("olc.plugin.raw"), olcclient.RealClock{}, olcclient.RealSleeper{}, logger)
	_, err := stub.RunSession(ctx, "list_devices_command", nil)
	if err != nil && olcclient.KindOf(err) != olcclient.ErrorKindNoPluginOutput {
		return fmt.Errorf("run session: %w", err)
	}
	return nil
}

func serverArgs(info *consoleinfo.ConsoleInfo) []string {
	return []string{
		fmt.Sprintf("--use_tf_retry=%t", info.UseTfRetry),
	}
}

func installShutdownHook(channel *olcclient.ServerChannel, clientID string, logger *slog.Logger) {
	hook := olcclient.ShutdownHook(channel, clientID, logger)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		hook()
	}()
}
