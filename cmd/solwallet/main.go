// solwallet is a self-custody wallet for Solana networks.
//
// Usage:
//
//	solwallet init                 Create or restore the wallet
//	solwallet balance              Show balances of the active account
//	solwallet send --to ADDR --amount 1.5
//	solwallet watch                Follow balance changes until interrupted
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/solwallet/config"
	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/node"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// cfg is loaded once in the app's Before hook.
var cfg *config.Config

func main() {
	app := &cli.App{
		Name:  "solwallet",
		Usage: "self-custody wallet for Solana networks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the config file (default <datadir>/" + config.ConfigFileName + ")",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "network",
				Usage: "override the network for this command (main, test, dev)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level",
			},
		},
		Before: setup,
		After: func(*cli.Context) error {
			log.Close()
			return nil
		},
		Commands: []*cli.Command{
			&initCmd,
			&mnemonicCmd,
			&passwdCmd,
			&accountCmd,
			&networkCmd,
			&balanceCmd,
			&tokenCmd,
			&feeCmd,
			&sendCmd,
			&airdropCmd,
			&historyCmd,
			&bookCmd,
			&watchCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func setup(c *cli.Context) error {
	var err error
	cfg, err = config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if s := c.String("network"); s != "" {
		if cfg.Network, err = types.ParseNetwork(s); err != nil {
			return err
		}
	}
	level := cfg.Log.Level
	if s := c.String("log-level"); s != "" {
		if !log.ValidLevel(s) {
			return fmt.Errorf("unknown log level %q", s)
		}
		level = s
	}
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(cfg.LogsDir(), "solwallet.log")
	}
	if err := log.Init(level, cfg.Log.JSON, logFile); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	return nil
}

// openNode opens the wallet and, when metrics.addr is set, serves
// /metrics. The returned func stops both.
func openNode() (*node.Node, func(), error) {
	reg := prometheus.NewRegistry()
	n, err := node.Open(cfg, reg)
	if err != nil {
		return nil, nil, err
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Metrics.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("Metrics server failed")
			}
		}()
		log.Metrics.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving metrics")
	}

	cleanup := func() {
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = srv.Shutdown(ctx)
			cancel()
		}
		n.Stop()
	}
	return n, cleanup, nil
}

// readPassword prompts on stderr and reads without echo. When stdin is not
// a terminal a plain line is read, so passwords can be piped in.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	if !term.IsTerminal(int(syscall.Stdin)) {
		line, err := stdinLine()
		return []byte(line), err
	}
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

// readNewPassword asks twice and checks the copies match.
func readNewPassword() ([]byte, error) {
	pw, err := readPassword("New password: ")
	if err != nil {
		return nil, err
	}
	again, err := readPassword("Repeat password: ")
	if err != nil {
		return nil, err
	}
	if string(pw) != string(again) {
		return nil, fmt.Errorf("%w: passwords do not match", walleterr.ErrValidation)
	}
	return pw, nil
}

var stdin = bufio.NewReader(os.Stdin)

func stdinLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt+" [y/N]: ")
	line, err := stdinLine()
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", walleterr.Reason(err))
	if walleterr.Kind(err) == nil || errors.Is(err, walleterr.ErrTransport) {
		fmt.Fprintf(os.Stderr, "  %v\n", err)
	}
	os.Exit(1)
}
