package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"

	"pulsedec/pkg/app"
	"pulsedec/pkg/app/config"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/source"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "Decoder for pulse encoded text messages",
		Version: app.VERSION,
		Description: "Decode text messages from a sampled signal and publish the frames to mqtt and the web service." +
			"\n manchester: amplitude samples (one per line) are captured by a trigger and decoded by their edges" +
			"\n sync:       '0'/'1' symbols are compacted and framed by a sync pattern and a length byte",
		UsageText: "pulsedec [--config <file>] [--log standard|debug|trace] [--protocol manchester|sync] [command]" +
			"\n\nEXAMPLE:" +
			"\n\tstart the decoder service and use the configuration file pulsedec.yaml" +
			"\n\t\tpulsedec --config /opt/womat/pulsedec.yaml" +
			"\n\tdecode a recorded symbol file" +
			"\n\t\tpulsedec --protocol sync decode capture.txt",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
			&cli.StringFlag{Name: "protocol", Aliases: []string{"p"}, Destination: &cfg.Flag.Protocol, Usage: "`PROTOCOL` overrides the configured protocol (manchester|sync)"},
		},
		Action: func(ctx *cli.Context) error {
			return run(cfg)
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the decoder service on the configured input (default)",
				Action: func(ctx *cli.Context) error {
					return run(cfg)
				},
			},
			{
				Name:      "decode",
				Usage:     "decode a recorded file (or stdin) and print the frames as json lines",
				ArgsUsage: "[FILE]",
				Action: func(ctx *cli.Context) error {
					return decodeFile(cfg, ctx.Args().First())
				},
			},
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
}

// loadConfig loads the configuration and initializes the debug log.
// The returned function closes the debug file.
func loadConfig(cfg *config.Config) (func(), error) {
	if err := cfg.LoadConfig(); err != nil {
		return func() {}, err
	}

	debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
	return func() {
		debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
		_ = cfg.Debug.File.Close()
	}, nil
}

// run starts the decoder service and waits for an exit signal or the end of the input.
func run(cfg *config.Config) error {
	closeLog, err := loadConfig(cfg)
	defer closeLog()
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		debug.InfoLog.Printf("closing app %s", app.Version())
		if err := a.Close(); err != nil {
			debug.ErrorLog.Print(err)
		}
	}()

	debug.InfoLog.Printf("starting app %s", app.Version())
	if err = a.Run(); err != nil {
		return err
	}

	// capture exit signals to ensure resources are released on exit.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// wait for am os.Interrupt signal (CTRL C) or the end of the input
	select {
	case sig := <-quit:
		debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
	case <-a.Shutdown():
		debug.InfoLog.Print("input closed. Exiting...")
	}

	return nil
}

// printer writes every frame as json line.
type printer struct {
	enc *json.Encoder
}

func (p printer) HandleFrame(f decoder.Frame) {
	if err := p.enc.Encode(f); err != nil {
		debug.ErrorLog.Printf("writing frame: %v", err)
	}
}

func (p printer) HandleError(err error) {
	debug.ErrorLog.Printf("decoding error: %v", err)
}

// decodeFile decodes a recorded file and prints the frames to stdout.
// An empty name or "-" reads stdin.
func decodeFile(cfg *config.Config, name string) error {
	// decode doesn't require a configuration file
	if _, err := os.Stat(cfg.Flag.ConfigFile); err != nil && cfg.Flag.ConfigFile == defaultConfigFile {
		cfg.Flag.ConfigFile = ""
	}

	closeLog, err := loadConfig(cfg)
	defer closeLog()
	if err != nil {
		return err
	}

	p, mc, sc, err := cfg.Decoder()
	if err != nil {
		return err
	}

	dec, err := decoder.New(p, mc, sc)
	if err != nil {
		return err
	}

	var r io.ReadCloser = io.NopCloser(os.Stdin)
	if name != "" && name != "-" {
		if r, err = source.Open(source.Config{Kind: source.KindFile, Device: name}); err != nil {
			return fmt.Errorf("opening %q: %w", name, err)
		}
	}
	defer func() { _ = r.Close() }()

	var feed decoder.Feed = source.NewLineFeed(r)
	if p == decoder.ProtocolSync {
		feed = source.NewChunkFeed(r, cfg.Input.ChunkSize)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err = decoder.Run(ctx, feed, dec, printer{enc: json.NewEncoder(os.Stdout)}); err != nil {
		return err
	}

	c := dec.Counters()
	debug.InfoLog.Printf("%v units, %v malformed, %v captures, %v frames, %v errors",
		c.Units.Load(), c.Malformed.Load(), c.Captures.Load(), c.Frames.Load(), c.Errors.Load())
	return nil
}
