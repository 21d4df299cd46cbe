package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bitmark-inc/logger"
	"github.com/urfave/cli"
)

type metadata struct {
	log     *logger.L
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	app := newApp()

	err := app.Run(os.Args)
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "tlbdump"
	app.Usage = "inspect bags of cells"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:  "log-dir",
			Value: "",
			Usage: " write log file to `DIR` [console only]",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "critical",
			Usage: " log `LEVEL` [trace|debug|info|warn|error|critical]",
		},
	}

	inputFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "file, f",
			Value: "",
			Usage: " read BOC from `FILE`",
		},
		cli.StringFlag{
			Name:  "hex, x",
			Value: "",
			Usage: " BOC as `HEX`",
		},
		cli.StringFlag{
			Name:  "base64, b",
			Value: "",
			Usage: " BOC as `BASE64`",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "decode",
			Usage:     "print the roots of a BOC",
			ArgsUsage: "\n   (* = one of file/hex/base64 is required)",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "type, t",
					Value: "",
					Usage: " print roots as type `EXPR`, e.g. \"HashmapE 32 Grams\" [raw dump]",
				},
			}, inputFlags...),
			Action: runDecode,
		},
		{
			Name:      "hash",
			Usage:     "print representation hashes of the roots of a BOC",
			ArgsUsage: "\n   (* = one of file/hex/base64 is required)",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "level, l",
					Value: -1,
					Usage: " hash of `LEVEL` [maximal level]",
				},
			}, inputFlags...),
			Action: runHash,
		},
		{
			Name:      "verify",
			Usage:     "check an ed25519 signature of the first root",
			ArgsUsage: "\n   (* = required)",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "key, k",
					Value: "",
					Usage: "*public `KEY` in hex",
				},
				cli.StringFlag{
					Name:  "signature, s",
					Value: "",
					Usage: "*`SIGNATURE` in hex",
				},
			}, inputFlags...),
			Action: runVerify,
		},
		{
			Name:      "store",
			Usage:     "put the roots of a BOC into a cell db",
			ArgsUsage: "\n   (* = required)",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "db, d",
					Value: "",
					Usage: "*cell db `DIR`",
				},
			}, inputFlags...),
			Action: runStore,
		},
		{
			Name:      "load",
			Usage:     "fetch a cell from a cell db",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "db, d",
					Value: "",
					Usage: "*cell db `DIR`",
				},
				cli.StringFlag{
					Name:  "hash",
					Value: "",
					Usage: "*representation `HASH` in hex",
				},
				cli.StringFlag{
					Name:  "type, t",
					Value: "",
					Usage: " print cell as type `EXPR` [raw dump]",
				},
				cli.BoolFlag{
					Name:  "boc",
					Usage: " print cell as hex BOC",
				},
			},
			Action: runLoad,
		},
		{
			Name:  "version",
			Usage: "display tlbdump version",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(c.App.Writer, "%s\n", version)
				return nil
			},
		},
	}

	app.Before = func(c *cli.Context) error {
		e := c.App.ErrWriter
		w := c.App.Writer
		verbose := c.GlobalBool("verbose")

		m := &metadata{
			verbose: verbose,
			e:       e,
			w:       w,
		}
		c.App.Metadata["config"] = m

		if "version" == c.Args().Get(0) {
			return nil
		}

		logging := logger.Configuration{
			Directory: c.GlobalString("log-dir"),
			File:      app.Name + ".log",
			Size:      1048576,
			Count:     10,
			Console:   "" == c.GlobalString("log-dir"),
			Levels: map[string]string{
				logger.DefaultTag: c.GlobalString("log-level"),
			},
		}
		if "" == logging.Directory {
			logging.Directory = os.TempDir()
		}

		if verbose {
			fmt.Fprintf(e, "log directory: %q\n", logging.Directory)
		}

		if err := logger.Initialise(logging); nil != err {
			return fmt.Errorf("logger setup failed with error: %s", err)
		}
		m.log = logger.New(app.Name)
		return nil
	}

	app.After = func(c *cli.Context) error {
		m, ok := c.App.Metadata["config"].(*metadata)
		if ok && nil != m.log {
			m.log.Flush()
			logger.Finalise()
		}
		return nil
	}

	return app
}
