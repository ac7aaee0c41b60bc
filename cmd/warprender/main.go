// Command warprender renders content through a warp profile without the
// editor, writes starter configuration and lists the warps of a profile.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"warpcal/internal/config"
	"warpcal/internal/logging"
	"warpcal/internal/version"
)

const (
	flagConfig  = "config"
	flagDebug   = "debug"
	flagProfile = "profile"
	flagContent = "content"
	flagOut     = "out"
	flagWidth   = "width"
	flagHeight  = "height"
	flagKind    = "kind"
	flagForce   = "force"
)

func main() {
	app := &cli.App{
		Name:    "warprender",
		Usage:   "render and inspect projector warp profiles",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   config.FileName,
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			level := "warn"
			if c.Bool(flagDebug) {
				level = "debug"
			}
			logger, err := logging.New(level)
			if err != nil {
				return err
			}
			logging.SetLogger(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "render content through every warp of a profile into a PNG",
				UsageText: "warprender render --profile warps.xml [--content image.png] --out frame.png",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagProfile, Aliases: []string{"p"}, Usage: "warp profile `FILE`"},
					&cli.StringFlag{Name: flagContent, Usage: "content image; a test pattern when empty"},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Required: true, Usage: "output PNG `FILE`"},
					&cli.IntFlag{Name: flagWidth, Usage: "output width, defaults to the widest warp"},
					&cli.IntFlag{Name: flagHeight, Usage: "output height, defaults to the tallest warp"},
				},
				Action: renderAction,
			},
			{
				Name:  "init",
				Usage: "write a default configuration and a profile holding one warp",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagProfile, Aliases: []string{"p"}, Usage: "warp profile `FILE`, defaults to the configured one"},
					&cli.StringFlag{Name: flagKind, Usage: "kind of the initial warp, defaults to the configured one"},
					&cli.BoolFlag{Name: flagForce, Aliases: []string{"f"}, Usage: "overwrite existing files"},
				},
				Action: initAction,
			},
			{
				Name:      "inspect",
				Usage:     "list the warps of a profile",
				ArgsUsage: "[profile]",
				Action:    inspectAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
