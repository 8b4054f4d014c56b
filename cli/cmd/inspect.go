package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/cli/reader"
	"github.com/pithecene-io/joinery/cli/render"
	"github.com/pithecene-io/joinery/cli/tui"
	"github.com/pithecene-io/joinery/iox"
)

// InspectCommand returns the inspect command.
// Inspect summarizes one merged log without reconstructing examples.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize a merged log (header, checkpoint, payload counts)",
		ArgsUsage: "<merged-log>",
		Flags: append(TUIReadOnlyFlags(),
			&cli.IntFlag{Name: "limit", Usage: "Payloads listed in detail (0 for none)", Value: 20},
		),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("merged log path required", exitUsage)
	}
	path := c.Args().First()
	if c.Int("limit") < 0 {
		return cli.Exit("--limit must be >= 0", exitUsage)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer iox.DiscardClose(f)

	resp, err := reader.InspectLog(f, path, c.Int("limit"))
	if err != nil {
		return exitError(err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectLog, resp)
	}
	return r.Render(resp)
}
