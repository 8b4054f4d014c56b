package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/cli/render"
	"github.com/pithecene-io/joinery/types"
)

// VersionResponse describes the binary and the log format it speaks.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	LogFormat uint32 `json:"log_format"`
}

// VersionCommand returns the version command. An empty commit falls back
// to the VCS revision stamped into the build.
func VersionCommand(_, commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			if c.Bool("tui") {
				return cli.Exit("--tui is not supported for version command", 1)
			}
			r, err := render.NewRenderer(c)
			if err != nil {
				return err
			}
			return r.Render(versionInfo(commit))
		},
	}
}

func versionInfo(commit string) VersionResponse {
	if commit == "" {
		commit = buildRevision()
	}
	return VersionResponse{
		Version:   types.Version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		LogFormat: types.LogFormatVersion,
	}
}

func buildRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return "unknown"
}
