// Package cli implements the churn-train command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/sibi-seeni/credit-churn-deploy/pkg/observability"
)

const (
	appName   = "churn-train"
	loggerKey = "logger"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute(ctx context.Context) {
	if err := NewApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// NewApp builds the application. Results go to out; logs go to logOut.
func NewApp(out, logOut io.Writer) *urfave.App {
	return &urfave.App{
		Name:            appName,
		Version:         fmt.Sprintf("%s (%s)", version, commit),
		Compiled:        time.Now(),
		HideHelpCommand: true,
		Usage:           "Train and inspect the customer churn model",
		Writer:          out,
		ErrWriter:       logOut,
		Flags: []urfave.Flag{
			debugFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			trainCmd,
			inspectCmd,
		},
		Before: func(c *urfave.Context) error {
			level := "info"
			if c.Bool(debugFlag.Name) {
				level = "debug"
			}
			c.App.Metadata = map[string]any{
				loggerKey: observability.InitLogger(observability.LogConfig{
					Output: logOut,
					Level:  level,
					Format: "text",
				}),
			}

			switch f := c.String(formatFlag.Name); f {
			case formatJSON, formatYAML:
			case "yml":
				return c.Set(formatFlag.Name, formatYAML)
			default:
				return fmt.Errorf("unsupported format %q", f)
			}
			return nil
		},
	}
}

func getLogger(c *urfave.Context) *slog.Logger {
	if l, ok := c.App.Metadata[loggerKey].(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// encode writes v in the selected format. YAML output reuses the JSON field
// names so both formats carry the same keys.
func encode(c *urfave.Context, v any) error {
	if c.String(formatFlag.Name) == formatYAML {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(c.App.Writer)
		defer enc.Close()
		return enc.Encode(generic)
	}
	e := json.NewEncoder(c.App.Writer)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
