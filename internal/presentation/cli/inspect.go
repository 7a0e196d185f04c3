package cli

import (
	"errors"
	"os"

	urfave "github.com/urfave/cli/v2"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/artifact"
)

var (
	dirFlag = &urfave.StringFlag{
		Name:  "dir",
		Usage: "Artifact directory to inspect",
		Value: "artifacts",
	}

	inspectCmd = &urfave.Command{
		Name:   "inspect",
		Usage:  "Validate an artifact set and print its manifest and metrics",
		Flags:  []urfave.Flag{dirFlag},
		Action: cmdInspect,
	}
)

type inspection struct {
	Report   *model.TrainingReport `json:"report,omitempty"`
	Manifest model.Manifest        `json:"manifest"`
	Classes  map[string][]string   `json:"classes"`
	Features []string              `json:"features"`
}

func cmdInspect(c *urfave.Context) error {
	dir := c.String(dirFlag.Name)

	set, err := artifact.Load(dir)
	if err != nil {
		return err
	}

	out := inspection{
		Manifest: set.Manifest(),
		Features: set.Schema().Columns(),
		Classes:  make(map[string][]string, set.Registry().Len()),
	}
	for _, col := range set.Registry().Columns() {
		enc, _ := set.Registry().Encoding(col)
		out.Classes[col] = enc.Classes()
	}

	report, err := artifact.ReadReport(dir)
	switch {
	case err == nil:
		out.Report = &report
	case errors.Is(err, os.ErrNotExist):
		getLogger(c).Warn("artifact set has no metrics.json")
	default:
		return err
	}

	return encode(c, out)
}
