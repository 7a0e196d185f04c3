package cli

import (
	"log/slog"

	urfave "github.com/urfave/cli/v2"

	"github.com/sibi-seeni/credit-churn-deploy/internal/application/dto"
	"github.com/sibi-seeni/credit-churn-deploy/internal/application/usecase"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/port"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/artifact"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/config"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/dataset"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/gbt"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/kafka"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/report"
	pkgkafka "github.com/sibi-seeni/credit-churn-deploy/pkg/kafka"
	"github.com/sibi-seeni/credit-churn-deploy/pkg/observability"
)

var (
	configFlag = &urfave.StringFlag{
		Name:  "config",
		Usage: "YAML training config; flags override its values (optional)",
	}

	dataFlag = &urfave.StringFlag{
		Name:  "data",
		Usage: "CSV path, postgres:// URL or sqlite://path",
	}

	tableFlag = &urfave.StringFlag{
		Name:  "table",
		Usage: "Table to read for postgres:// and sqlite:// sources",
	}

	outFlag = &urfave.StringFlag{
		Name:  "out",
		Usage: "Artifact directory",
	}

	seedFlag = &urfave.Int64Flag{
		Name:  "seed",
		Usage: "Seed for the train/test split",
	}

	testSizeFlag = &urfave.Float64Flag{
		Name:  "test-size",
		Usage: "Held-out fraction in (0, 1)",
	}

	foldsFlag = &urfave.IntFlag{
		Name:  "folds",
		Usage: "Cross-validation folds",
	}

	workersFlag = &urfave.IntFlag{
		Name:  "workers",
		Usage: "Concurrent grid search fits (default: number of CPUs)",
	}

	plotFlag = &urfave.BoolFlag{
		Name:  "plot",
		Usage: "Write a held-out ROC curve to roc.png",
	}

	kafkaBrokersFlag = &urfave.StringFlag{
		Name:  "kafka-brokers",
		Usage: "Comma separated brokers to announce the trained model to (optional)",
	}

	trainDebugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs, including grid search progress",
	}

	trainCmd = &urfave.Command{
		Name:  "train",
		Usage: "Fit the churn model and write the artifact set",
		Flags: []urfave.Flag{
			configFlag,
			dataFlag,
			tableFlag,
			outFlag,
			seedFlag,
			testSizeFlag,
			foldsFlag,
			workersFlag,
			plotFlag,
			kafkaBrokersFlag,
			trainDebugFlag,
		},
		Before: func(c *urfave.Context) error {
			if c.Bool(trainDebugFlag.Name) {
				c.App.Metadata[loggerKey] = observability.InitLogger(observability.LogConfig{
					Output: c.App.ErrWriter,
					Level:  "debug",
					Format: "text",
				})
			}
			return nil
		},
		Action: cmdTrain,
	}
)

func trainingConfig(c *urfave.Context) (config.Training, error) {
	cfg, err := config.LoadTraining(c.String(configFlag.Name))
	if err != nil {
		return config.Training{}, err
	}

	if c.IsSet(dataFlag.Name) {
		cfg.Data = c.String(dataFlag.Name)
	}
	if c.IsSet(tableFlag.Name) {
		cfg.Table = c.String(tableFlag.Name)
	}
	if c.IsSet(outFlag.Name) {
		cfg.OutputDir = c.String(outFlag.Name)
	}
	if c.IsSet(seedFlag.Name) {
		cfg.Seed = c.Int64(seedFlag.Name)
	}
	if c.IsSet(testSizeFlag.Name) {
		cfg.TestSize = c.Float64(testSizeFlag.Name)
	}
	if c.IsSet(foldsFlag.Name) {
		cfg.Folds = c.Int(foldsFlag.Name)
	}
	if c.IsSet(workersFlag.Name) {
		cfg.Workers = c.Int(workersFlag.Name)
	}
	if c.IsSet(plotFlag.Name) {
		cfg.PlotROC = c.Bool(plotFlag.Name)
	}
	if c.IsSet(kafkaBrokersFlag.Name) {
		cfg.KafkaBrokers = pkgkafka.ParseBrokers(c.String(kafkaBrokersFlag.Name))
	}

	return cfg, cfg.Validate()
}

func cmdTrain(c *urfave.Context) error {
	logger := getLogger(c)

	cfg, err := trainingConfig(c)
	if err != nil {
		return err
	}

	source, err := dataset.Open(cfg.Data, cfg.Table, logger)
	if err != nil {
		return err
	}

	fitter := gbt.NewSearcher(
		gbt.WithFolds(cfg.Folds),
		gbt.WithWorkers(cfg.Workers),
		gbt.WithScoring(cfg.Scoring),
		gbt.WithLogger(logger),
	)

	var renderer port.DiagnosticRenderer
	if cfg.PlotROC {
		renderer = report.NewROCRenderer()
	}

	var publisher port.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := pkgkafka.NewProducer(pkgkafka.Config{Brokers: cfg.KafkaBrokers, AutoCreateTopics: true})
		defer producer.Close()
		publisher = kafka.NewPublisher(producer, cfg.EventTopic, appName, logger)
	}

	uc := usecase.NewTrainModel(source, fitter, artifact.NewStore(cfg.OutputDir, logger), renderer, publisher, logger)

	logger.Info("training started",
		slog.String("data", source.Describe()),
		slog.String("out", cfg.OutputDir),
		slog.Int("folds", cfg.Folds),
		slog.Int("workers", cfg.Workers),
	)
	resp, err := uc.Execute(c.Context, dto.TrainModelRequest{
		LabelMap:           cfg.LabelMap,
		Grid:               cfg.Grid,
		LabelColumn:        cfg.LabelColumn,
		Scoring:            cfg.Scoring,
		IdentifierColumns:  cfg.IdentifierColumns,
		CategoricalColumns: cfg.CategoricalColumns,
		TestSize:           cfg.TestSize,
		Seed:               cfg.Seed,
		Folds:              cfg.Folds,
		PlotROC:            cfg.PlotROC,
	})
	if err != nil {
		return err
	}

	logger.Info("training finished",
		slog.String("artifact_set_id", resp.ArtifactSetID.String()),
		slog.Float64("best_cv_score", resp.BestScore),
		slog.Float64("held_out_accuracy", resp.HeldOut.Accuracy),
	)
	return encode(c, resp)
}
