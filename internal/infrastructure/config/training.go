package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Training holds the training pipeline settings. Zero-valued fields in a YAML
// file keep their defaults.
type Training struct {
	Data               string               `yaml:"data"`
	Table              string               `yaml:"table"`
	OutputDir          string               `yaml:"output_dir"`
	LabelColumn        string               `yaml:"label_column"`
	Scoring            string               `yaml:"scoring"`
	LabelMap           map[string]int       `yaml:"label_map"`
	Grid               map[string][]float64 `yaml:"grid"`
	IdentifierColumns  []string             `yaml:"identifier_columns"`
	CategoricalColumns []string             `yaml:"categorical_columns"`
	KafkaBrokers       []string             `yaml:"kafka_brokers"`
	EventTopic         string               `yaml:"event_topic"`
	TestSize           float64              `yaml:"test_size"`
	Seed               int64                `yaml:"seed"`
	Folds              int                  `yaml:"folds"`
	Workers            int                  `yaml:"workers"`
	PlotROC            bool                 `yaml:"plot_roc"`
}

// DefaultTraining returns the settings the churn model was originally trained with.
func DefaultTraining() Training {
	return Training{
		Data:              "data/BankChurners.csv",
		OutputDir:         "artifacts",
		IdentifierColumns: []string{"CLIENTNUM"},
		LabelColumn:       "Attrition_Flag",
		LabelMap: map[string]int{
			"Attrited Customer": 1,
			"Existing Customer": 0,
		},
		CategoricalColumns: []string{
			"Gender",
			"Education_Level",
			"Marital_Status",
			"Income_Category",
			"Card_Category",
		},
		TestSize: 0.2,
		Seed:     16,
		Folds:    5,
		Workers:  runtime.NumCPU(),
		Scoring:  "accuracy",
		Grid: map[string][]float64{
			"n_estimators":  {100, 300, 500},
			"max_depth":     {3, 5, 7},
			"learning_rate": {0.01, 0.05, 0.1},
		},
		EventTopic: "churn.models",
	}
}

// LoadTraining reads a YAML file over the defaults. An empty path returns the defaults.
func LoadTraining(path string) (Training, error) {
	cfg := DefaultTraining()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Training{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var file Training
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Training{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.merge(file)

	if err := cfg.Validate(); err != nil {
		return Training{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (t *Training) merge(o Training) {
	if o.Data != "" {
		t.Data = o.Data
	}
	if o.Table != "" {
		t.Table = o.Table
	}
	if o.OutputDir != "" {
		t.OutputDir = o.OutputDir
	}
	if o.LabelColumn != "" {
		t.LabelColumn = o.LabelColumn
	}
	if o.Scoring != "" {
		t.Scoring = o.Scoring
	}
	if o.EventTopic != "" {
		t.EventTopic = o.EventTopic
	}
	if o.LabelMap != nil {
		t.LabelMap = o.LabelMap
	}
	if o.Grid != nil {
		t.Grid = o.Grid
	}
	if o.IdentifierColumns != nil {
		t.IdentifierColumns = o.IdentifierColumns
	}
	if o.CategoricalColumns != nil {
		t.CategoricalColumns = o.CategoricalColumns
	}
	if o.KafkaBrokers != nil {
		t.KafkaBrokers = o.KafkaBrokers
	}
	if o.TestSize != 0 {
		t.TestSize = o.TestSize
	}
	if o.Seed != 0 {
		t.Seed = o.Seed
	}
	if o.Folds != 0 {
		t.Folds = o.Folds
	}
	if o.Workers != 0 {
		t.Workers = o.Workers
	}
	if o.PlotROC {
		t.PlotROC = true
	}
}

// Validate checks the settings are usable before any data is read.
func (t Training) Validate() error {
	if t.Data == "" {
		return errors.New("data source is required")
	}
	if t.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if t.LabelColumn == "" {
		return errors.New("label column is required")
	}
	if len(t.LabelMap) == 0 {
		return errors.New("label map is empty")
	}
	for label, v := range t.LabelMap {
		if v != 0 && v != 1 {
			return fmt.Errorf("label %q maps to %d, want 0 or 1", label, v)
		}
	}
	if t.TestSize <= 0 || t.TestSize >= 1 {
		return fmt.Errorf("test size must be in (0, 1), got %g", t.TestSize)
	}
	if t.Folds < 2 {
		return fmt.Errorf("folds must be at least 2, got %d", t.Folds)
	}
	if t.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", t.Workers)
	}
	seen := make(map[string]struct{}, len(t.CategoricalColumns))
	for _, c := range t.CategoricalColumns {
		if c == "" {
			return errors.New("blank categorical column name")
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate categorical column %q", c)
		}
		if c == t.LabelColumn {
			return fmt.Errorf("label column %q cannot be categorical", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}
