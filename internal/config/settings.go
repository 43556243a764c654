package config

import (
	"github.com/spf13/viper"

	"github.com/bioforge/organclock/pkg/errors"
)

// Settings collects the tunable pipeline parameters. Precedence:
// flags > ORGANCLOCK_* environment > settings file > defaults.
type Settings struct {
	// Input documents.
	PathsFile  string `mapstructure:"paths_file"`
	PanelsFile string `mapstructure:"panels_file"`

	// Output locations.
	ModelsDir string `mapstructure:"models_dir"`
	OutputDir string `mapstructure:"output_dir"`

	// Preprocessing.
	AgeColumn        string  `mapstructure:"age_column"`
	MinAge           float64 `mapstructure:"min_age"`
	MaxAge           float64 `mapstructure:"max_age"`
	MissingThreshold float64 `mapstructure:"missing_threshold"`
	ImputeStrategy   string  `mapstructure:"impute_strategy"`
	OutlierMethod    string  `mapstructure:"outlier_method"`
	OutlierThreshold float64 `mapstructure:"outlier_threshold"`

	// Splitting and scaling.
	TrainFrac    float64 `mapstructure:"train_frac"`
	ValFrac      float64 `mapstructure:"val_frac"`
	StratifyBins int     `mapstructure:"stratify_bins"`
	Scaler       string  `mapstructure:"scaler"`
	Seed         int64   `mapstructure:"seed"`

	// Models.
	LinearType       string  `mapstructure:"linear_type"`
	Alpha            float64 `mapstructure:"alpha"`
	L1Ratio          float64 `mapstructure:"l1_ratio"`
	NonlinearBackend string  `mapstructure:"nonlinear_backend"`

	// Analysis and clustering.
	AdvancedThreshold float64 `mapstructure:"advanced_threshold"`
	MinCooccurrence   int     `mapstructure:"min_cooccurrence"`
	ClusterMethod     string  `mapstructure:"cluster_method"`
	ClusterK          int     `mapstructure:"cluster_k"`
	DBSCANEps         float64 `mapstructure:"dbscan_eps"`
	DBSCANMinSamples  int     `mapstructure:"dbscan_min_samples"`
	PCAComponents     int     `mapstructure:"pca_components"`
}

// LoadSettings reads pipeline settings from an optional YAML file plus
// ORGANCLOCK_* environment variables, with sensible defaults everywhere.
func LoadSettings(settingsFile string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("ORGANCLOCK")
	v.AutomaticEnv()

	v.SetDefault("paths_file", "config/paths.yaml")
	v.SetDefault("panels_file", "config/organ_panels.yaml")
	v.SetDefault("models_dir", "models")
	v.SetDefault("output_dir", "output")

	v.SetDefault("age_column", "RIDAGEYR")
	v.SetDefault("min_age", 18.0)
	v.SetDefault("max_age", 80.0)
	v.SetDefault("missing_threshold", 0.5)
	v.SetDefault("impute_strategy", "median")
	v.SetDefault("outlier_method", "")
	v.SetDefault("outlier_threshold", 3.0)

	v.SetDefault("train_frac", 0.6)
	v.SetDefault("val_frac", 0.2)
	v.SetDefault("stratify_bins", 5)
	v.SetDefault("scaler", "standard")
	v.SetDefault("seed", int64(42))

	v.SetDefault("linear_type", "linear")
	v.SetDefault("alpha", 0.1)
	v.SetDefault("l1_ratio", 0.5)
	v.SetDefault("nonlinear_backend", "hist_gb")

	v.SetDefault("advanced_threshold", 5.0)
	v.SetDefault("min_cooccurrence", 10)
	v.SetDefault("cluster_method", "kmeans")
	v.SetDefault("cluster_k", 4)
	v.SetDefault("dbscan_eps", 2.0)
	v.SetDefault("dbscan_min_samples", 10)
	v.SetDefault("pca_components", 2)

	if settingsFile != "" {
		v.SetConfigFile(settingsFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading settings file %s", settingsFile)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "unmarshaling settings")
	}
	return &s, nil
}
