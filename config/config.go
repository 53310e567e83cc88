// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/gorse-io/userknn/model"
	"github.com/gorse-io/userknn/model/ranking"
	"github.com/gorse-io/userknn/storage"
)

// Config is the configuration for the command line.
type Config struct {
	Data   DataConfig   `mapstructure:"data"`
	Model  ModelConfig  `mapstructure:"model"`
	Output OutputConfig `mapstructure:"output"`
}

// DataConfig is the configuration for data loading.
type DataConfig struct {
	Dataset   string `mapstructure:"dataset"`    // built-in dataset, ignored when train_path is set
	TrainPath string `mapstructure:"train_path"` // train feedback file
	TestPath  string `mapstructure:"test_path"`  // test feedback file
	Separator string `mapstructure:"separator"`  // column separator of the feedback files
	HasHeader bool   `mapstructure:"has_header"` // skip the first line of the feedback files
}

// ModelConfig is the configuration for the recommendation model.
type ModelConfig struct {
	Similarity   string `mapstructure:"similarity"`    // similarity metric
	KNeighbors   int    `mapstructure:"k_neighbors"`   // neighborhood size, 0 = floor(sqrt(#users))
	RankLength   int    `mapstructure:"rank_length"`   // length of the ranked list per user
	SimilarFirst bool   `mapstructure:"similar_first"` // rank by the neighborhood of the user
	Binarize     bool   `mapstructure:"binarize"`      // treat every feedback as rating 1
	FitJobs      int    `mapstructure:"fit_jobs"`      // number of fit jobs
	TopK         int    `mapstructure:"top_k"`         // evaluate top k recommendations
}

// OutputConfig is the configuration for ranking sinks.
type OutputConfig struct {
	RankingPath string `mapstructure:"ranking_path"` // ranking TSV file
	Database    string `mapstructure:"database"`     // ranking database, e.g. sqlite://userknn.db
	ModelPath   string `mapstructure:"model_path"`   // fitted model dump
}

// GetParams returns the hyper-parameters of the model section.
func (config *ModelConfig) GetParams() model.Params {
	return model.Params{
		model.Similarity:   config.Similarity,
		model.KNeighbors:   config.KNeighbors,
		model.RankLength:   config.RankLength,
		model.SimilarFirst: config.SimilarFirst,
		model.Binarize:     config.Binarize,
	}
}

// GetFitConfig returns the fit configuration of the model section.
func (config *ModelConfig) GetFitConfig() *ranking.FitConfig {
	return ranking.NewFitConfig().SetJobs(config.FitJobs).SetTopK(config.TopK)
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Separator: "\t",
		},
		Model: ModelConfig{
			Similarity:   ranking.SimilarityCosine,
			RankLength:   10,
			SimilarFirst: true,
			FitJobs:      1,
			TopK:         10,
		},
	}
}

func setDefault() {
	// [data]
	viper.SetDefault("data.separator", "\t")
	// [model]
	viper.SetDefault("model.similarity", ranking.SimilarityCosine)
	viper.SetDefault("model.rank_length", 10)
	viper.SetDefault("model.similar_first", true)
	viper.SetDefault("model.fit_jobs", 1)
	viper.SetDefault("model.top_k", 10)
}

// LoadConfig loads and validates the configuration from a TOML file.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the configuration the way Fit checks hyper-parameters, so
// that bad values surface before any data is loaded.
func (config *Config) Validate() error {
	if config.Model.RankLength < 1 {
		return errors.NotValidf("rank length %d", config.Model.RankLength)
	}
	if config.Model.KNeighbors < 0 {
		return errors.NotValidf("number of neighbors %d", config.Model.KNeighbors)
	}
	switch config.Model.Similarity {
	case ranking.SimilarityCosine, ranking.SimilarityPearson, ranking.SimilarityMSD, ranking.SimilarityJaccard:
	default:
		return errors.NotSupportedf("similarity metric %v", config.Model.Similarity)
	}
	if config.Model.FitJobs < 1 {
		return errors.NotValidf("number of jobs %d", config.Model.FitJobs)
	}
	if config.Model.TopK < 1 {
		return errors.NotValidf("top k %d", config.Model.TopK)
	}
	if config.Output.Database != "" && !strings.HasPrefix(config.Output.Database, storage.SQLitePrefix) {
		return errors.NotSupportedf("database %v", config.Output.Database)
	}
	return nil
}
