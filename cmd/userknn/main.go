// Copyright 2021 gorse Project Authors
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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gorse-io/userknn/base/log"
	"github.com/gorse-io/userknn/cmd/version"
	"github.com/gorse-io/userknn/config"
	"github.com/gorse-io/userknn/model"
	"github.com/gorse-io/userknn/model/ranking"
	"github.com/gorse-io/userknn/storage"
)

type flagType int

const (
	intFlag flagType = iota
	boolFlag
	stringFlag
)

type paramFlag struct {
	Type flagType
	Key  model.ParamName
	Name string
	Help string
}

var knnParamFlags = []paramFlag{
	{stringFlag, model.Similarity, "similarity", "similarity metric (cosine, pearson, msd or jaccard)"},
	{intFlag, model.KNeighbors, "k-neighbors", "number of neighbors, 0 picks floor(sqrt(n_users))"},
	{intFlag, model.RankLength, "rank-length", "length of the ranked list kept per user"},
	{boolFlag, model.SimilarFirst, "similar-first", "select the nearest neighbors before intersecting raters"},
	{boolFlag, model.Binarize, "binarize", "replace each observed rating with 1"},
}

var rootCommand = &cobra.Command{
	Use:   "userknn",
	Short: "User-based k-nearest-neighbors ranking.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}

		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)

		// load config
		conf := config.GetDefaultConfig()
		if cmd.PersistentFlags().Changed("config") {
			configPath, _ := cmd.PersistentFlags().GetString("config")
			log.Logger().Info("load config", zap.String("config", configPath))
			var err error
			conf, err = config.LoadConfig(configPath)
			if err != nil {
				log.Logger().Fatal("failed to load config", zap.Error(err))
			}
		}
		applyFlags(cmd, conf)
		if err := conf.Validate(); err != nil {
			log.Logger().Fatal("invalid config", zap.Error(err))
		}

		// restore a fitted model
		if cmd.PersistentFlags().Changed("load-model") {
			modelPath, _ := cmd.PersistentFlags().GetString("load-model")
			m := loadModel(modelPath)
			saveOutputs(conf, m, m.Recommend(conf.Model.FitJobs))
			return
		}

		// Load data
		trainSet, testSet := loadData(cmd, conf)
		// Load hyper-parameters
		m := ranking.NewUserKNN(conf.Model.GetParams())
		grid := parseParamFlags(cmd)
		numTrials, _ := cmd.PersistentFlags().GetInt("search-trials")
		seed, _ := cmd.PersistentFlags().GetInt("random-state")
		if numTrials > 0 && grid.Len() == 0 {
			// Random search without explicit values samples the default grid.
			grid.Fill(m.GetParamsGrid())
		}
		log.Logger().Info("load hyper-parameters grid", zap.Any("grid", grid))
		// Load runtime options
		fitConfig := conf.Model.GetFitConfig()
		// Cross validation
		start := time.Now()
		var best ranking.Model = m
		var result ranking.ParamsSearchResult
		if grid.Len() == 0 {
			score, err := m.Fit(trainSet, testSet, fitConfig)
			if err != nil {
				log.Logger().Fatal("failed to fit model", zap.Error(err))
			}
			result = ranking.ParamsSearchResult{
				BestModel:  m,
				BestScore:  score,
				BestParams: m.GetParams(),
				Scores:     []ranking.Score{score},
				Params:     []model.Params{m.GetParams()},
			}
		} else {
			var err error
			if numTrials > 0 {
				result, err = ranking.RandomSearchCV(m, trainSet, testSet, grid, numTrials, int64(seed), fitConfig)
			} else {
				result, err = ranking.GridSearchCV(m, trainSet, testSet, grid, 0, fitConfig)
			}
			if err != nil {
				log.Logger().Fatal("failed to search hyper-parameters", zap.Error(err))
			}
			best = result.BestModel
		}
		elapsed := time.Since(start)
		// Render table
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"#",
			fmt.Sprintf("NDCG@%v", fitConfig.TopK),
			fmt.Sprintf("Precision@%v", fitConfig.TopK),
			fmt.Sprintf("Recall@%v", fitConfig.TopK),
			"Params"})
		for i := range result.Params {
			score := result.Scores[i]
			table.Append([]string{
				fmt.Sprintf("%v", i),
				fmt.Sprintf("%v", score.NDCG),
				fmt.Sprintf("%v", score.Precision),
				fmt.Sprintf("%v", score.Recall),
				fmt.Sprintf("%v", result.Params[i].ToString()),
			})
		}
		table.Render()
		log.Logger().Info("complete cross validation", zap.String("time", elapsed.String()))

		saveOutputs(conf, best, best.Recommend(conf.Model.FitJobs))
	},
}

// applyFlags overrides loaded configuration with command line flags.
func applyFlags(cmd *cobra.Command, conf *config.Config) {
	flags := cmd.PersistentFlags()
	if flags.Changed("load-builtin") {
		conf.Data.Dataset, _ = flags.GetString("load-builtin")
	}
	if flags.Changed("load-csv") {
		conf.Data.TrainPath, _ = flags.GetString("load-csv")
	}
	if flags.Changed("load-test") {
		conf.Data.TestPath, _ = flags.GetString("load-test")
	}
	if flags.Changed("csv-sep") {
		conf.Data.Separator, _ = flags.GetString("csv-sep")
	}
	if flags.Changed("csv-header") {
		conf.Data.HasHeader, _ = flags.GetBool("csv-header")
	}
	if flags.Changed("jobs") {
		conf.Model.FitJobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("top-k") {
		conf.Model.TopK, _ = flags.GetInt("top-k")
	}
	if flags.Changed("ranking-path") {
		conf.Output.RankingPath, _ = flags.GetString("ranking-path")
	}
	if flags.Changed("database") {
		conf.Output.Database, _ = flags.GetString("database")
	}
	if flags.Changed("model-path") {
		conf.Output.ModelPath, _ = flags.GetString("model-path")
	}
}

func loadData(cmd *cobra.Command, conf *config.Config) (trainSet, testSet *ranking.DataSet) {
	var err error
	if conf.Data.TrainPath != "" {
		log.Logger().Info("load csv file", zap.String("csv_file", conf.Data.TrainPath))
		data, err := ranking.LoadDataFromCSV(conf.Data.TrainPath, conf.Data.Separator, conf.Data.HasHeader)
		if err != nil {
			log.Logger().Fatal("failed to load csv file", zap.Error(err),
				zap.String("csv_file", conf.Data.TrainPath))
		}
		log.Logger().Info("load data csv file",
			zap.Int("n_users", data.UserCount()),
			zap.Int("n_items", data.ItemCount()),
			zap.Int("n_feedbacks", data.Count()))
		if conf.Data.TestPath != "" {
			trainSet = data
			testSet, err = ranking.LoadDataFromCSV(conf.Data.TestPath, conf.Data.Separator, conf.Data.HasHeader)
			if err != nil {
				log.Logger().Fatal("failed to load csv file", zap.Error(err),
					zap.String("csv_file", conf.Data.TestPath))
			}
		} else {
			numTestUsers, _ := cmd.PersistentFlags().GetInt("n-test-users")
			seed, _ := cmd.PersistentFlags().GetInt("random-state")
			trainSet, testSet = data.Split(numTestUsers, int64(seed))
		}
	} else if conf.Data.Dataset != "" {
		log.Logger().Info("load built-in dataset", zap.String("name", conf.Data.Dataset))
		trainSet, testSet, err = ranking.LoadDataFromBuiltIn(conf.Data.Dataset)
		if err != nil {
			log.Logger().Fatal("failed to load built-in dataset", zap.Error(err),
				zap.String("name", conf.Data.Dataset))
		}
	} else {
		log.Logger().Fatal("no data source, set train_path or dataset")
	}
	if trainSet.Count() == 0 {
		log.Logger().Fatal("empty dataset")
	}
	return
}

func loadModel(path string) ranking.Model {
	modelFile, err := os.Open(path)
	if err != nil {
		log.Logger().Fatal("failed to open model file", zap.Error(err), zap.String("model_path", path))
	}
	defer modelFile.Close()
	m, err := ranking.UnmarshalModel(modelFile)
	if err != nil {
		log.Logger().Fatal("failed to load model", zap.Error(err), zap.String("model_path", path))
	}
	if m.Invalid() {
		log.Logger().Fatal("invalid model", zap.String("model_path", path))
	}
	log.Logger().Info("load model",
		zap.String("model_path", path),
		zap.Int32("n_users", m.GetUserIndex().Len()),
		zap.Int32("n_items", m.GetItemIndex().Len()))
	return m
}

func saveOutputs(conf *config.Config, m ranking.Model, recommendations []ranking.Recommendation) {
	if conf.Output.RankingPath != "" {
		if err := ranking.SaveRanking(conf.Output.RankingPath, recommendations, "\t"); err != nil {
			log.Logger().Fatal("failed to save ranking", zap.Error(err),
				zap.String("ranking_path", conf.Output.RankingPath))
		}
		log.Logger().Info("save ranking",
			zap.String("ranking_path", conf.Output.RankingPath),
			zap.Int("n_recommendations", len(recommendations)))
	}
	if conf.Output.Database != "" {
		database, err := storage.Open(conf.Output.Database)
		if err != nil {
			log.Logger().Fatal("failed to connect database", zap.Error(err),
				zap.String("database", conf.Output.Database))
		}
		defer database.Close()
		if err = database.Init(); err != nil {
			log.Logger().Fatal("failed to initialize database", zap.Error(err))
		}
		if err = database.SaveRanking(recommendations); err != nil {
			log.Logger().Fatal("failed to save ranking", zap.Error(err))
		}
		log.Logger().Info("save ranking",
			zap.String("database", conf.Output.Database),
			zap.Int("n_recommendations", len(recommendations)))
	}
	if conf.Output.ModelPath != "" {
		saveModel(m, conf.Output.ModelPath)
	}
}

func saveModel(m ranking.Model, path string) {
	// create parent folder if not exists
	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		if err = os.MkdirAll(parent, os.ModePerm); err != nil {
			log.Logger().Fatal("failed to create folder", zap.Error(err), zap.String("folder", parent))
		}
	}
	modelFile, err := os.Create(path)
	if err != nil {
		log.Logger().Fatal("failed to create model file", zap.Error(err), zap.String("model_path", path))
	}
	defer modelFile.Close()
	if err = ranking.MarshalModel(modelFile, m); err != nil {
		log.Logger().Fatal("failed to save model", zap.Error(err), zap.String("model_path", path))
	}
	log.Logger().Info("save model", zap.String("model_path", path))
}

func parseParamFlags(cmd *cobra.Command) model.ParamsGrid {
	grid := make(model.ParamsGrid)
	for _, flag := range knnParamFlags {
		if cmd.PersistentFlags().Changed(flag.Name) {
			text, _ := cmd.PersistentFlags().GetString(flag.Name)
			grid[flag.Key] = parseParamList(flag.Type, text)
		}
	}
	return grid
}

func parseParamList(t flagType, text string) []interface{} {
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")
	fields := strings.Split(text, ",")
	values := make([]interface{}, len(fields))
	for i, field := range fields {
		values[i] = parseParam(t, strings.TrimSpace(field))
	}
	return values
}

func parseParam(t flagType, text string) interface{} {
	switch t {
	case intFlag:
		value, err := strconv.Atoi(text)
		if err != nil {
			log.Logger().Fatal("failed to parse integer", zap.String("text", text))
		}
		return value
	case boolFlag:
		value, err := strconv.ParseBool(text)
		if err != nil {
			log.Logger().Fatal("failed to parse boolean", zap.String("text", text))
		}
		return value
	case stringFlag:
		return text
	default:
		log.Logger().Fatal("unknown flag type", zap.Int("type", int(t)))
		return nil
	}
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().BoolP("version", "v", false, "userknn version")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().String("load-builtin", "", "load data from built-in")
	rootCommand.PersistentFlags().String("load-csv", "", "load data from CSV file")
	rootCommand.PersistentFlags().String("load-test", "", "load test data from CSV file, leave empty to split the train set")
	rootCommand.PersistentFlags().String("csv-sep", "\t", "load CSV file with separator")
	rootCommand.PersistentFlags().Bool("csv-header", false, "load CSV file with header")
	rootCommand.PersistentFlags().Int("n-test-users", 0, "number of users sampled into the test set, 0 keeps all users")
	rootCommand.PersistentFlags().Int("random-state", 0, "random state (seed)")
	rootCommand.PersistentFlags().IntP("jobs", "j", 1, "number of jobs for model fitting")
	rootCommand.PersistentFlags().Int("top-k", 10, "evaluate the top k recommendations")
	rootCommand.PersistentFlags().Int("search-trials", 0, "number of random search trials, 0 runs exhaustive grid search")
	rootCommand.PersistentFlags().String("ranking-path", "", "write the ranking to a TSV file")
	rootCommand.PersistentFlags().String("database", "", "write the ranking to a database, e.g. sqlite://userknn.db")
	rootCommand.PersistentFlags().String("model-path", "", "write the fitted model to a file")
	rootCommand.PersistentFlags().String("load-model", "", "restore a fitted model instead of fitting")
	for _, flag := range knnParamFlags {
		rootCommand.PersistentFlags().String(flag.Name, "", flag.Help)
	}
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
