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

package ranking

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"modernc.org/mathutil"
	"modernc.org/sortutil"

	"github.com/gorse-io/userknn/base"
	"github.com/gorse-io/userknn/base/encoding"
	"github.com/gorse-io/userknn/base/log"
	"github.com/gorse-io/userknn/base/parallel"
	"github.com/gorse-io/userknn/model"
)

// Similarity metrics between the rating vectors of two users.
const (
	SimilarityCosine  = "cosine"
	SimilarityPearson = "pearson"
	SimilarityMSD     = "msd"
	SimilarityJaccard = "jaccard"
)

// UserKNN is a user-based k-nearest-neighbors collaborative filter. The
// affinity between a user u and an unrated item i is a sum of similarities
// between u and nearby users who rated i:
//
//	score(u, i) = \sum_{v \in N_k(u) \cap raters(i)} SU[u][v]
//
// Hyper-parameters:
//	 Similarity   - The similarity metric between the rating vectors of two
//	                users, one of "cosine", "pearson", "msd" and "jaccard".
//	                Default is "cosine".
//	 KNeighbors   - The size of the neighborhood. 0 resolves to
//	                floor(sqrt(|users|)). Default is 0.
//	 RankLength   - The length of the ranked list kept for each user.
//	                Default is 10.
//	 SimilarFirst - Select the nearest neighbors of the user before
//	                intersecting with the raters of each item. Otherwise the
//	                most similar raters of each item are summed directly.
//	                Default is true.
//	 Binarize     - Treat every rating as 1. Default is false.
type UserKNN struct {
	BaseRecommender
	// Model parameters
	UserSimilarity [][]float32      // SU
	ItemRaters     [][]int32        // users with a nonzero rating, in feedback order
	RatedItems     []*bitset.BitSet // items with a nonzero rating per user
	Predictable    *bitset.BitSet   // users with at least one feedback row
	Neighbors      int              // resolved neighborhood size
	// Hyper parameters
	similarity   string
	kNeighbors   int
	rankLength   int
	similarFirst bool
	binarize     bool

	strategy rankingStrategy
}

// NewUserKNN creates a UserKNN model.
func NewUserKNN(params model.Params) *UserKNN {
	knn := new(UserKNN)
	knn.SetParams(params)
	return knn
}

// SetParams sets hyper-parameters of the UserKNN model.
func (knn *UserKNN) SetParams(params model.Params) {
	knn.BaseModel.SetParams(params)
	// Setup hyper-parameters
	knn.similarity = knn.Params.GetString(model.Similarity, SimilarityCosine)
	knn.kNeighbors = knn.Params.GetInt(model.KNeighbors, 0)
	knn.rankLength = knn.Params.GetInt(model.RankLength, 10)
	knn.similarFirst = knn.Params.GetBool(model.SimilarFirst, true)
	knn.binarize = knn.Params.GetBool(model.Binarize, false)
}

func (knn *UserKNN) GetParamsGrid() model.ParamsGrid {
	return model.ParamsGrid{
		model.Similarity:   []interface{}{SimilarityCosine, SimilarityPearson, SimilarityMSD, SimilarityJaccard},
		model.KNeighbors:   []interface{}{5, 10, 25, 50, 100},
		model.SimilarFirst: []interface{}{true, false},
	}
}

func (knn *UserKNN) Clear() {
	knn.UserIndex = nil
	knn.ItemIndex = nil
	knn.UserSimilarity = nil
	knn.ItemRaters = nil
	knn.RatedItems = nil
	knn.Predictable = nil
	knn.strategy = nil
}

func (knn *UserKNN) Invalid() bool {
	return knn == nil ||
		knn.UserIndex == nil ||
		knn.ItemIndex == nil ||
		knn.UserSimilarity == nil ||
		knn.Predictable == nil
}

// Predict by the UserKNN model.
func (knn *UserKNN) Predict(userId, itemId string) float32 {
	// Convert sparse Names to dense Names
	userIndex := knn.UserIndex.ToNumber(userId)
	itemIndex := knn.ItemIndex.ToNumber(itemId)
	if userIndex == base.NotId {
		log.Logger().Warn("unknown user", zap.String("user_id", userId))
	}
	if itemIndex == base.NotId {
		log.Logger().Warn("unknown item", zap.String("item_id", itemId))
	}
	return knn.InternalPredict(userIndex, itemIndex)
}

func (knn *UserKNN) InternalPredict(userIndex, itemIndex int32) float32 {
	if userIndex == base.NotId || itemIndex == base.NotId {
		log.Logger().Warn("unknown user or item")
		return 0
	}
	if !knn.Predictable.Test(uint(userIndex)) {
		return 0
	}
	return knn.strategy.Rank(userIndex, []int32{itemIndex})[0]
}

// Fit the UserKNN model. The validation set is optional: when it carries
// feedback, the produced ranking is evaluated against it after fitting.
func (knn *UserKNN) Fit(trainSet, valSet *DataSet, config *FitConfig) (Score, error) {
	config = config.LoadDefaultIfNil()
	if knn.rankLength < 1 {
		return Score{}, errors.NotValidf("rank length %d", knn.rankLength)
	}
	if knn.kNeighbors < 0 {
		return Score{}, errors.NotValidf("number of neighbors %d", knn.kNeighbors)
	}
	similarity, err := knn.similarityFunc()
	if err != nil {
		return Score{}, errors.Trace(err)
	}
	log.Logger().Info("fit userknn",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Any("params", knn.GetParams()),
		zap.Any("config", config))
	knn.Init(trainSet)
	fitStart := time.Now()
	matrix := trainSet.Matrix(knn.binarize)
	knn.UserSimilarity = pairwiseSimilarity(matrix, similarity, config.Jobs)
	// Collect the raters of each item: users with a nonzero rating, kept in
	// feedback order and counted once per user.
	knn.ItemRaters = make([][]int32, trainSet.ItemCount())
	for itemIndex := range knn.ItemRaters {
		raters := make([]int32, 0)
		added := bitset.New(uint(trainSet.UserCount()))
		for _, userIndex := range trainSet.ItemFeedback[itemIndex] {
			if matrix[userIndex][itemIndex] != 0 && !added.Test(uint(userIndex)) {
				added.Set(uint(userIndex))
				raters = append(raters, userIndex)
			}
		}
		knn.ItemRaters[itemIndex] = raters
	}
	// Mark the rated items of each user. Unmarked items are the candidates.
	knn.RatedItems = make([]*bitset.BitSet, trainSet.UserCount())
	for userIndex := range knn.RatedItems {
		knn.RatedItems[userIndex] = bitset.New(uint(trainSet.ItemCount()))
		for itemIndex, value := range matrix[userIndex] {
			if value != 0 {
				knn.RatedItems[userIndex].Set(uint(itemIndex))
			}
		}
	}
	// Users without any feedback rows are excluded from ranking.
	knn.Predictable = bitset.New(uint(trainSet.UserCount()))
	for userIndex := range trainSet.UserFeedback {
		if len(trainSet.UserFeedback[userIndex]) > 0 {
			knn.Predictable.Set(uint(userIndex))
		}
	}
	knn.resolveNeighbors(trainSet.UserCount())
	knn.strategy = knn.selectStrategy()
	fitTime := time.Since(fitStart)
	if valSet == nil || valSet.Count() == 0 {
		log.Logger().Info("fit userknn complete",
			zap.String("fit_time", fitTime.String()))
		return Score{}, nil
	}
	evalStart := time.Now()
	scores := Evaluate(knn.Recommend(config.Jobs), valSet, config.TopK, config.Jobs, NDCG, Precision, Recall)
	evalTime := time.Since(evalStart)
	log.Logger().Info("fit userknn complete",
		zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
		zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
		zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]),
		zap.String("fit_time", fitTime.String()),
		zap.String("eval_time", evalTime.String()))
	return Score{NDCG: scores[0], Precision: scores[1], Recall: scores[2]}, nil
}

func (knn *UserKNN) similarityFunc() (base.FuncSimilarity, error) {
	switch knn.similarity {
	case SimilarityCosine:
		return base.CosineSimilarity, nil
	case SimilarityPearson:
		return base.PearsonSimilarity, nil
	case SimilarityMSD:
		return base.MSDSimilarity, nil
	case SimilarityJaccard:
		return base.JaccardSimilarity, nil
	default:
		return nil, errors.NotSupportedf("similarity metric %v", knn.similarity)
	}
}

// resolveNeighbors resolves the neighborhood size: 0 falls back to the
// square root of the number of users.
func (knn *UserKNN) resolveNeighbors(userCount int) {
	if knn.kNeighbors > 0 {
		knn.Neighbors = knn.kNeighbors
	} else {
		knn.Neighbors = int(math32.Sqrt(float32(userCount)))
	}
}

func (knn *UserKNN) selectStrategy() rankingStrategy {
	if knn.similarFirst {
		return neighborsFirst{knn}
	}
	return ratersFirst{knn}
}

// pairwiseSimilarity computes the symmetric user similarity matrix from the
// rows of the rating matrix. The diagonal is fixed to 1 for every metric.
func pairwiseSimilarity(matrix [][]float32, similarity base.FuncSimilarity, nJobs int) [][]float32 {
	su := base.NewMatrix32(len(matrix), len(matrix))
	_ = parallel.Parallel(len(matrix), nJobs, func(_, u int) error {
		su[u][u] = 1
		for v := u + 1; v < len(matrix); v++ {
			su[u][v] = similarity(matrix[u], matrix[v])
		}
		return nil
	})
	for u := range su {
		for v := 0; v < u; v++ {
			su[u][v] = su[v][u]
		}
	}
	return su
}

// rankingStrategy scores the candidate items of a user.
type rankingStrategy interface {
	Rank(userIndex int32, candidates []int32) []float32
}

// neighborsFirst selects the nearest neighbors of the user once, then scores
// each candidate by the similarity sum over neighbors who rated it.
type neighborsFirst struct {
	knn *UserKNN
}

func (s neighborsFirst) Rank(userIndex int32, candidates []int32) []float32 {
	row := s.knn.UserSimilarity[userIndex]
	// Order all other users by descending similarity, ties broken by
	// ascending user index.
	others := make([]int32, 0, len(row))
	for v := range row {
		if int32(v) != userIndex {
			others = append(others, int32(v))
		}
	}
	sort.SliceStable(others, func(i, j int) bool {
		return row[others[i]] > row[others[j]]
	})
	// Keep k-1 users, the equivalent of a k-sized neighborhood containing
	// the user itself.
	size := mathutil.Min(mathutil.Max(s.knn.Neighbors-1, 0), len(others))
	neighbors := mapset.NewSet(others[:size]...)
	scores := make([]float32, len(candidates))
	for i, itemIndex := range candidates {
		sum := float32(0)
		for _, v := range s.knn.ItemRaters[itemIndex] {
			if neighbors.Contains(v) {
				sum += row[v]
			}
		}
		scores[i] = sum
	}
	return scores
}

// ratersFirst scores each candidate by the sum of the k largest similarities
// between the user and the raters of the candidate.
type ratersFirst struct {
	knn *UserKNN
}

func (s ratersFirst) Rank(userIndex int32, candidates []int32) []float32 {
	row := s.knn.UserSimilarity[userIndex]
	scores := make([]float32, len(candidates))
	for i, itemIndex := range candidates {
		raters := s.knn.ItemRaters[itemIndex]
		affinities := make([]float32, 0, len(raters))
		for _, v := range raters {
			if v != userIndex {
				affinities = append(affinities, row[v])
			}
		}
		sort.Sort(sort.Reverse(sortutil.Float32Slice(affinities)))
		count := mathutil.Min(s.knn.Neighbors, len(affinities))
		sum := float32(0)
		for _, affinity := range affinities[:count] {
			sum += affinity
		}
		scores[i] = sum
	}
	return scores
}

// Recommend produces a ranked list of unrated items for every user with
// training feedback, grouped by ascending user index. Workers fill disjoint
// per-user buffers, so the result does not depend on the number of jobs.
func (knn *UserKNN) Recommend(nJobs int) []Recommendation {
	buffers := make([][]Recommendation, knn.UserIndex.Len())
	_ = parallel.Parallel(len(buffers), nJobs, func(_, jobId int) error {
		userIndex := int32(jobId)
		if !knn.Predictable.Test(uint(userIndex)) {
			// Users without feedback are skipped: no entries are produced.
			return nil
		}
		buffers[jobId] = knn.rankUser(userIndex)
		return nil
	})
	ranking := make([]Recommendation, 0)
	for _, buffer := range buffers {
		ranking = append(ranking, buffer...)
	}
	return ranking
}

func (knn *UserKNN) rankUser(userIndex int32) []Recommendation {
	// Candidates are the unrated items of the user in ascending index order.
	candidates := make([]int32, 0)
	for itemIndex := int32(0); itemIndex < knn.ItemIndex.Len(); itemIndex++ {
		if !knn.RatedItems[userIndex].Test(uint(itemIndex)) {
			candidates = append(candidates, itemIndex)
		}
	}
	scores := knn.strategy.Rank(userIndex, candidates)
	// Order by descending score, ties broken by ascending item index.
	order := base.RangeInt(len(candidates))
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	length := mathutil.Min(knn.rankLength, len(order))
	userId := knn.UserIndex.ToName(userIndex)
	ranking := make([]Recommendation, length)
	for i := 0; i < length; i++ {
		ranking[i] = Recommendation{
			UserId: userId,
			ItemId: knn.ItemIndex.ToName(candidates[order[i]]),
			Score:  scores[order[i]],
		}
	}
	return ranking
}

// Marshal model into byte stream.
func (knn *UserKNN) Marshal(w io.Writer) error {
	// write base
	err := knn.BaseRecommender.Marshal(w)
	if err != nil {
		return errors.Trace(err)
	}
	// write user similarity
	err = encoding.WriteMatrix(w, knn.UserSimilarity)
	if err != nil {
		return errors.Trace(err)
	}
	// write item raters
	err = encoding.WriteGob(w, knn.ItemRaters)
	if err != nil {
		return errors.Trace(err)
	}
	// write user masks
	err = encoding.WriteBitSet(w, knn.Predictable)
	if err != nil {
		return errors.Trace(err)
	}
	for _, rated := range knn.RatedItems {
		if err = encoding.WriteBitSet(w, rated); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Unmarshal model from byte stream.
func (knn *UserKNN) Unmarshal(r io.Reader) error {
	// read base
	var err error
	err = knn.BaseRecommender.Unmarshal(r)
	if err != nil {
		return errors.Trace(err)
	}
	knn.SetParams(knn.Params)
	// read user similarity
	userCount := int(knn.UserIndex.Len())
	knn.UserSimilarity = base.NewMatrix32(userCount, userCount)
	err = encoding.ReadMatrix(r, knn.UserSimilarity)
	if err != nil {
		return errors.Trace(err)
	}
	// read item raters
	err = encoding.ReadGob(r, &knn.ItemRaters)
	if err != nil {
		return errors.Trace(err)
	}
	// read user masks
	knn.Predictable, err = encoding.ReadBitSet(r)
	if err != nil {
		return errors.Trace(err)
	}
	knn.RatedItems = make([]*bitset.BitSet, userCount)
	for userIndex := range knn.RatedItems {
		if knn.RatedItems[userIndex], err = encoding.ReadBitSet(r); err != nil {
			return errors.Trace(err)
		}
	}
	knn.resolveNeighbors(userCount)
	knn.strategy = knn.selectStrategy()
	return nil
}
