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
package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gorse-io/userknn/model"
)

// newSearchFixture returns a train set where the number of neighbors flips the
// top ranked item of user 0, plus a validation set holding the flipped item:
//
//	    a b c d e
//	  0 1
//	  1 1 1   1
//	  2 1 1     1
//	  3 1   1
//
// With one neighbor the single rater of c (cosine 0.707) beats any single
// rater of b (cosine 0.577), while with two neighbors the raters of b sum to
// 1.155 and b wins.
func newSearchFixture() (*DataSet, *DataSet) {
	trainSet := NewMapIndexDataset()
	trainSet.AddFeedback("0", "a", 1, true)
	trainSet.AddFeedback("1", "a", 1, true)
	trainSet.AddFeedback("1", "b", 1, true)
	trainSet.AddFeedback("1", "d", 1, true)
	trainSet.AddFeedback("2", "a", 1, true)
	trainSet.AddFeedback("2", "b", 1, true)
	trainSet.AddFeedback("2", "e", 1, true)
	trainSet.AddFeedback("3", "a", 1, true)
	trainSet.AddFeedback("3", "c", 1, true)
	valSet := NewMapIndexDataset()
	valSet.AddFeedback("0", "b", 1, true)
	return trainSet, valSet
}

func TestGridSearchCV(t *testing.T) {
	trainSet, valSet := newSearchFixture()
	m := NewUserKNN(model.Params{model.SimilarFirst: false})
	r, err := GridSearchCV(m, trainSet, valSet, model.ParamsGrid{
		model.KNeighbors: {1, 2},
	}, 0, NewFitConfig())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(r.Scores))
	assert.Equal(t, 2, len(r.Params))
	assert.InDelta(t, 0.6309298, r.Scores[0].NDCG, evalEpsilon)
	assert.Equal(t, Score{NDCG: 1, Precision: 0.25, Recall: 1}, r.BestScore)
	assert.Equal(t, model.Params{model.KNeighbors: 2}, r.BestParams)
	assert.Equal(t, 1, r.BestIndex)
	// The best model is a detached copy fitted with the best parameters.
	best := r.BestModel.(*UserKNN)
	assert.Equal(t, 2, best.Neighbors)
	assert.InDelta(t, 1.1547005, best.Predict("0", "b"), evalEpsilon)
}

func TestRandomSearchCV(t *testing.T) {
	trainSet, valSet := newSearchFixture()
	m := NewUserKNN(model.Params{model.SimilarFirst: false})
	// More trials than combinations falls back to grid search.
	r, err := RandomSearchCV(m, trainSet, valSet, model.ParamsGrid{
		model.KNeighbors: {1, 2},
	}, 10, 0, NewFitConfig())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(r.Scores))
	assert.Equal(t, Score{NDCG: 1, Precision: 0.25, Recall: 1}, r.BestScore)
	assert.Equal(t, model.Params{model.KNeighbors: 2}, r.BestParams)
}

func TestRandomSearchCV_Sampled(t *testing.T) {
	trainSet, valSet := newSearchFixture()
	m := NewUserKNN(nil)
	r, err := RandomSearchCV(m, trainSet, valSet, model.ParamsGrid{
		model.KNeighbors:   {1, 2},
		model.SimilarFirst: {true, false},
	}, 2, 42, NewFitConfig())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(r.Scores))
	assert.Equal(t, 2, len(r.Params))
	assert.NotNil(t, r.BestModel)
	assert.Equal(t, r.Scores[r.BestIndex].NDCG, r.BestScore.NDCG)
	for _, score := range r.Scores {
		assert.GreaterOrEqual(t, r.BestScore.NDCG, score.NDCG)
	}
}

func TestSearchCV_FitError(t *testing.T) {
	trainSet, valSet := newSearchFixture()
	m := NewUserKNN(nil)
	_, err := GridSearchCV(m, trainSet, valSet, model.ParamsGrid{
		model.RankLength: {0},
	}, 0, NewFitConfig())
	assert.Error(t, err)
	_, err = RandomSearchCV(m, trainSet, valSet, model.ParamsGrid{
		model.RankLength: {0},
	}, 1, 0, NewFitConfig())
	assert.Error(t, err)
}
