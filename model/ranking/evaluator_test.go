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

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

const evalEpsilon = 0.00001

func TestNDCG(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 5, 7)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.6766372989, NDCG(targetSet, rankList), evalEpsilon)
}

func TestPrecision(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 5, 7)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.4, Precision(targetSet, rankList), evalEpsilon)
}

func TestRecall(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 15, 17, 19)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.4, Recall(targetSet, rankList), evalEpsilon)
}

func TestAP(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 7, 9)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.44375, MAP(targetSet, rankList), evalEpsilon)
}

func TestRR(t *testing.T) {
	targetSet := mapset.NewSet[int32](3)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.25, MRR(targetSet, rankList), evalEpsilon)
}

func TestHR(t *testing.T) {
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 1, HR(mapset.NewSet[int32](3), rankList), evalEpsilon)
	assert.InDelta(t, 0, HR(mapset.NewSet[int32](30), rankList), evalEpsilon)
}

func TestEvaluate(t *testing.T) {
	// u0 and u1 carry targets, u3 has targets but no ranking entries and u2
	// is ranked without targets. Only u0 and u1 are scored.
	testSet := NewMapIndexDataset()
	testSet.AddFeedback("u0", "a", 1, true)
	testSet.AddFeedback("u0", "b", 1, true)
	testSet.AddFeedback("u1", "c", 1, true)
	testSet.AddFeedback("u1", "d", 1, true)
	testSet.AddFeedback("u3", "a", 1, true)
	ranking := []Recommendation{
		{UserId: "u0", ItemId: "a", Score: 0.9},
		{UserId: "u0", ItemId: "x", Score: 0.8},
		{UserId: "u1", ItemId: "c", Score: 0.9},
		{UserId: "u1", ItemId: "d", Score: 0.8},
		{UserId: "u2", ItemId: "a", Score: 0.5},
	}
	scores := Evaluate(ranking, testSet, 2, 2, Precision, Recall, HR)
	assert.Equal(t, []float32{0.75, 0.75, 1}, scores)
	// @1 only the head of each list is scored
	scores = Evaluate(ranking, testSet, 1, 1, Precision)
	assert.Equal(t, []float32{1}, scores)
	// an empty ranking scores nothing
	scores = Evaluate(nil, testSet, 2, 2, Precision)
	assert.Equal(t, []float32{0}, scores)
}
