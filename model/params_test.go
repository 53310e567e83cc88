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
package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Copy(t *testing.T) {
	// Create parameters
	a := Params{
		KNeighbors:  1,
		Similarity:  "cosine",
		RandomState: 0,
	}
	// Create copy
	b := a.Copy()
	b[KNeighbors] = 2
	b[Similarity] = "pearson"
	b[RandomState] = 1
	// Check original parameters
	assert.Equal(t, 1, a.GetInt(KNeighbors, -1))
	assert.Equal(t, "cosine", a.GetString(Similarity, ""))
	assert.Equal(t, int64(0), a.GetInt64(RandomState, -1))
	// Check copy parameters
	assert.Equal(t, 2, b.GetInt(KNeighbors, -1))
	assert.Equal(t, "pearson", b.GetString(Similarity, ""))
	assert.Equal(t, int64(1), b.GetInt64(RandomState, -1))
}

func TestParams_GetInt(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, -1, p.GetInt(KNeighbors, -1))
	// Normal case
	p[KNeighbors] = 0
	assert.Equal(t, 0, p.GetInt(KNeighbors, -1))
	// Wrong type case
	p[KNeighbors] = "hello"
	assert.Equal(t, -1, p.GetInt(KNeighbors, -1))
}

func TestParams_GetInt64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
	// Normal case
	p[RandomState] = int64(0)
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	// Wrong type case
	p[RandomState] = 0
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	p[RandomState] = "hello"
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
}

func TestParams_GetBool(t *testing.T) {
	p := Params{}
	// Empty case
	assert.True(t, p.GetBool(SimilarFirst, true))
	// Normal case
	p[SimilarFirst] = false
	assert.False(t, p.GetBool(SimilarFirst, true))
	// Wrong type case
	p[SimilarFirst] = "hello"
	assert.True(t, p.GetBool(SimilarFirst, true))
}

func TestParams_Overwrite(t *testing.T) {
	a := Params{
		KNeighbors: 10,
		RankLength: 5,
	}
	b := a.Overwrite(Params{
		KNeighbors: 20,
		Binarize:   true,
	})
	assert.Equal(t, 20, b.GetInt(KNeighbors, -1))
	assert.Equal(t, 5, b.GetInt(RankLength, -1))
	assert.True(t, b.GetBool(Binarize, false))
	// the receiver is left untouched
	assert.Equal(t, 10, a.GetInt(KNeighbors, -1))
}

func TestParamsGrid(t *testing.T) {
	grid := ParamsGrid{
		KNeighbors: []interface{}{10, 20, 30},
		Similarity: []interface{}{"cosine", "pearson"},
	}
	assert.Equal(t, 2, grid.Len())
	assert.Equal(t, 6, grid.NumCombinations())
	grid.Fill(ParamsGrid{
		KNeighbors: []interface{}{40},
		RankLength: []interface{}{10},
	})
	assert.Equal(t, []interface{}{10, 20, 30}, grid[KNeighbors])
	assert.Equal(t, []interface{}{10}, grid[RankLength])
	assert.Equal(t, 6, grid.NumCombinations())
}
