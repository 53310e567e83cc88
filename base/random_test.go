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
package base

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

func TestRandomGenerator_SampleInt32(t *testing.T) {
	excludeSet := mapset.NewSet[int32](0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	for i := 1; i <= 10; i++ {
		sampled := rng.SampleInt32(0, 10, i, excludeSet)
		for j := range sampled {
			assert.False(t, excludeSet.Contains(sampled[j]))
			assert.GreaterOrEqual(t, sampled[j], int32(5))
			assert.Less(t, sampled[j], int32(10))
		}
	}
	// sampling more than available returns the whole residue in order
	sampled := rng.SampleInt32(0, 10, 10, excludeSet)
	assert.Equal(t, []int32{5, 6, 7, 8, 9}, sampled)
}

func TestRandomGenerator_Determinism(t *testing.T) {
	a := NewRandomGenerator(42).SampleInt32(0, 1000, 10)
	b := NewRandomGenerator(42).SampleInt32(0, 1000, 10)
	assert.Equal(t, a, b)
}
