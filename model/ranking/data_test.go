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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewMapIndexDataset(t *testing.T) {
	dataSet := NewMapIndexDataset()
	for i := 0; i < 4; i++ {
		for j := i; j < 5; j++ {
			dataSet.AddFeedback(strconv.Itoa(i), strconv.Itoa(j), float32(j), true)
		}
	}
	assert.Equal(t, 14, dataSet.Count())
	assert.Equal(t, 4, dataSet.UserCount())
	assert.Equal(t, 5, dataSet.ItemCount())
	dataSet.AddUser("10")
	dataSet.AddItem("10")
	assert.Equal(t, 5, dataSet.UserCount())
	assert.Equal(t, 6, dataSet.ItemCount())
	// Feedback of unknown users or items is dropped unless insertion is requested.
	dataSet.AddFeedback("10", "unknown", 1, false)
	assert.Equal(t, 14, dataSet.Count())
	assert.Equal(t, 6, dataSet.ItemCount())
}

func TestDataSet_Matrix(t *testing.T) {
	dataset := NewMapIndexDataset()
	dataset.AddFeedback("a", "x", 3, true)
	dataset.AddFeedback("a", "y", 4, true)
	dataset.AddFeedback("b", "x", 5, true)
	// duplicated feedback overwrites the previous rating
	dataset.AddFeedback("a", "y", 2, true)
	assert.Equal(t, [][]float32{{3, 2}, {5, 0}}, dataset.Matrix(false))
	assert.Equal(t, [][]float32{{1, 1}, {1, 0}}, dataset.Matrix(true))
}

func TestLoadDataFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.csv")
	err := os.WriteFile(path, []byte("user_id,item_id,rating,timestamp\n"+
		"0,0,1,881250949\n"+
		"1,1,2,891717742\n"+
		"2,2,3,878887116\n"+
		"3,3,4,880606923\n"+
		"4,4,5,886397596\n"), os.ModePerm)
	assert.NoError(t, err)
	dataset, err := LoadDataFromCSV(path, ",", true)
	assert.NoError(t, err)
	assert.Equal(t, 5, dataset.Count())
	for i := 0; i < dataset.Count(); i++ {
		userIndex, itemIndex, value := dataset.GetIndex(i)
		assert.Equal(t, int32(i), userIndex)
		assert.Equal(t, int32(i), itemIndex)
		assert.Equal(t, float32(i+1), value)
	}
}

func TestLoadDataFromCSV_NoRating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.txt")
	err := os.WriteFile(path, []byte("1\t10\n2\t20\nbad\n3\t30\n"), os.ModePerm)
	assert.NoError(t, err)
	dataset, err := LoadDataFromCSV(path, "\t", false)
	assert.NoError(t, err)
	assert.Equal(t, 3, dataset.Count())
	for i := 0; i < dataset.Count(); i++ {
		_, _, value := dataset.GetIndex(i)
		assert.Equal(t, float32(1), value)
	}
}

func TestLoadDataFromCSV_Error(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.csv")
	err := os.WriteFile(path, []byte("1,10,high\n"), os.ModePerm)
	assert.NoError(t, err)
	_, err = LoadDataFromCSV(path, ",", false)
	assert.Error(t, err)
	_, err = LoadDataFromCSV(filepath.Join(t.TempDir(), "missing.csv"), ",", false)
	assert.Error(t, err)
}

func TestDataSet_Split(t *testing.T) {
	numUsers, numItems := 3, 5
	// create dataset
	dataset := NewMapIndexDataset()
	for i := 0; i < numUsers; i++ {
		dataset.AddUser(fmt.Sprintf("user%v", i))
	}
	for i := 0; i < numItems; i++ {
		dataset.AddItem(fmt.Sprintf("item%v", i))
	}
	for i := 0; i < numUsers; i++ {
		for j := i + 1; j < numItems; j++ {
			dataset.AddFeedback(fmt.Sprintf("user%v", i), fmt.Sprintf("item%v", j), float32(j), true)
		}
	}
	assert.Equal(t, 9, dataset.Count())
	// leave one out for every user
	train, test := dataset.Split(0, 0)
	assert.Equal(t, numUsers, train.UserCount())
	assert.Equal(t, numItems, train.ItemCount())
	assert.Equal(t, 9-numUsers, train.Count())
	assert.Equal(t, numUsers, test.UserCount())
	assert.Equal(t, numItems, test.ItemCount())
	assert.Equal(t, numUsers, test.Count())
	for userIndex := int32(0); userIndex < int32(numUsers); userIndex++ {
		assert.Equal(t, 1, len(test.UserFeedback[userIndex]))
	}
	// leave one out for a part of users
	train2, test2 := dataset.Split(2, 0)
	assert.Equal(t, numUsers, train2.UserCount())
	assert.Equal(t, numItems, train2.ItemCount())
	assert.Equal(t, 7, train2.Count())
	assert.Equal(t, numUsers, test2.UserCount())
	assert.Equal(t, numItems, test2.ItemCount())
	assert.Equal(t, 2, test2.Count())
}

func TestLoadDataFromBuiltIn(t *testing.T) {
	_, _, err := LoadDataFromBuiltIn("no-such-dataset")
	assert.True(t, errors.IsNotFound(err))
}
