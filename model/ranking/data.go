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
	"bufio"
	"os"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"

	"github.com/gorse-io/userknn/base"
	"github.com/gorse-io/userknn/common/datautil"
)

var builtInDataSets = map[string]struct {
	url   string
	train string
	test  string
	sep   string
}{
	"ml-100k": {
		url:   "https://cdn.gorse.io/datasets/ml-100k.zip",
		train: "ml-100k/ua.base",
		test:  "ml-100k/ua.test",
		sep:   "\t",
	},
}

// DataSet contains preprocessed data structures for recommendation models.
type DataSet struct {
	UserIndex          base.Index
	ItemIndex          base.Index
	FeedbackUsers      base.Integers
	FeedbackItems      base.Integers
	FeedbackValues     base.Floats
	UserFeedback       [][]int32
	ItemFeedback       [][]int32
	UserFeedbackValues [][]float32
}

// NewMapIndexDataset creates a data set.
func NewMapIndexDataset() *DataSet {
	s := new(DataSet)
	// Create index
	s.UserIndex = base.NewMapIndex()
	s.ItemIndex = base.NewMapIndex()
	// Initialize slices
	s.UserFeedback = make([][]int32, 0)
	s.ItemFeedback = make([][]int32, 0)
	s.UserFeedbackValues = make([][]float32, 0)
	return s
}

func NewDirectIndexDataset() *DataSet {
	dataset := new(DataSet)
	// Create index
	dataset.UserIndex = base.NewDirectIndex()
	dataset.ItemIndex = base.NewDirectIndex()
	// Initialize slices
	dataset.UserFeedback = make([][]int32, 0)
	dataset.ItemFeedback = make([][]int32, 0)
	dataset.UserFeedbackValues = make([][]float32, 0)
	return dataset
}

func (dataset *DataSet) AddUser(userId string) {
	dataset.UserIndex.Add(userId)
	userIndex := dataset.UserIndex.ToNumber(userId)
	for int(userIndex) >= len(dataset.UserFeedback) {
		dataset.UserFeedback = append(dataset.UserFeedback, make([]int32, 0))
		dataset.UserFeedbackValues = append(dataset.UserFeedbackValues, make([]float32, 0))
	}
}

func (dataset *DataSet) AddItem(itemId string) {
	dataset.ItemIndex.Add(itemId)
	itemIndex := dataset.ItemIndex.ToNumber(itemId)
	for int(itemIndex) >= len(dataset.ItemFeedback) {
		dataset.ItemFeedback = append(dataset.ItemFeedback, make([]int32, 0))
	}
}

// AddFeedback inserts a feedback into the dataset. If insertUserItem is true,
// unknown users and items are inserted into the index, otherwise feedback of
// unknown users or items is ignored.
func (dataset *DataSet) AddFeedback(userId, itemId string, value float32, insertUserItem bool) {
	if insertUserItem {
		dataset.UserIndex.Add(userId)
		dataset.ItemIndex.Add(itemId)
	}
	userIndex := dataset.UserIndex.ToNumber(userId)
	itemIndex := dataset.ItemIndex.ToNumber(itemId)
	if userIndex != base.NotId && itemIndex != base.NotId {
		dataset.FeedbackUsers.Append(userIndex)
		dataset.FeedbackItems.Append(itemIndex)
		dataset.FeedbackValues.Append(value)
		for int(itemIndex) >= len(dataset.ItemFeedback) {
			dataset.ItemFeedback = append(dataset.ItemFeedback, make([]int32, 0))
		}
		dataset.ItemFeedback[itemIndex] = append(dataset.ItemFeedback[itemIndex], userIndex)
		for int(userIndex) >= len(dataset.UserFeedback) {
			dataset.UserFeedback = append(dataset.UserFeedback, make([]int32, 0))
			dataset.UserFeedbackValues = append(dataset.UserFeedbackValues, make([]float32, 0))
		}
		dataset.UserFeedback[userIndex] = append(dataset.UserFeedback[userIndex], itemIndex)
		dataset.UserFeedbackValues[userIndex] = append(dataset.UserFeedbackValues[userIndex], value)
	}
}

func (dataset *DataSet) Count() int {
	if dataset.FeedbackUsers.Len() != dataset.FeedbackItems.Len() {
		panic("dataset.FeedbackUsers.Len() != dataset.FeedbackItems.Len()")
	}
	return dataset.FeedbackUsers.Len()
}

// UserCount returns the number of users.
func (dataset *DataSet) UserCount() int {
	return int(dataset.UserIndex.Len())
}

// ItemCount returns the number of items.
func (dataset *DataSet) ItemCount() int {
	return int(dataset.ItemIndex.Len())
}

// GetIndex gets the i-th record by <user index, item index, rating>.
func (dataset *DataSet) GetIndex(i int) (int32, int32, float32) {
	return dataset.FeedbackUsers.Get(i), dataset.FeedbackItems.Get(i), dataset.FeedbackValues.Get(i)
}

// Matrix builds the dense rating matrix. Rows are users and columns are
// items. A zero cell means the item is unrated by the user. Duplicated
// feedback overwrites the previous value. If binarize is set, every feedback
// becomes rating 1.
func (dataset *DataSet) Matrix(binarize bool) [][]float32 {
	matrix := base.NewMatrix32(dataset.UserCount(), dataset.ItemCount())
	for i := 0; i < dataset.Count(); i++ {
		userIndex, itemIndex, value := dataset.GetIndex(i)
		if binarize {
			matrix[userIndex][itemIndex] = 1
		} else {
			matrix[userIndex][itemIndex] = value
		}
	}
	return matrix
}

func createSliceOfSlice[T any](n int) [][]T {
	x := make([][]T, n)
	for i := range x {
		x[i] = make([]T, 0)
	}
	return x
}

// Split dataset by user-leave-one-out method. The argument `numTestUsers` determines the number of users in the test
// set. If numTestUsers is equal or greater than the number of total users or numTestUsers <= 0, all users are presented
// in the test set.
func (dataset *DataSet) Split(numTestUsers int, seed int64) (*DataSet, *DataSet) {
	trainSet, testSet := new(DataSet), new(DataSet)
	trainSet.UserIndex, testSet.UserIndex = dataset.UserIndex, dataset.UserIndex
	trainSet.ItemIndex, testSet.ItemIndex = dataset.ItemIndex, dataset.ItemIndex
	trainSet.UserFeedback, testSet.UserFeedback = createSliceOfSlice[int32](dataset.UserCount()), createSliceOfSlice[int32](dataset.UserCount())
	trainSet.ItemFeedback, testSet.ItemFeedback = createSliceOfSlice[int32](dataset.ItemCount()), createSliceOfSlice[int32](dataset.ItemCount())
	trainSet.UserFeedbackValues, testSet.UserFeedbackValues = createSliceOfSlice[float32](dataset.UserCount()), createSliceOfSlice[float32](dataset.UserCount())
	rng := base.NewRandomGenerator(seed)
	if numTestUsers >= dataset.UserCount() || numTestUsers <= 0 {
		for userIndex := int32(0); userIndex < int32(dataset.UserCount()); userIndex++ {
			if len(dataset.UserFeedback[userIndex]) > 0 {
				k := rng.Intn(len(dataset.UserFeedback[userIndex]))
				dataset.splitUser(trainSet, testSet, userIndex, k)
			}
		}
	} else {
		testUsers := rng.SampleInt32(0, int32(dataset.UserCount()), numTestUsers)
		for _, userIndex := range testUsers {
			if len(dataset.UserFeedback[userIndex]) > 0 {
				k := rng.Intn(len(dataset.UserFeedback[userIndex]))
				dataset.splitUser(trainSet, testSet, userIndex, k)
			}
		}
		testUserSet := mapset.NewSet(testUsers...)
		for userIndex := int32(0); userIndex < int32(dataset.UserCount()); userIndex++ {
			if !testUserSet.Contains(userIndex) {
				for i, itemIndex := range dataset.UserFeedback[userIndex] {
					appendFeedback(trainSet, userIndex, itemIndex, dataset.UserFeedbackValues[userIndex][i])
				}
			}
		}
	}
	return trainSet, testSet
}

// splitUser sends the k-th feedback of a user to the test set and the rest to
// the train set.
func (dataset *DataSet) splitUser(trainSet, testSet *DataSet, userIndex int32, k int) {
	appendFeedback(testSet, userIndex, dataset.UserFeedback[userIndex][k], dataset.UserFeedbackValues[userIndex][k])
	for i, itemIndex := range dataset.UserFeedback[userIndex] {
		if i != k {
			appendFeedback(trainSet, userIndex, itemIndex, dataset.UserFeedbackValues[userIndex][i])
		}
	}
}

func appendFeedback(dataset *DataSet, userIndex, itemIndex int32, value float32) {
	dataset.FeedbackUsers.Append(userIndex)
	dataset.FeedbackItems.Append(itemIndex)
	dataset.FeedbackValues.Append(value)
	dataset.UserFeedback[userIndex] = append(dataset.UserFeedback[userIndex], itemIndex)
	dataset.UserFeedbackValues[userIndex] = append(dataset.UserFeedbackValues[userIndex], value)
	dataset.ItemFeedback[itemIndex] = append(dataset.ItemFeedback[itemIndex], userIndex)
}

// LoadDataFromCSV loads data from a CSV file. The CSV file should be:
//
//	[optional header]
//	<userId 1> <sep> <itemId 1> <sep> <rating 1> <sep> <extras>
//	<userId 2> <sep> <itemId 2> <sep> <rating 2> <sep> <extras>
//	<userId 3> <sep> <itemId 3> <sep> <rating 3> <sep> <extras>
//	...
//
// For example, the `ua.base` from MovieLens 100K is:
//
//	196	242	3	881250949
//	186	302	3	891717742
//	22	377	1	878887116
//
// If the rating column is missing, each feedback is rated 1.
func LoadDataFromCSV(fileName, sep string, hasHeader bool) (*DataSet, error) {
	dataset := NewMapIndexDataset()
	// Open file
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	// Read CSV file
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore header
		if hasHeader {
			hasHeader = false
			continue
		}
		fields := strings.Split(line, sep)
		// Ignore empty line
		if len(fields) < 2 {
			continue
		}
		value := float32(1)
		if len(fields) >= 3 {
			rating, err := strconv.ParseFloat(fields[2], 32)
			if err != nil {
				return nil, errors.Trace(err)
			}
			value = float32(rating)
		}
		dataset.AddFeedback(fields[0], fields[1], value, true)
	}
	return dataset, errors.Trace(scanner.Err())
}

func loadTest(dataset *DataSet, path, sep string) error {
	// Open
	file, err := os.Open(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	// Read lines
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), sep)
		if len(fields) < 2 {
			continue
		}
		value := float32(1)
		if len(fields) >= 3 {
			rating, err := strconv.ParseFloat(fields[2], 32)
			if err != nil {
				return errors.Trace(err)
			}
			value = float32(rating)
		}
		// users and items unseen in the train split are dropped
		dataset.AddFeedback(fields[0], fields[1], value, false)
	}
	return scanner.Err()
}

// LoadDataFromBuiltIn loads a built-in data set.
func LoadDataFromBuiltIn(dataSetName string) (*DataSet, *DataSet, error) {
	// Extract data set information
	source, exist := builtInDataSets[dataSetName]
	if !exist {
		return nil, nil, errors.NotFoundf("built-in dataset %s", dataSetName)
	}
	trainFilePath, testFilePath, err := datautil.LocateBuiltInDataset(dataSetName, source.url, source.train, source.test)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	// Load dataset
	trainSet, err := LoadDataFromCSV(trainFilePath, source.sep, false)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	// The test set shares the index of the train set so that rankings produced
	// from the train set can be matched against test feedback.
	testSet := new(DataSet)
	testSet.UserIndex = trainSet.UserIndex
	testSet.ItemIndex = trainSet.ItemIndex
	testSet.UserFeedback = createSliceOfSlice[int32](trainSet.UserCount())
	testSet.ItemFeedback = createSliceOfSlice[int32](trainSet.ItemCount())
	testSet.UserFeedbackValues = createSliceOfSlice[float32](trainSet.UserCount())
	err = loadTest(testSet, testFilePath, source.sep)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return trainSet, testSet, nil
}
